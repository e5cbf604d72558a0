/*
Package factory runs the guided dialogue that turns a conversation into a
new skill.

A session walks through a fixed sequence of questions:

	Goal -> Trigger -> Example -> Complexity -> EdgeCases -> Confirm -> Done

Each answer advances exactly one step. At Confirm an affirmative answer
materializes the collected answers as a skill through the skill registry and
consumes the session; anything else re-prompts with the summary so the user
can start over with a new session if needed.

Sessions live in memory, are serialized per id, and expire after a period of
inactivity. A background sweeper removes expired sessions without blocking
sessions that are in use.
*/
package factory
