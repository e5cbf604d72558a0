// Package shell runs external processes for the sandbox.
//
// Every invocation spawns exactly one process (plus whatever it forks) in its
// own process group, bounded by a deadline. When the deadline passes or the
// caller goes away, the whole group is killed and the call returns a Timeout
// error; temporary source files are removed on every path.
//
// Features:
//   - Captured execution: full stdout/stderr, exit code, wall-clock duration
//   - Streaming execution: one event per output line, then a terminal event
//   - PTY streaming for programs that expect a terminal
//   - Source execution for a fixed table of languages
//   - Skill script execution with runner selection by extension
//
// Example Usage:
//
//	exec := shell.New(shell.Options{Workspace: "/home/sandbox/workspace"})
//	res, err := exec.Exec(ctx, shell.ExecRequest{Command: "echo hello"})
//	// res.Stdout == "hello\n", res.ExitCode == 0
package shell
