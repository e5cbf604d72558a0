package factory

import "fmt"

// Step is a position in the dialogue
type Step int

const (
	StepGoal Step = iota
	StepTrigger
	StepExample
	StepComplexity
	StepEdgeCases
	StepConfirm
	StepDone
)

var stepNames = [...]string{"Goal", "Trigger", "Example", "Complexity", "EdgeCases", "Confirm", "Done"}

var prompts = [...]string{
	StepGoal:       "What task do you want me to help with? Give me the high-level goal.",
	StepTrigger:    "When should I use this skill? What words or situations should activate it?",
	StepExample:    "Walk me through a real example. What would you give me as input, and what should I produce?",
	StepComplexity: "Is this a simple skill (text instructions only) or complex (needs scripts, templates)?",
	StepEdgeCases:  "What should I do if something's missing or goes wrong?",
	StepConfirm:    "Does this capture what you want? Say 'yes' to create.",
	StepDone:       "Skill creation complete!",
}

const confirmHint = "Reply 'name: <new-name>' to change the skill name or 'restart' to start over."

func (s Step) valid() bool {
	return s >= StepGoal && s <= StepDone
}

func (s Step) String() string {
	if !s.valid() {
		return fmt.Sprintf("Step(%d)", int(s))
	}
	return stepNames[s]
}

// MarshalText renders the step name
func (s Step) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("invalid step %d", int(s))
	}
	return []byte(stepNames[s]), nil
}

// Prompt returns the question asked at this step
func (s Step) Prompt() string {
	if !s.valid() {
		return ""
	}
	return prompts[s]
}

// Next returns the following step; Done is terminal
func (s Step) Next() Step {
	if s >= StepDone {
		return StepDone
	}
	return s + 1
}
