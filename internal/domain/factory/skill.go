package factory

import (
	"fmt"
	"strings"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/skills"
)

const fallbackName = "custom-skill"

// SanitizeName turns a goal into a valid skill name
func SanitizeName(goal string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(goal) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}

	name := b.String()
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}
	name = strings.Trim(name, "-")
	if len(name) > skills.MaxNameLen {
		name = strings.TrimRight(name[:skills.MaxNameLen], "-")
	}
	if name == "" {
		return fallbackName
	}
	return name
}

func (a Answers) skillName() string {
	if a.Name != "" {
		return a.Name
	}
	return SanitizeName(a.Goal)
}

func (a Answers) description() string {
	desc := "No triggers defined"
	switch {
	case len(a.Triggers) > 0:
		desc = "Triggers: " + strings.Join(a.Triggers, ", ")
	case strings.TrimSpace(a.Goal) != "":
		desc = strings.TrimSpace(a.Goal)
	}
	if r := []rune(desc); len(r) > skills.MaxDescriptionLen {
		desc = string(r[:skills.MaxDescriptionLen])
	}
	return desc
}

// body renders the skill instructions from the answers
func (a Answers) body() string {
	var b strings.Builder

	title := strings.TrimSpace(a.Goal)
	if title == "" {
		title = "Custom skill"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	if len(a.Triggers) > 0 {
		b.WriteString("## When to use\n\n")
		for _, t := range a.Triggers {
			fmt.Fprintf(&b, "- %s\n", t)
		}
		b.WriteString("\n")
	}

	if a.ExampleInput != "" || a.ExampleOutput != "" {
		b.WriteString("## Example\n\n")
		fmt.Fprintf(&b, "**Input:** %s\n\n", orNotSpecified(a.ExampleInput))
		fmt.Fprintf(&b, "**Output:** %s\n\n", orNotSpecified(a.ExampleOutput))
	}

	fmt.Fprintf(&b, "## Complexity\n\n%s\n\n", a.Complexity.Describe())

	if a.EdgeCases != "" {
		fmt.Fprintf(&b, "## Edge cases\n\n%s\n", a.EdgeCases)
	}
	return b.String()
}

// createRequest converts the answers into a registry request
func (a Answers) createRequest() skills.CreateRequest {
	return skills.CreateRequest{
		Name:        a.skillName(),
		Description: a.description(),
		Body:        a.body(),
		Metadata: map[string]any{
			"created_by": "factory",
			"complexity": string(a.Complexity),
		},
	}
}
