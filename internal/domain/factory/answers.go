package factory

import (
	"fmt"
	"strings"
)

// Complexity classifies what a skill needs beyond instructions
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityComplex Complexity = "complex"
)

// Describe renders the complexity for summaries
func (c Complexity) Describe() string {
	switch c {
	case ComplexitySimple:
		return "Simple (text instructions only)"
	case ComplexityComplex:
		return "Complex (needs scripts/templates)"
	default:
		return notSpecified
	}
}

const notSpecified = "(not specified)"

// Answers accumulates what the user said at each step
type Answers struct {
	Goal string `json:"goal,omitempty"`
	// Name overrides the name derived from Goal
	Name          string     `json:"name,omitempty"`
	Triggers      []string   `json:"triggers,omitempty"`
	ExampleInput  string     `json:"example_input,omitempty"`
	ExampleOutput string     `json:"example_output,omitempty"`
	Complexity    Complexity `json:"complexity,omitempty"`
	EdgeCases     string     `json:"edge_cases,omitempty"`
}

// ParseTriggers splits on commas, semicolons and newlines
func ParseTriggers(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// ParseExample accepts "input: X output: Y" markers (case-insensitive),
// then "X -> Y", and otherwise treats the whole text as the input
func ParseExample(text string) (in, out string) {
	if i := indexMarker(text, "input:"); i >= 0 {
		start := i + len("input:")
		o := indexMarker(text, "output:")
		switch {
		case o < 0:
			return strings.TrimSpace(text[start:]), ""
		case o > start:
			return strings.TrimSpace(text[start:o]), strings.TrimSpace(text[o+len("output:"):])
		default:
			return strings.TrimSpace(text[start:]), strings.TrimSpace(text[o+len("output:"):])
		}
	}

	if i := strings.Index(text, "->"); i >= 0 {
		return strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+2:])
	}
	return text, ""
}

// indexMarker finds a lowercase ASCII marker in s ignoring ASCII case.
// Offsets index s itself, whatever its non-ASCII content.
func indexMarker(s, marker string) int {
	n := len(marker)
next:
	for i := 0; i+n <= len(s); i++ {
		for j := 0; j < n; j++ {
			c := s[i+j]
			if 'A' <= c && c <= 'Z' {
				c += 'a' - 'A'
			}
			if c != marker[j] {
				continue next
			}
		}
		return i
	}
	return -1
}

// ParseComplexity defaults to simple when the answer is unclear
func ParseComplexity(input string) Complexity {
	s := strings.ToLower(strings.TrimSpace(input))
	switch {
	case strings.Contains(s, "simple") || strings.Contains(s, "text"):
		return ComplexitySimple
	case strings.Contains(s, "complex") || strings.Contains(s, "script") || strings.Contains(s, "template"):
		return ComplexityComplex
	default:
		return ComplexitySimple
	}
}

// IsAffirmative reports whether a Confirm answer accepts the summary
func IsAffirmative(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "yes", "y", "confirm":
		return true
	}
	return false
}

// IsRestart reports whether a Confirm answer discards the dialogue
func IsRestart(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "restart", "start over":
		return true
	}
	return false
}

// ParseRename reads a "name: <new-name>" Confirm answer
func ParseRename(input string) (string, bool) {
	s := strings.TrimSpace(input)
	if indexMarker(s, "name:") != 0 {
		return "", false
	}
	name := strings.TrimSpace(s[len("name:"):])
	return name, name != ""
}

// Summary renders the review block shown at Confirm
func (a Answers) Summary() string {
	triggers := notSpecified
	if len(a.Triggers) > 0 {
		triggers = strings.Join(a.Triggers, ", ")
	}

	var b strings.Builder
	b.WriteString("# Skill Summary\n\n")
	fmt.Fprintf(&b, "**Goal:** %s\n", orNotSpecified(a.Goal))
	fmt.Fprintf(&b, "**Name:** %s\n", a.skillName())
	fmt.Fprintf(&b, "**Triggers:** %s\n", triggers)
	fmt.Fprintf(&b, "**Example Input:** %s\n", orNotSpecified(a.ExampleInput))
	fmt.Fprintf(&b, "**Example Output:** %s\n", orNotSpecified(a.ExampleOutput))
	fmt.Fprintf(&b, "**Complexity:** %s\n", a.Complexity.Describe())
	fmt.Fprintf(&b, "**Edge Cases:** %s\n", orNotSpecified(a.EdgeCases))
	return b.String()
}

func orNotSpecified(s string) string {
	if s == "" {
		return notSpecified
	}
	return s
}
