package factory

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepOrder(t *testing.T) {
	order := []Step{StepGoal, StepTrigger, StepExample, StepComplexity, StepEdgeCases, StepConfirm, StepDone}
	for i := 0; i < len(order)-1; i++ {
		assert.Equal(t, order[i+1], order[i].Next())
	}
	assert.Equal(t, StepDone, StepDone.Next())
	assert.Equal(t, "EdgeCases", StepEdgeCases.String())

	data, err := json.Marshal(map[string]Step{"step": StepConfirm})
	require.NoError(t, err)
	assert.JSONEq(t, `{"step":"Confirm"}`, string(data))
}

func TestParseTriggers(t *testing.T) {
	assert.Equal(t, []string{"a", "b c", "d"}, ParseTriggers(" a, b c ;\n d ,, "))
	assert.Empty(t, ParseTriggers(" , ; "))
}

func TestParseExample(t *testing.T) {
	tests := []struct {
		text, in, out string
	}{
		{"input: foo output: bar", "foo", "bar"},
		{"Input: foo -> Output: bar", "foo ->", "bar"},
		{"INPUT: only input", "only input", ""},
		{"output: y input: x", "x", "y input: x"},
		{"raw.csv -> clean.csv", "raw.csv", "clean.csv"},
		{"left ->", "left", ""},
		{"just some text", "just some text", ""},
		{strings.Repeat("Ⱥ", 10) + "input:", "", ""},
		{strings.Repeat("Ⱥ", 10) + " input: a output: b", "a", "b"},
		{"İİİİ input: abc output: def", "abc", "def"},
		{"İnput: x", "İnput: x", ""},
	}
	for _, tt := range tests {
		in, out := ParseExample(tt.text)
		assert.Equal(t, tt.in, in, tt.text)
		assert.Equal(t, tt.out, out, tt.text)
	}
}

func TestParseComplexity(t *testing.T) {
	assert.Equal(t, ComplexitySimple, ParseComplexity("Simple please"))
	assert.Equal(t, ComplexitySimple, ParseComplexity("just text"))
	assert.Equal(t, ComplexityComplex, ParseComplexity("COMPLEX"))
	assert.Equal(t, ComplexityComplex, ParseComplexity("it needs a template"))
	assert.Equal(t, ComplexitySimple, ParseComplexity("no idea"))
}

func TestIsAffirmative(t *testing.T) {
	for _, s := range []string{"yes", "Y", " confirm "} {
		assert.True(t, IsAffirmative(s), s)
	}
	for _, s := range []string{"no", "yes please", ""} {
		assert.False(t, IsAffirmative(s), s)
	}
}

func TestSummaryNotSpecified(t *testing.T) {
	s := Answers{Goal: "g"}.Summary()
	assert.True(t, strings.HasPrefix(s, "# Skill Summary\n\n**Goal:** g\n"))
	assert.Contains(t, s, "**Triggers:** (not specified)\n")
	assert.Contains(t, s, "**Complexity:** (not specified)\n")
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"Deploy my app":           "deploy-my-app",
		"Create PDF Reports":      "create-pdf-reports",
		"Handle API@Requests":     "handle-api-requests",
		"  lots  of   spaces  ":   "lots-of-spaces",
		"!!!":                     "custom-skill",
		"":                        "custom-skill",
		"Café menus":              "caf-menus",
		strings.Repeat("ab ", 40): strings.TrimRight(strings.Repeat("ab-", 22)[:64], "-"),
	}
	for in, want := range tests {
		got := SanitizeName(in)
		assert.Equal(t, want, got, in)
		assert.LessOrEqual(t, len(got), 64)
	}
}

func TestDescription(t *testing.T) {
	assert.Equal(t, "Triggers: a, b", Answers{Goal: "g", Triggers: []string{"a", "b"}}.description())
	assert.Equal(t, "g", Answers{Goal: " g "}.description())
	assert.Equal(t, "No triggers defined", Answers{}.description())
}

func TestCheckTrigger(t *testing.T) {
	m := CheckTrigger("Can you TEACH ME how to do this? I want to automate this.")
	assert.True(t, m.TriggersFactory)
	assert.Equal(t, []string{"teach me", "automate this"}, m.MatchedPhrases)

	m = CheckTrigger("Just a regular question")
	assert.False(t, m.TriggersFactory)
	assert.Empty(t, m.MatchedPhrases)
	assert.NotNil(t, m.MatchedPhrases)
}

func TestParseRename(t *testing.T) {
	tests := []struct {
		input, name string
		ok          bool
	}{
		{"name: deploy-app-2", "deploy-app-2", true},
		{"  NAME:  other ", "other", true},
		{"name:", "", false},
		{"rename it", "", false},
		{"my name: x", "", false},
	}
	for _, tt := range tests {
		name, ok := ParseRename(tt.input)
		assert.Equal(t, tt.ok, ok, tt.input)
		assert.Equal(t, tt.name, name, tt.input)
	}
}

func TestIsRestart(t *testing.T) {
	assert.True(t, IsRestart(" Restart"))
	assert.True(t, IsRestart("start over"))
	assert.False(t, IsRestart("restart please"))
}

func TestSummaryShowsName(t *testing.T) {
	assert.Contains(t, Answers{Goal: "Deploy App"}.Summary(), "**Name:** deploy-app\n")
	assert.Contains(t, Answers{Goal: "Deploy App", Name: "ship"}.Summary(), "**Name:** ship\n")
}
