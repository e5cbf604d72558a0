package factory

import "strings"

// TriggerPhrases start the factory dialogue when found in user input
var TriggerPhrases = []string{
	"teach me",
	"teach you",
	"learn this",
	"learn how",
	"create a skill",
	"remember how to",
	"automate this",
}

// TriggerMatch is the outcome of CheckTrigger
type TriggerMatch struct {
	TriggersFactory bool     `json:"triggers_factory"`
	MatchedPhrases  []string `json:"matched_phrases"`
}

// CheckTrigger matches input against TriggerPhrases, case-insensitively
func CheckTrigger(input string) TriggerMatch {
	s := strings.ToLower(input)
	matched := []string{}
	for _, p := range TriggerPhrases {
		if strings.Contains(s, p) {
			matched = append(matched, p)
		}
	}
	return TriggerMatch{TriggersFactory: len(matched) > 0, MatchedPhrases: matched}
}
