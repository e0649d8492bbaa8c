package llm

import "strings"

// complexityMarkers suggest a multi-step request that the smaller model
// tends to mangle.
var complexityMarkers = []string{
	"plan",
	"workflow",
	"steps",
	"analyze",
	"after that",
	"then",
}

const longRequestThreshold = 120

// ChooseModel routes short, simple requests to the fast model and long or
// multi-step requests to the smart one.
func ChooseModel(text, fastModel, smartModel string) string {
	if len(text) > longRequestThreshold {
		return smartModel
	}
	lower := strings.ToLower(text)
	for _, marker := range complexityMarkers {
		if strings.Contains(lower, marker) {
			return smartModel
		}
	}
	return fastModel
}
