package agent

import (
	"math"
	"strings"
)

const (
	baseSteps = 20
	maxSteps  = 200
)

// complexityKeywords maps goal vocabulary to complexity weights. Each keyword
// present in the goal adds weight*0.1 to the multiplier.
var complexityKeywords = []struct {
	word   string
	weight float64
}{
	{"create", 5}, {"analyze", 10}, {"comprehensive", 15}, {"test", 8},
	{"implement", 12}, {"generate", 8}, {"optimize", 15}, {"refactor", 12},
	{"document", 10}, {"backup", 6}, {"migrate", 15}, {"deploy", 12},
	{"multiple", 8}, {"all", 6}, {"entire", 10}, {"complex", 15},
	{"advanced", 12}, {"detailed", 8}, {"thorough", 10},
}

var conjunctions = []string{"and", "then", "also", "additionally", "furthermore"}

// EstimateSteps derives a step ceiling from the goal text alone. It is
// deterministic and always returns a value in [20, 200].
func EstimateSteps(goal string) int {
	lower := strings.ToLower(goal)
	multiplier := 1.0

	for _, kw := range complexityKeywords {
		if strings.Contains(lower, kw.word) {
			multiplier += kw.weight * 0.1
		}
	}
	for _, conj := range conjunctions {
		multiplier += float64(strings.Count(lower, conj)) * 0.3
	}
	if words := len(strings.Fields(goal)); words > 20 {
		multiplier += float64(words-20) * 0.05
	}

	steps := int(math.Round(baseSteps * multiplier))
	if steps < baseSteps {
		return baseSteps
	}
	if steps > maxSteps {
		return maxSteps
	}
	return steps
}
