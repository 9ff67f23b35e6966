package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateStepsClamped(t *testing.T) {
	tests := []struct {
		name string
		goal string
	}{
		{"empty goal", ""},
		{"simple goal", "list files"},
		{"pathological repetition", strings.Repeat("comprehensive analyze optimize migrate deploy and then also ", 100)},
		{"very long plain goal", strings.Repeat("word ", 500)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateSteps(tt.goal)
			assert.GreaterOrEqual(t, got, 20)
			assert.LessOrEqual(t, got, 200)
		})
	}
}

func TestEstimateStepsDeterministic(t *testing.T) {
	goal := "create a comprehensive test suite and then document it"
	first := EstimateSteps(goal)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, EstimateSteps(goal))
	}
}

func TestEstimateStepsScalesWithComplexity(t *testing.T) {
	simple := EstimateSteps("list files")
	complexGoal := EstimateSteps("create a comprehensive test suite, analyze the results, and then refactor and document everything")
	assert.Greater(t, complexGoal, simple)
	assert.Equal(t, 20, simple, "no keywords keeps the base")
}

func TestEstimateStepsConjunctionsAddWeight(t *testing.T) {
	without := EstimateSteps("create a file")
	with := EstimateSteps("create a file and then create another and then create a third")
	assert.Greater(t, with, without)
}
