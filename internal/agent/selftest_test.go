package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldSelfTest(t *testing.T) {
	assert.False(t, shouldSelfTest(1, 50, 10))
	assert.True(t, shouldSelfTest(10, 50, 10))
	assert.True(t, shouldSelfTest(20, 50, 10))
	assert.False(t, shouldSelfTest(39, 50, 10))
	assert.True(t, shouldSelfTest(40, 50, 10), "80% of ceiling triggers")
	assert.True(t, shouldSelfTest(41, 50, 10))

	// Custom cadence and the zero-value fallback.
	assert.True(t, shouldSelfTest(5, 50, 5))
	assert.False(t, shouldSelfTest(5, 50, 0))
	assert.True(t, shouldSelfTest(10, 50, 0))
}

func TestEvaluateProgress(t *testing.T) {
	assert.Equal(t, 0.0, EvaluateProgress(nil))

	clean := []HistoryEntry{
		{Action: "list_directory", Result: "a.txt"},
		{Action: "search_file", Result: "content"},
	}
	// 1.0 success fraction + 0.2 diversity, capped at 1.0.
	assert.Equal(t, 1.0, EvaluateProgress(clean))

	allFailed := []HistoryEntry{
		{Action: "search_file", Result: "Error reading file"},
		{Action: "search_file", Result: "Error reading file"},
	}
	// 0 successes + 0.1 diversity bonus.
	assert.InDelta(t, 0.1, EvaluateProgress(allFailed), 1e-9)
}

func TestGoalAlignment(t *testing.T) {
	assert.Equal(t, 0.5, GoalAlignment("anything", nil), "neutral without history")

	aligned := []HistoryEntry{
		{Action: "create_file", Result: "Successfully created script.py"},
	}
	score := GoalAlignment("create script.py", aligned)
	assert.Greater(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)

	unrelated := []HistoryEntry{
		{Action: "get_current_directory", Result: "/workspace"},
	}
	assert.Greater(t, score, GoalAlignment("create script.py", unrelated))
}

func TestCountQuality(t *testing.T) {
	history := []HistoryEntry{
		{Action: "create_file", Result: "Successfully created a.go"},
		{Action: "modify_file", Result: "Successfully modified a.go"},
		{Action: "search_file", Result: "Error reading file: missing"},
		{Action: "list_directory", Result: "a.go (12 bytes)"},
	}
	q := CountQuality(history)
	assert.Equal(t, 1, q.FilesCreated)
	assert.Equal(t, 1, q.FilesModified)
	assert.Equal(t, 1, q.Errors)
	assert.Equal(t, 2, q.Successes)
}
