package agent

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xkilldash9x/drover/internal/memory"
)

// taskComplexityWeights scores goal vocabulary for pre-analysis. Distinct
// from the step budgeter's table: this one feeds advisory metadata, not the
// step ceiling.
var taskComplexityWeights = map[string]float64{
	"file": 0.2, "directory": 0.2, "folder": 0.2,
	"create": 0.3, "read": 0.3, "write": 0.3, "delete": 0.3,
	"copy": 0.4, "move": 0.4, "rename": 0.4,
	"code": 0.5, "program": 0.5, "script": 0.5, "function": 0.5,
	"class": 0.6, "module": 0.6, "package": 0.6,
	"test": 0.7, "debug": 0.7, "optimize": 0.7,
	"install": 0.6, "configure": 0.6, "setup": 0.6,
	"server": 0.8, "service": 0.8, "daemon": 0.8,
	"database": 0.9, "network": 0.9, "security": 0.9,
	"api": 0.7, "integration": 0.7, "automation": 0.7,
	"deploy": 0.9, "production": 0.9, "scale": 0.9,
}

// Analysis is the advisory pre-execution view of a goal.
type Analysis struct {
	Task            memory.TaskContext
	Recommendations []string
}

// AnalyzeTask scores goal complexity, estimates steps, and extracts naive
// subtask dependencies. Pure except for the generated task id and timestamp.
func AnalyzeTask(goal string) Analysis {
	lower := strings.ToLower(goal)

	score := 0.1
	for word, weight := range taskComplexityWeights {
		if strings.Contains(lower, word) {
			score += weight
		}
	}
	words := len(strings.Fields(goal))
	if words > 50 {
		score += 0.3
	} else if words > 20 {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}

	steps := int(score * 20)
	if steps < 1 {
		steps = 1
	}
	if containsAny(lower, "create", "build", "develop") {
		steps += 5
	}
	if containsAny(lower, "test", "verify", "validate") {
		steps += 3
	}
	if containsAny(lower, "deploy", "install", "configure") {
		steps += 4
	}
	if steps > 50 {
		steps = 50
	}

	var deps []string
	if strings.Contains(lower, "create") {
		switch {
		case strings.Contains(lower, "project"):
			deps = append(deps,
				"Set up project structure",
				"Create main files",
				"Implement core functionality",
				"Add tests")
		case strings.Contains(lower, "file"):
			deps = append(deps,
				"Analyze file requirements",
				"Create file structure",
				"Validate file creation")
		}
	}
	if strings.Contains(lower, "install") {
		deps = append(deps,
			"Check system requirements",
			"Install dependencies",
			"Verify installation")
	}

	var recs []string
	if score > 0.8 {
		recs = append(recs,
			"High complexity task - consider breaking into smaller parts",
			"Implement comprehensive testing",
			"Create backup before making changes")
	} else if score > 0.5 {
		recs = append(recs,
			"Medium complexity task - plan execution carefully",
			"Test incrementally")
	}

	return Analysis{
		Task: memory.TaskContext{
			TaskID:          uuid.NewString(),
			Description:     goal,
			ComplexityScore: score,
			EstimatedSteps:  steps,
			Dependencies:    deps,
			CreatedAt:       time.Now().UTC(),
			Status:          "pending",
			Artifacts:       []string{},
		},
		Recommendations: recs,
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
