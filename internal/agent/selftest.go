package agent

import (
	"strings"
)

// SelfTestResult is the in-loop progress check computed at self-test steps.
type SelfTestResult struct {
	ProgressScore float64        `json:"progress_score"`
	GoalAlignment float64        `json:"goal_alignment"`
	Quality       QualityCounter `json:"quality_check"`
}

// QualityCounter tallies outcome markers by substring matching on results.
type QualityCounter struct {
	FilesCreated  int `json:"files_created"`
	FilesModified int `json:"files_modified"`
	Errors        int `json:"errors_encountered"`
	Successes     int `json:"successful_operations"`
}

// shouldSelfTest triggers every `every` steps and when approaching the ceiling.
func shouldSelfTest(step, ceiling, every int) bool {
	if every < 1 {
		every = 10
	}
	return step%every == 0 || float64(step) >= 0.8*float64(ceiling)
}

// EvaluateProgress scores history in [0,1]: the non-error fraction plus a
// diversity bonus capped at 0.3.
func EvaluateProgress(history []HistoryEntry) float64 {
	if len(history) == 0 {
		return 0
	}

	successes := 0
	unique := map[string]struct{}{}
	for _, h := range history {
		if !strings.Contains(strings.ToLower(h.Result), "error") {
			successes++
		}
		unique[h.Action] = struct{}{}
	}

	score := float64(successes) / float64(len(history))
	bonus := float64(len(unique)) * 0.1
	if bonus > 0.3 {
		bonus = 0.3
	}
	score += bonus
	if score > 1 {
		score = 1
	}
	return score
}

// GoalAlignment measures keyword overlap between the goal and the last 5
// history entries, normalized to [0,1]. Neutral 0.5 with no history.
func GoalAlignment(goal string, history []HistoryEntry) float64 {
	if len(history) == 0 {
		return 0.5
	}

	goalWords := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(goal)) {
		goalWords[w] = struct{}{}
	}

	recent := history
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}

	total := 0.0
	for _, h := range recent {
		text := strings.ToLower(h.Action + " " + h.Result)
		overlap := 0
		seen := map[string]struct{}{}
		for _, w := range strings.Fields(text) {
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			if _, ok := goalWords[w]; ok {
				overlap++
			}
		}
		denom := len(goalWords)
		if denom == 0 {
			denom = 1
		}
		total += float64(overlap) / float64(denom)
	}

	score := total / float64(len(recent))
	if score > 1 {
		score = 1
	}
	return score
}

// CountQuality derives outcome counters by substring matching on results.
func CountQuality(history []HistoryEntry) QualityCounter {
	var q QualityCounter
	for _, h := range history {
		lower := strings.ToLower(h.Result)
		switch {
		case strings.Contains(lower, "error") || strings.Contains(lower, "failed"):
			q.Errors++
		case strings.Contains(lower, "successfully") || strings.Contains(lower, "created"):
			q.Successes++
		}

		if strings.Contains(lower, "successfully") {
			switch h.Action {
			case "create_file", "create_directory", "create_project_structure":
				q.FilesCreated++
			case "modify_file", "append_to_file", "edit_file_lines":
				q.FilesModified++
			}
		}
	}
	return q
}

// RunSelfTest computes the full in-loop check.
func RunSelfTest(goal string, history []HistoryEntry) SelfTestResult {
	return SelfTestResult{
		ProgressScore: EvaluateProgress(history),
		GoalAlignment: GoalAlignment(goal, history),
		Quality:       CountQuality(history),
	}
}
