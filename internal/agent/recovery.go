package agent

import (
	"fmt"
	"strings"
)

// RecoverAction substitutes a safe next action when the model's output could
// not be parsed. Deterministic fallback ladder; always returns a valid Action.
func RecoverAction(goal string, history []HistoryEntry, errs []string) Action {
	if len(history) == 0 {
		return Action{
			Thought: "Starting with directory exploration to understand the workspace",
			Tool:    "list_directory",
			Args:    map[string]any{"directory_path": "."},
		}
	}

	recent := history
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	failures := 0
	for _, h := range recent {
		lower := strings.ToLower(h.Result)
		if strings.Contains(lower, "error") || strings.Contains(lower, "unknown tool") {
			failures++
		}
	}
	if failures >= 2 {
		summary := ""
		if len(errs) > 0 {
			limit := len(errs)
			if limit > 2 {
				limit = 2
			}
			summary = " Errors: " + strings.Join(errs[:limit], "; ")
		}
		return Action{
			Thought: fmt.Sprintf("Multiple tool failures detected. Need to clarify available actions.%s", summary),
			Tool:    ToolNoOp,
			Args:    map[string]any{"reason": "Experiencing parsing errors, need user guidance"},
		}
	}

	lower := strings.ToLower(goal)
	switch {
	case strings.Contains(lower, "memory") || strings.Contains(lower, "statistics"):
		return Action{
			Thought: "Goal mentions memory/statistics, attempting to get memory statistics",
			Tool:    "get_memory_statistics",
			Args:    map[string]any{},
		}
	case strings.Contains(lower, "list") || strings.Contains(lower, "show"):
		return Action{
			Thought: "Goal mentions listing/showing, starting with directory listing",
			Tool:    "list_directory",
			Args:    map[string]any{"directory_path": "."},
		}
	default:
		return Action{
			Thought: "Taking a safe default action to gather context",
			Tool:    "get_current_directory",
			Args:    map[string]any{},
		}
	}
}
