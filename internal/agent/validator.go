package agent

import "fmt"

// requiredArgs lists advisory required-argument rules per tool. Violations
// are surfaced as warnings, never hard stops; the tool itself is the final
// arbiter of malformed args.
var requiredArgs = map[string][]string{
	"search_file":           {"file_path"},
	"create_file":           {"file_path"},
	"modify_file":           {"file_path", "new_content"},
	"append_to_file":        {"file_path", "content"},
	"edit_file_lines":       {"file_path", "start_line", "end_line"},
	"delete_file":           {"file_path"},
	"copy_file":             {"source", "destination"},
	"move_file":             {"source", "destination"},
	"execute_shell_command": {"command"},
	"find_files":            {"pattern"},
	"search_in_files":       {"pattern"},
	"change_directory":      {"directory_path"},
	"create_directory":      {"directory_path"},
	"fetch_web_content":     {"url"},
	"call_api":              {"url"},
}

// CorrectToolName returns the closest registered tool name when the attempted
// name is unknown but similar enough (similarity >= threshold), or empty when
// nothing qualifies. The substitution is an availability-over-precision
// trade-off: it may pick a tool the model did not intend.
func CorrectToolName(attempted string, available []string, threshold float64) string {
	best := ""
	bestScore := threshold
	for _, name := range available {
		score := similarity(attempted, name)
		if score >= bestScore {
			best = name
			bestScore = score
		}
	}
	return best
}

// ValidateArgs checks the advisory required-argument table. Returns warnings,
// not errors.
func ValidateArgs(tool string, args map[string]any) []string {
	var warnings []string
	for _, key := range requiredArgs[tool] {
		if _, ok := args[key]; !ok {
			warnings = append(warnings, fmt.Sprintf("%s requires '%s' argument", tool, key))
		}
	}
	return warnings
}

// similarity is a normalized edit-distance ratio in [0,1], scaled over the
// combined length so that pure-suffix truncations still score well.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	total := len([]rune(a)) + len([]rune(b))
	if total == 0 {
		return 1
	}
	return float64(total-levenshtein(a, b)) / float64(total)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
