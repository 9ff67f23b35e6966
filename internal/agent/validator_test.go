package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var knownTools = []string{
	"list_directory", "search_file", "create_file", "modify_file",
	"delete_file", "execute_shell_command", "get_current_directory",
	"get_memory_statistics", "no_op", "finish",
}

func TestCorrectToolName(t *testing.T) {
	tests := []struct {
		attempted string
		want      string
	}{
		{"list_dir", "list_directory"},
		{"lst_directory", "list_directory"},
		{"serch_file", "search_file"},
		{"create_files", "create_file"},
		{"finishh", "finish"},
		{"teleport", ""},
		{"completely_made_up_tool_name", ""},
	}
	for _, tt := range tests {
		t.Run(tt.attempted, func(t *testing.T) {
			got := CorrectToolName(tt.attempted, knownTools, 0.6)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCorrectToolNameExactMatchWins(t *testing.T) {
	assert.Equal(t, "search_file", CorrectToolName("search_file", knownTools, 0.6))
}

func TestValidateArgs(t *testing.T) {
	warnings := ValidateArgs("modify_file", map[string]any{"file_path": "a.txt"})
	assert.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "new_content")

	warnings = ValidateArgs("modify_file", map[string]any{"file_path": "a.txt", "new_content": "x"})
	assert.Empty(t, warnings)

	warnings = ValidateArgs("execute_shell_command", map[string]any{})
	assert.Len(t, warnings, 1)

	// Tools without rules produce no warnings.
	assert.Empty(t, ValidateArgs("get_current_directory", nil))
}
