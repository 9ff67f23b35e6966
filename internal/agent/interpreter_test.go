package agent

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWellFormedJSON(t *testing.T) {
	action, errs := ParseResponse(`{"thought": "list the files", "tool": "list_directory", "args": {"directory_path": "."}}`)
	require.NotNil(t, action)
	assert.Empty(t, errs)
	assert.Equal(t, "list the files", action.Thought)
	assert.Equal(t, "list_directory", action.Tool)
	assert.Equal(t, ".", action.Args["directory_path"])
}

func TestParseJSONEmbeddedInProse(t *testing.T) {
	raw := `Sure! Here is my next action:

{"thought": "reading the file", "tool": "search_file", "args": {"file_path": "main.go"}}

Let me know if that works.`
	action, errs := ParseResponse(raw)
	require.NotNil(t, action)
	assert.Empty(t, errs)
	assert.Equal(t, "search_file", action.Tool)
}

func TestParseFencedCodeBlock(t *testing.T) {
	raw := "```json\n{\"thought\": \"done\", \"tool\": \"finish\", \"args\": {\"reason\": \"complete\"}}\n```"
	action, errs := ParseResponse(raw)
	require.NotNil(t, action)
	assert.Empty(t, errs)
	assert.Equal(t, ToolFinish, action.Tool)
	assert.Equal(t, "complete", action.Args["reason"])
}

func TestParseCleansBareKeysAndTrailingCommas(t *testing.T) {
	raw := `{thought: "exploring", tool: "list_directory", args: {directory_path: ".",},}`
	action, errs := ParseResponse(raw)
	require.NotNil(t, action)
	assert.Empty(t, errs)
	assert.Equal(t, "list_directory", action.Tool)
}

func TestParseMissingArgsDefaultsEmpty(t *testing.T) {
	action, errs := ParseResponse(`{"thought": "waiting", "tool": "no_op"}`)
	require.NotNil(t, action)
	assert.Empty(t, errs)
	assert.NotNil(t, action.Args)
	assert.Empty(t, action.Args)
}

func TestParseRejectsNonStringFields(t *testing.T) {
	action, errs := ParseResponse(`{"thought": 42, "tool": "list_directory"}`)
	assert.Nil(t, action)
	assert.NotEmpty(t, errs)
}

func TestParseNonObjectArgsFallsBackToReconstruction(t *testing.T) {
	// Structural validation rejects string-typed args, but the thought and
	// tool fields are still regex-recoverable, so the partial-parse path
	// salvages the action with empty args.
	action, errs := ParseResponse(`{"thought": "x", "tool": "list_directory", "args": "not an object"}`)
	require.NotNil(t, action)
	assert.Equal(t, "list_directory", action.Tool)
	assert.Empty(t, action.Args)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "Reconstructed")
}

func TestParseReconstructsFromPartialText(t *testing.T) {
	// Unbalanced braces defeat structural extraction but the fields are
	// still regex-recoverable.
	raw := `broken output "thought": "salvage me", "tool": "get_current_directory" trailing {{{`
	action, errs := ParseResponse(raw)
	require.NotNil(t, action)
	assert.Equal(t, "salvage me", action.Thought)
	assert.Equal(t, "get_current_directory", action.Tool)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Reconstructed")
}

func TestParseGarbageReturnsNilWithErrors(t *testing.T) {
	tests := []string{
		"complete nonsense with no structure at all",
		"{{{{",
		"null",
		"[1, 2, 3]",
	}
	for _, raw := range tests {
		action, errs := ParseResponse(raw)
		assert.Nil(t, action, raw)
		assert.NotEmpty(t, errs, raw)
	}
}

func TestParseEmptyResponse(t *testing.T) {
	action, errs := ParseResponse("   \n  ")
	assert.Nil(t, action)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "Empty response")
}

func TestParseErrorEchoTruncated(t *testing.T) {
	long := "x" + string(make([]byte, 500))
	_, errs := ParseResponse(long)
	require.NotEmpty(t, errs)
	last := errs[len(errs)-1]
	assert.LessOrEqual(t, len(last), 300, "raw echo must be capped")
}

func TestParseErrorEchoKeepsMultibyteIntact(t *testing.T) {
	action, errs := ParseResponse(strings.Repeat("ß", 250))
	assert.Nil(t, action)
	require.NotEmpty(t, errs)
	last := errs[len(errs)-1]
	// The cut counts runes, so no UTF-8 sequence is split.
	assert.True(t, utf8.ValidString(last))
	assert.Contains(t, last, strings.Repeat("ß", 200))
	assert.NotContains(t, last, strings.Repeat("ß", 201))
}
