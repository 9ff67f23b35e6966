package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/drover/internal/config"
)

// TestRootCmd_VersionFlag tests if the --version flag works correctly.
func TestRootCmd_VersionFlag(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--version"})

	err := rootCmd.ExecuteContext(context.Background())

	require.NoError(t, err)
	assert.Contains(t, out.String(), "1.0")
}

// TestRunCmd_RequiresGoal verifies the argument validation: a goal is
// mandatory unless --infinite is set.
func TestRunCmd_RequiresGoal(t *testing.T) {
	runCmd := newRunCmd()
	var out bytes.Buffer
	runCmd.SetOut(&out)
	runCmd.SetErr(&out)
	runCmd.SetArgs([]string{})

	err := runCmd.ExecuteContext(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "a goal is required")
}

// TestToolsCmd_ListsFullSurface checks that the tools command lists the real
// tool registry, not the pseudo-tools the loop handles itself.
func TestToolsCmd_ListsFullSurface(t *testing.T) {
	toolsCmd := newToolsCmd()
	var out bytes.Buffer
	toolsCmd.SetOut(&out)
	toolsCmd.SetErr(&out)
	toolsCmd.SetArgs([]string{})

	err := toolsCmd.ExecuteContext(context.Background())

	require.NoError(t, err)
	listing := out.String()
	assert.Contains(t, listing, "20 tools available")
	assert.Contains(t, listing, "execute_shell_command")
	assert.Contains(t, listing, "list_directory")
	// finish and no_op belong to the loop, not the registry.
	assert.NotContains(t, listing, "finish")
	assert.NotContains(t, listing, "no_op")
}

// TestSelfTestCmd_Passes runs the full diagnostic suite against throwaway
// state and expects a clean bill of health.
func TestSelfTestCmd_Passes(t *testing.T) {
	prev := cfg
	cfg = config.NewDefaultConfig()
	t.Cleanup(func() { cfg = prev })

	selfTestCmd := newSelfTestCmd()
	var out bytes.Buffer
	selfTestCmd.SetOut(&out)
	selfTestCmd.SetErr(&out)
	selfTestCmd.SetArgs([]string{})

	err := selfTestCmd.ExecuteContext(context.Background())

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Pass rate: 100%")
	assert.NotContains(t, out.String(), "[FAIL]")
}

func TestConsoleInteractor_Confirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"yes", "y\n", true},
		{"yes word", "Yes\n", true},
		{"no", "n\n", false},
		{"empty defaults to no", "\n", false},
		{"eof defaults to no", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			c := newConsoleInteractor(strings.NewReader(tc.input), &out, true)
			assert.Equal(t, tc.want, c.Confirm("Proceed with the operation?"))
			assert.Contains(t, out.String(), "[y/N]")
		})
	}
}

func TestConsoleInteractor_AskNonInteractive(t *testing.T) {
	var out bytes.Buffer
	c := newConsoleInteractor(strings.NewReader("should not be read\n"), &out, false)

	answer := c.Ask("What file should be listed?")

	assert.Empty(t, answer)
	// Non-interactive mode never writes the prompt either.
	assert.Empty(t, out.String())
}

func TestConsoleInteractor_AskInteractive(t *testing.T) {
	var out bytes.Buffer
	c := newConsoleInteractor(strings.NewReader("the src directory\n"), &out, true)

	answer := c.Ask("What should be listed?")

	assert.Equal(t, "the src directory", answer)
	assert.Contains(t, out.String(), "What should be listed?")
}
