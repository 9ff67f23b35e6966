package tools

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// shellTimeout bounds how long one command may run.
const shellTimeout = 30 * time.Second

type shellTool struct {
	deps Deps
}

func (t *shellTool) Name() string { return "execute_shell_command" }
func (t *shellTool) Description() string {
	return "Run a shell command with a 30 second timeout"
}

func (t *shellTool) Execute(ctx context.Context, args map[string]any) string {
	command := argString(args, "command")
	if strings.TrimSpace(command) == "" {
		return "Missing command"
	}

	assessment := t.deps.Safety.AssessCommand(command)
	if assessment.RequiresConfirmation() {
		if !t.deps.Confirm("Shell Command Execution", "Command: "+command, assessment) {
			return cancelled
		}
		t.deps.Safety.LogOperation("shell_command", command, assessment.Level, true)
		command = t.deps.Safety.SanitizeCommand(command)
	}

	ctx, cancel := context.WithTimeout(ctx, shellTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "Command timed out after 30 seconds"
	}

	output := strings.TrimSpace(stdout.String())
	if s := strings.TrimSpace(stderr.String()); s != "" {
		output += "\nSTDERR: " + s
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		output += fmt.Sprintf("\nExit code: %d", exitErr.ExitCode())
	} else if err != nil {
		return fmt.Sprintf("Error executing command: %v", err)
	}
	return output
}
