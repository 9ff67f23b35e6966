package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xkilldash9x/drover/internal/memory"
	"github.com/xkilldash9x/drover/internal/tools"
)

// DiagnosticCheck is one named pass/fail result.
type DiagnosticCheck struct {
	Name   string
	Passed bool
	Detail string
}

// DiagnosticsReport aggregates the one-shot health suite.
type DiagnosticsReport struct {
	Checks []DiagnosticCheck
}

// PassRate is the fraction of checks that passed.
func (r DiagnosticsReport) PassRate() float64 {
	if len(r.Checks) == 0 {
		return 0
	}
	passed := 0
	for _, c := range r.Checks {
		if c.Passed {
			passed++
		}
	}
	return float64(passed) / float64(len(r.Checks))
}

// RunDiagnostics exercises the core subsystems end to end: memory round-trip,
// error-pattern learning, the tool registry, file operations in a scratch
// directory, parser totality, and the budgeter clamp.
func RunDiagnostics(ctx context.Context, registry *tools.Registry, store *memory.Store) DiagnosticsReport {
	var report DiagnosticsReport
	add := func(name string, passed bool, detail string) {
		report.Checks = append(report.Checks, DiagnosticCheck{Name: name, Passed: passed, Detail: detail})
	}

	// Memory round-trip.
	_, err := store.Record("diagnostic", map[string]any{"probe": "round-trip"}, 0.5, []string{"diagnostic"}, true)
	if err != nil {
		add("memory round-trip", false, err.Error())
	} else {
		entries, qerr := store.Query(memory.QueryOptions{Category: "diagnostic", Limit: 1})
		add("memory round-trip", qerr == nil && len(entries) > 0, "store and query a diagnostic entry")
	}

	// Error-pattern learning.
	if err := store.LearnFromError("diagnostic", "self-check", "no action needed", 1.0); err != nil {
		add("error-pattern learning", false, err.Error())
	} else {
		patterns, perr := store.ErrorSolutions("diagnostic", "self")
		add("error-pattern learning", perr == nil && len(patterns) > 0, "learn and look up a pattern")
	}

	// Tool registry surface.
	names := registry.Names()
	add("tool registry populated", len(names) >= 15, fmt.Sprintf("%d tools registered", len(names)))
	add("unknown tool handled", strings.Contains(registry.Invoke(ctx, "definitely_not_a_tool", nil), "Unknown tool"), "unknown names return a message")

	// File operations in a scratch directory.
	scratch, err := os.MkdirTemp("", "drover-diag-")
	if err != nil {
		add("file operations", false, err.Error())
	} else {
		defer os.RemoveAll(scratch)
		path := filepath.Join(scratch, "probe.txt")
		created := registry.Invoke(ctx, "create_file", map[string]any{"file_path": path, "content": "probe"})
		read := registry.Invoke(ctx, "search_file", map[string]any{"file_path": path})
		add("file operations", strings.Contains(created, "Successfully") && read == "probe", "create then read a scratch file")
	}

	// Parser totality.
	action, errs := ParseResponse(`{"thought": "ok", "tool": "finish", "args": {}}`)
	add("parser accepts well-formed JSON", action != nil && action.Tool == "finish", "")
	action, errs = ParseResponse("complete garbage with no structure")
	add("parser rejects garbage without panic", action == nil && len(errs) > 0, "")

	// Budgeter clamp.
	low := EstimateSteps("")
	high := EstimateSteps(strings.Repeat("comprehensive analyze optimize migrate and then also ", 50))
	add("budgeter clamp", low >= 20 && low <= 200 && high >= 20 && high <= 200,
		fmt.Sprintf("empty=%d pathological=%d", low, high))

	return report
}
