package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/drover/internal/config"
	"github.com/xkilldash9x/drover/internal/memory"
	"github.com/xkilldash9x/drover/internal/safety"
	"github.com/xkilldash9x/drover/internal/tools"
)

// scriptedClient replays canned responses, repeating the last one when the
// script runs out. Prompts are captured for assertions.
type scriptedClient struct {
	responses []string
	prompts   []string
	calls     int
}

func (c *scriptedClient) Generate(_ context.Context, prompt string, _ bool) string {
	c.prompts = append(c.prompts, prompt)
	i := c.calls
	c.calls++
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	return c.responses[i]
}

// stubOperator answers consent and clarification questions with fixed values.
type stubOperator struct {
	consent       bool
	clarification string
	asked         int
}

func (o *stubOperator) Confirm(string) bool { return o.consent }
func (o *stubOperator) Ask(string) string   { o.asked++; return o.clarification }

type harness struct {
	agent *Agent
	store *memory.Store
	dir   string
}

func newHarness(t *testing.T, client ModelClient, operator Interactor, toolConfirm tools.ConfirmFunc) *harness {
	t.Helper()
	dir := t.TempDir()

	store, err := memory.New(config.MemoryConfig{
		Path:            filepath.Join(dir, "mem.db"),
		EvictionAge:     30 * 24 * time.Hour,
		ImportanceFloor: 0.3,
		ContextItems:    10,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	registry := tools.NewRegistry(tools.Deps{
		Memory:  store,
		Safety:  safety.New(config.SafetyConfig{AuditLogPath: filepath.Join(dir, "audit.json"), AuditLogCap: 1000}, zap.NewNop()),
		Logger:  zap.NewNop(),
		Confirm: toolConfirm,
	})

	cfg := config.AgentConfig{
		MaxSteps:        10,
		AdaptiveSteps:   false,
		NoConfirm:       true,
		HistoryWindow:   5,
		ProgressFloor:   0.3,
		FuzzyMatchFloor: 0.6,
	}
	a := New(cfg, client, registry, store, operator, zap.NewNop(), Options{})
	return &harness{agent: a, store: store, dir: dir}
}

func TestScenarioCreateFileThenFinish(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "hello.py")

	client := &scriptedClient{responses: []string{
		`{"thought": "create the script", "tool": "create_file", "args": {"file_path": "` + script + `", "content": "print('hello world')"}}`,
		`{"thought": "done", "tool": "finish", "args": {"reason": "script created"}}`,
	}}
	h := newHarness(t, client, &stubOperator{consent: true}, nil)

	outcome := h.agent.Execute(context.Background(), "Create a Python script that prints hello world")

	assert.Equal(t, StateTerminated, outcome.State)
	assert.True(t, outcome.Finished)
	assert.Equal(t, "script created", outcome.Reason)

	data, err := os.ReadFile(script)
	require.NoError(t, err)
	assert.Contains(t, string(data), "print(")

	// A success memory entry was persisted.
	entries, err := h.store.Query(memory.QueryOptions{Category: "goal_accomplished"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)

	// Exactly one tool execution in history before finish.
	usage, err := h.store.Query(memory.QueryOptions{Category: "tool_usage"})
	require.NoError(t, err)
	assert.Len(t, usage, 1)
}

func TestScenarioUnparsableResponsesNeverPanic(t *testing.T) {
	client := &scriptedClient{responses: []string{
		"total garbage with no json at all",
		"still nothing useful {{{{",
		"nope",
	}}
	// Recovery substitutes safe actions each step; the run terminates at
	// the ceiling instead of looping forever or panicking.
	h := newHarness(t, client, &stubOperator{consent: true}, nil)

	outcome := h.agent.Execute(context.Background(), "do something")

	assert.Equal(t, StateTerminated, outcome.State)
	assert.False(t, outcome.Finished)
	assert.LessOrEqual(t, outcome.Steps, 10, "ceiling respected")
}

func TestScenarioCeilingRespectedUnderGarbage(t *testing.T) {
	// list/show goal keeps recovery on list_directory (a succeeding tool),
	// so the loop runs all the way to the ceiling without a no_op exit.
	client := &scriptedClient{responses: []string{"garbage"}}
	h := newHarness(t, client, &stubOperator{consent: true, clarification: ""}, nil)

	outcome := h.agent.Execute(context.Background(), "list everything repeatedly")

	assert.Equal(t, StateTerminated, outcome.State)
	assert.Equal(t, 10, outcome.Steps)
	assert.Equal(t, "max steps reached", outcome.Reason)
}

func TestScenarioDeleteDeniedNoMutation(t *testing.T) {
	dir := t.TempDir()
	protected := filepath.Join(dir, "critical.txt")
	require.NoError(t, os.WriteFile(protected, []byte("do not delete"), 0o644))

	client := &scriptedClient{responses: []string{
		`{"thought": "remove it", "tool": "delete_file", "args": {"file_path": "` + protected + `"}}`,
		`{"thought": "giving up", "tool": "finish", "args": {"reason": "blocked"}}`,
	}}
	deny := func(string, string, safety.Assessment) bool { return false }
	h := newHarness(t, client, &stubOperator{consent: true}, deny)

	outcome := h.agent.Execute(context.Background(), "delete the critical file")
	assert.Equal(t, StateTerminated, outcome.State)

	// File untouched, cancellation recorded as a normal tool result.
	data, err := os.ReadFile(protected)
	require.NoError(t, err)
	assert.Equal(t, "do not delete", string(data))

	usage, err := h.store.Query(memory.QueryOptions{Category: "tool_usage"})
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Contains(t, usage[0].Content["result"], "cancelled")
}

func TestSessionConsentDeclined(t *testing.T) {
	client := &scriptedClient{responses: []string{`{"thought": "x", "tool": "finish", "args": {}}`}}
	h := newHarness(t, client, &stubOperator{consent: false}, nil)
	h.agent.cfg.NoConfirm = false

	outcome := h.agent.Execute(context.Background(), "anything")

	assert.Equal(t, StateTerminated, outcome.State)
	assert.Equal(t, "session consent declined", outcome.Reason)
	assert.Equal(t, 0, client.calls, "no model call without consent")
}

func TestNoOpWithClarificationContinues(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"thought": "unclear", "tool": "no_op", "args": {"reason": "ambiguous goal"}}`,
		`{"thought": "clear now", "tool": "finish", "args": {"reason": "resolved"}}`,
	}}
	operator := &stubOperator{consent: true, clarification: "just finish"}
	h := newHarness(t, client, operator, nil)

	outcome := h.agent.Execute(context.Background(), "vague request")

	assert.True(t, outcome.Finished)
	assert.Equal(t, 1, operator.asked)
	assert.Equal(t, 2, client.calls)
}

func TestUnknownToolCorrectedByFuzzyMatch(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"thought": "look around", "tool": "list_dir", "args": {"directory_path": "."}}`,
		`{"thought": "done", "tool": "finish", "args": {"reason": "ok"}}`,
	}}
	h := newHarness(t, client, &stubOperator{consent: true}, nil)

	outcome := h.agent.Execute(context.Background(), "look at the files")
	assert.True(t, outcome.Finished)

	usage, err := h.store.Query(memory.QueryOptions{Category: "tool_usage"})
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, "list_directory", usage[0].Content["tool"], "list_dir corrected to list_directory")
}

func TestUnknownToolUncorrectableBecomesNoOp(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"thought": "warp", "tool": "teleport", "args": {}}`,
	}}
	operator := &stubOperator{consent: true, clarification: ""}
	h := newHarness(t, client, operator, nil)

	outcome := h.agent.Execute(context.Background(), "anything odd")

	assert.Equal(t, StateTerminated, outcome.State)
	assert.Equal(t, "no clarification provided", outcome.Reason)

	noops, err := h.store.Query(memory.QueryOptions{Category: "no_op"})
	require.NoError(t, err)
	require.Len(t, noops, 1)
	assert.Contains(t, noops[0].Content["reason"], "teleport")
}

func TestFailedRunRecordsErrorPattern(t *testing.T) {
	// A run that exhausts its ceiling without finishing leaves an error
	// pattern behind for future failure lookups.
	missing := filepath.Join(t.TempDir(), "absent.txt")
	client := &scriptedClient{responses: []string{
		`{"thought": "read it", "tool": "search_file", "args": {"file_path": "` + missing + `"}}`,
	}}
	h := newHarness(t, client, &stubOperator{consent: true}, nil)

	outcome := h.agent.Execute(context.Background(), "read the report file")
	assert.False(t, outcome.Finished)
	assert.Equal(t, "max steps reached", outcome.Reason)

	patterns, err := h.store.ErrorSolutions("main_loop_error", "")
	require.NoError(t, err)
	require.NotEmpty(t, patterns)
	assert.Contains(t, patterns[0].ErrorContext, "read the report file")
	assert.Contains(t, patterns[0].ErrorContext, "max steps reached")

	stats, err := h.store.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ErrorPatterns)
}

func TestKnownSolutionSurfacesAfterFailedStep(t *testing.T) {
	// Reading a directory as a file fails; the next prompt carries the most
	// effective learned solution.
	dir := t.TempDir()
	client := &scriptedClient{responses: []string{
		`{"thought": "read", "tool": "search_file", "args": {"file_path": "` + dir + `"}}`,
		`{"thought": "done", "tool": "finish", "args": {"reason": "ok"}}`,
	}}
	h := newHarness(t, client, &stubOperator{consent: true}, nil)
	require.NoError(t, h.store.LearnFromError("task_execution_error",
		"Goal: read the report", "Check the working directory first", 0.9))

	outcome := h.agent.Execute(context.Background(), "read the report")
	assert.True(t, outcome.Finished)

	require.Len(t, client.prompts, 2)
	assert.NotContains(t, client.prompts[0], "Known recovery approach")
	assert.Contains(t, client.prompts[1], "Known recovery approach: Check the working directory first")
}

func TestLowProgressGateDeclinedTerminates(t *testing.T) {
	// Every step errors against the same tool, so progress stays at the
	// diversity floor; the first self-test past step 5 asks the operator,
	// and a decline ends the run.
	dir := t.TempDir()
	client := &scriptedClient{responses: []string{
		`{"thought": "try again", "tool": "search_file", "args": {"file_path": "` + dir + `"}}`,
	}}
	h := newHarness(t, client, &stubOperator{consent: false}, nil)

	outcome := h.agent.Execute(context.Background(), "read the elusive file")

	assert.Equal(t, StateTerminated, outcome.State)
	assert.False(t, outcome.Finished)
	assert.Equal(t, "low progress", outcome.Reason)
	assert.Equal(t, 8, outcome.Steps, "first self-test past step 5 ends the run")
}

func TestStopRequestedExitsCleanly(t *testing.T) {
	client := &scriptedClient{responses: []string{"garbage"}}
	h := newHarness(t, client, &stubOperator{consent: true}, nil)
	h.agent.RequestStop()

	outcome := h.agent.Execute(context.Background(), "list things")

	assert.Equal(t, StateTerminated, outcome.State)
	assert.Equal(t, "stop requested", outcome.Reason)

	summaries, err := h.store.Query(memory.QueryOptions{Category: "session_summary"})
	require.NoError(t, err)
	assert.Len(t, summaries, 1, "session summary persisted on stop")
}

func TestErrorEnvelopeRoutedThroughRecovery(t *testing.T) {
	// Transport failures arrive as envelope strings; the interpreter cannot
	// produce an action from them, so recovery substitutes one.
	client := &scriptedClient{responses: []string{
		`{"error": "request_error", "details": "connection refused"}`,
		`{"thought": "ok", "tool": "finish", "args": {"reason": "done"}}`,
	}}
	h := newHarness(t, client, &stubOperator{consent: true}, nil)

	outcome := h.agent.Execute(context.Background(), "show the files")
	assert.True(t, outcome.Finished)

	// Recovery substituted a list_directory after the envelope.
	usage, err := h.store.Query(memory.QueryOptions{Category: "tool_usage"})
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, "list_directory", usage[0].Content["tool"])
}
