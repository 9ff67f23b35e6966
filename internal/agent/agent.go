package agent

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/xkilldash9x/drover/internal/config"
	"github.com/xkilldash9x/drover/internal/memory"
	"github.com/xkilldash9x/drover/internal/monitor"
	"github.com/xkilldash9x/drover/internal/tools"
)

// ModelClient produces the model's raw response for a prompt. Implementations
// must be total: transport failures come back as error-envelope strings, not
// Go errors.
type ModelClient interface {
	Generate(ctx context.Context, prompt string, stream bool) string
}

// Interactor is the operator-facing side of the loop: consent questions and
// clarification requests. Tests stub it; the CLI wires it to stdin.
type Interactor interface {
	Confirm(question string) bool
	Ask(question string) string
}

// Agent drives one goal at a time through the step loop. Strictly sequential:
// one model call and one tool invocation outstanding at any moment.
type Agent struct {
	cfg      config.AgentConfig
	client   ModelClient
	registry *tools.Registry
	store    *memory.Store
	operator Interactor
	logger   *zap.Logger

	// snapshots, when non-nil, receives immutable progress snapshots for the
	// background monitor. Sends never block.
	snapshots chan<- monitor.Snapshot

	sessionConsent bool
	stopRequested  atomic.Bool
	state          atomic.Int32
	stream         bool
}

// Options configures optional collaborators.
type Options struct {
	Snapshots chan<- monitor.Snapshot
	Stream    bool
}

// New builds an Agent. All collaborators are required except Options fields.
func New(cfg config.AgentConfig, client ModelClient, registry *tools.Registry, store *memory.Store, operator Interactor, logger *zap.Logger, opts Options) *Agent {
	return &Agent{
		cfg:       cfg,
		client:    client,
		registry:  registry,
		store:     store,
		operator:  operator,
		logger:    logger.Named("agent"),
		snapshots: opts.Snapshots,
		stream:    opts.Stream,
	}
}

// RequestStop asks the loop to exit after the current step completes.
// In-flight model calls and tool invocations are allowed to finish.
func (a *Agent) RequestStop() {
	a.stopRequested.Store(true)
}

// State reports the loop's current lifecycle position.
func (a *Agent) State() State {
	return State(a.state.Load())
}

func (a *Agent) setState(s State) {
	a.state.Store(int32(s))
}

// availableTools is the registry's names plus the reserved pseudo-tools.
func (a *Agent) availableTools() []string {
	return append(a.registry.Names(), ToolNoOp, ToolFinish)
}

// Execute runs the loop for one goal until finish, clarification exhaustion,
// stop request, or the step ceiling. It never returns an error: every failure
// mode ends in a clean Outcome.
func (a *Agent) Execute(ctx context.Context, goal string) Outcome {
	var history []HistoryEntry
	a.setState(StateInit)

	analysis := AnalyzeTask(goal)
	if err := a.store.StoreTask(analysis.Task); err != nil {
		a.logger.Debug("Task analysis not persisted", zap.Error(err))
	}
	a.logger.Info("Task analyzed",
		zap.Float64("complexity", analysis.Task.ComplexityScore),
		zap.Int("estimated_steps", analysis.Task.EstimatedSteps))
	for _, rec := range analysis.Recommendations {
		a.logger.Info("Recommendation", zap.String("text", rec))
	}

	if !a.cfg.NoConfirm && !a.sessionConsent {
		if !a.operator.Confirm("Grant session permission for file writes, deletes, moves, and shell execution?") {
			a.logger.Warn("Session consent declined")
			return a.terminate(goal, history, 0, "session consent declined", false)
		}
		a.sessionConsent = true
	}

	ceiling := a.cfg.MaxSteps
	if a.cfg.AdaptiveSteps {
		ceiling = EstimateSteps(goal)
		a.logger.Info("Adaptive step ceiling", zap.Int("ceiling", ceiling))
	}

	a.setState(StateStepping)
	steps := 0
	for step := 1; step <= ceiling; step++ {
		if a.stopRequested.Load() || ctx.Err() != nil {
			return a.terminate(goal, history, steps, "stop requested", false)
		}
		steps = step
		a.logger.Info("Step", zap.Int("step", step), zap.Int("ceiling", ceiling))

		memoryContext := a.store.ContextSummary(goal)
		if n := len(history); n > 0 && resultLooksFailed(history[n-1].Result) {
			if hint := a.errorHint(); hint != "" {
				if memoryContext != "" {
					memoryContext += "\n"
				}
				memoryContext += "Known recovery approach: " + hint
			}
		}
		prompt := BuildPrompt(goal, history, a.availableTools(), memoryContext, a.cfg.HistoryWindow)
		if a.cfg.Verbose {
			a.logger.Debug("Prompt", zap.String("text", prompt))
		}

		response := a.client.Generate(ctx, prompt, a.stream)
		a.recordMemory("execution", map[string]any{"goal": goal, "step": step, "response": response}, 0.5, nil, true)

		action, parseErrs := ParseResponse(response)
		if action == nil {
			a.logger.Warn("Unparsable model response, using recovery action",
				zap.Strings("errors", parseErrs))
			recovered := RecoverAction(goal, history, parseErrs)
			action = &recovered
		}

		action = a.validateAction(action)
		if action.Thought != "" {
			a.logger.Info("Thought", zap.String("text", action.Thought))
		}

		switch action.Tool {
		case ToolFinish:
			reason := toolArgString(action.Args, "reason")
			a.logger.Info("Goal achieved", zap.String("reason", reason))
			a.recordMemory("goal_accomplished", map[string]any{"goal": goal, "reason": reason}, 0.9, []string{"completion"}, true)
			out := a.terminate(goal, history, steps, "finished", true)
			out.Reason = reason
			return out

		case ToolNoOp:
			reason := toolArgString(action.Args, "reason")
			a.logger.Warn("No-op", zap.String("reason", reason))
			a.recordMemory("no_op", map[string]any{"goal": goal, "reason": reason}, 0.4, nil, false)

			a.setState(StateAwaitingClarification)
			addendum := a.operator.Ask("Provide clarification or press Enter to exit")
			if addendum == "" {
				return a.terminate(goal, history, steps, "no clarification provided", false)
			}
			goal += "\n" + addendum
			a.setState(StateStepping)
			continue
		}

		result := a.registry.Invoke(ctx, action.Tool, action.Args)
		a.logger.Info("Action executed",
			zap.String("tool", action.Tool),
			zap.String("result", truncateForLog(result)))

		history = append(history, HistoryEntry{Action: action.Tool, Args: action.Args, Result: result})
		a.recordMemory("tool_usage", map[string]any{"tool": action.Tool, "args": action.Args, "result": result}, 0.5, []string{"tool_usage"}, !resultLooksFailed(result))

		a.publishSnapshot(goal, step, ceiling, history)

		if shouldSelfTest(step, ceiling, a.cfg.SelfTestEvery) {
			a.setState(StateSelfTest)
			test := RunSelfTest(goal, history)
			a.recordMemory("self_test", map[string]any{
				"progress_score": test.ProgressScore,
				"goal_alignment": test.GoalAlignment,
			}, 0.8, []string{"self_test", "validation"}, test.ProgressScore > 0.5)
			a.logger.Info("Self-test",
				zap.Float64("progress", test.ProgressScore),
				zap.Float64("alignment", test.GoalAlignment),
				zap.Int("errors", test.Quality.Errors))

			if test.ProgressScore < a.cfg.ProgressFloor && step > 5 {
				if !a.operator.Confirm("Continue despite low progress?") {
					return a.terminate(goal, history, steps, "low progress", false)
				}
			}
			a.setState(StateStepping)
		}
	}

	a.logger.Warn("Max steps reached", zap.Int("ceiling", ceiling))
	return a.terminate(goal, history, steps, "max steps reached", false)
}

// terminate persists the session summary and moves to TERMINATED. Runs that
// did work but did not finish leave an error pattern for future lookups.
func (a *Agent) terminate(goal string, history []HistoryEntry, steps int, reason string, finished bool) Outcome {
	if !finished && steps > 0 {
		err := a.store.LearnFromError("main_loop_error",
			fmt.Sprintf("Goal: %s, Reason: %s", goal, reason),
			"Continue execution with error logging", 0.5)
		if err != nil {
			a.logger.Warn("Failed to record error pattern", zap.Error(err))
		}
	}
	a.finishRun(goal, history, reason)
	a.setState(StateTerminated)
	return Outcome{State: StateTerminated, Steps: steps, Finished: finished, Reason: reason}
}

// errorHint returns the most effective learned solution from past failures,
// or an empty string.
func (a *Agent) errorHint() string {
	for _, kind := range []string{"task_execution_error", "main_loop_error"} {
		patterns, err := a.store.ErrorSolutions(kind, "")
		if err != nil || len(patterns) == 0 {
			continue
		}
		return patterns[0].Solution
	}
	return ""
}

// validateAction corrects unknown tool names by fuzzy match or downgrades to
// no_op, and surfaces advisory argument warnings.
func (a *Agent) validateAction(action *Action) *Action {
	known := action.Tool == ToolFinish || action.Tool == ToolNoOp || a.registry.Has(action.Tool)
	if !known {
		corrected := CorrectToolName(action.Tool, a.availableTools(), a.cfg.FuzzyMatchFloor)
		if corrected != "" {
			a.logger.Warn("Corrected unknown tool name",
				zap.String("attempted", action.Tool),
				zap.String("corrected", corrected))
			action.Tool = corrected
		} else {
			a.logger.Warn("Unknown tool, forcing no_op", zap.String("attempted", action.Tool))
			action.Args = map[string]any{"reason": fmt.Sprintf("Unknown tool attempted: %s", action.Tool)}
			action.Tool = ToolNoOp
			return action
		}
	}

	for _, warning := range ValidateArgs(action.Tool, action.Args) {
		a.logger.Warn("Argument validation", zap.String("warning", warning))
	}
	return action
}

func (a *Agent) publishSnapshot(goal string, step, ceiling int, history []HistoryEntry) {
	if a.snapshots == nil {
		return
	}
	snap := monitor.Snapshot{
		Goal:     goal,
		Step:     step,
		Ceiling:  ceiling,
		Progress: EvaluateProgress(history),
		Errors:   CountQuality(history).Errors,
	}
	select {
	case a.snapshots <- snap:
	default:
	}
}

// finishRun persists the session summary; every exit path passes through it.
func (a *Agent) finishRun(goal string, history []HistoryEntry, status string) {
	a.recordMemory("session_summary", map[string]any{
		"goal":   goal,
		"steps":  len(history),
		"status": status,
	}, 0.7, []string{"session"}, status == "finished")
}

func (a *Agent) recordMemory(category string, content map[string]any, importance float64, tags []string, success bool) {
	if _, err := a.store.Record(category, content, importance, tags, success); err != nil {
		a.logger.Warn("Memory write failed", zap.String("category", category), zap.Error(err))
	}
}

func toolArgString(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	if s, ok := args[key].(string); ok {
		return s
	}
	return ""
}

func resultLooksFailed(result string) bool {
	lower := strings.ToLower(result)
	return strings.Contains(lower, "error") || strings.Contains(lower, "failed")
}

func truncateForLog(s string) string {
	if r := []rune(s); len(r) > 200 {
		return string(r[:200]) + "..."
	}
	return s
}
