package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerStopsOnCancel(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"thought": "done", "tool": "finish", "args": {"reason": "ok"}}`,
	}}
	h := newHarness(t, client, &stubOperator{consent: true}, nil)

	r := NewRunner(h.agent, h.agent.logger)
	r.SetGoals([]string{"quick check"})
	r.cooldown = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()

	// Let at least one goal complete, then stop.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop after cancellation")
	}
	assert.Greater(t, client.calls, 0, "at least one goal executed")
}

func TestRunnerLearnsFromFailedGoal(t *testing.T) {
	// A goal that ends without finishing feeds an error pattern so later
	// cycles can look the failure up.
	client := &scriptedClient{responses: []string{
		`{"thought": "stuck", "tool": "no_op", "args": {"reason": "cannot proceed"}}`,
	}}
	operator := &stubOperator{consent: true, clarification: ""}
	h := newHarness(t, client, operator, nil)

	r := NewRunner(h.agent, h.agent.logger)
	r.SetGoals([]string{"impossible maintenance goal"})
	r.cooldown = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		patterns, err := h.store.ErrorSolutions("task_execution_error", "impossible maintenance goal")
		return err == nil && len(patterns) > 0
	}, 5*time.Second, 10*time.Millisecond, "failed goal recorded as an error pattern")

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop after cancellation")
	}

	patterns, err := h.store.ErrorSolutions("task_execution_error", "")
	require.NoError(t, err)
	require.NotEmpty(t, patterns)
	assert.Contains(t, patterns[0].ErrorContext, "impossible maintenance goal")
	assert.Contains(t, patterns[0].ErrorContext, "no clarification provided")
	assert.Equal(t, "Review task requirements and try alternative approach", patterns[0].Solution)
}

func TestRunnerSetGoalsKeepsDefaultOnEmpty(t *testing.T) {
	client := &scriptedClient{responses: []string{"x"}}
	h := newHarness(t, client, &stubOperator{consent: true}, nil)

	r := NewRunner(h.agent, h.agent.logger)
	r.SetGoals(nil)
	assert.NotEmpty(t, r.goals)
}
