package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// maintenanceGoals is the default work queue for unattended mode, cycled
// continuously until a stop is requested.
var maintenanceGoals = []string{
	"List the current directory and summarize what the workspace contains",
	"Check memory statistics and report on stored knowledge",
	"Find files modified recently and note anything unusual",
	"Review the current directory structure for organization improvements",
}

// Runner cycles through a goal queue indefinitely. Intended for unattended
// operation; each goal runs through the normal agent loop.
type Runner struct {
	agent  *Agent
	logger *zap.Logger
	goals  []string
	// pause between goals, shortened in tests
	cooldown time.Duration
}

// NewRunner builds a Runner over the default maintenance queue.
func NewRunner(agent *Agent, logger *zap.Logger) *Runner {
	return &Runner{
		agent:    agent,
		logger:   logger.Named("runner"),
		goals:    maintenanceGoals,
		cooldown: 30 * time.Second,
	}
}

// SetGoals replaces the work queue. Empty input keeps the default.
func (r *Runner) SetGoals(goals []string) {
	if len(goals) > 0 {
		r.goals = goals
	}
}

// Run executes goals in a loop until the context is cancelled. Each completed
// goal is followed by a cooldown so an idle queue does not spin.
func (r *Runner) Run(ctx context.Context) {
	cycle := 0
	for {
		for _, goal := range r.goals {
			if ctx.Err() != nil {
				r.logger.Info("Runner stopping", zap.Int("cycles", cycle))
				return
			}
			r.logger.Info("Starting maintenance goal", zap.String("goal", goal), zap.Int("cycle", cycle))
			outcome := r.agent.Execute(ctx, goal)
			r.logger.Info("Goal finished",
				zap.String("reason", outcome.Reason),
				zap.Int("steps", outcome.Steps),
				zap.Bool("finished", outcome.Finished))

			if !outcome.Finished {
				err := r.agent.store.LearnFromError("task_execution_error",
					fmt.Sprintf("Goal: %s, Error: %s", goal, outcome.Reason),
					"Review task requirements and try alternative approach", 0.3)
				if err != nil {
					r.logger.Warn("Failed to record error pattern", zap.Error(err))
				}
			}

			select {
			case <-ctx.Done():
				r.logger.Info("Runner stopping", zap.Int("cycles", cycle))
				return
			case <-time.After(r.cooldown):
			}
		}
		cycle++
	}
}
