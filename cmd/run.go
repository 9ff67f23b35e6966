package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/drover/internal/agent"
	"github.com/xkilldash9x/drover/internal/llmclient"
	"github.com/xkilldash9x/drover/internal/memory"
	"github.com/xkilldash9x/drover/internal/monitor"
	"github.com/xkilldash9x/drover/internal/observability"
	"github.com/xkilldash9x/drover/internal/safety"
	"github.com/xkilldash9x/drover/internal/tools"
)

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	var (
		timeout     time.Duration
		interactive bool
		stream      bool
		infinite    bool
	)

	runCmd := &cobra.Command{
		Use:   "run [goal...]",
		Short: "Executes a single goal, or cycles maintenance goals with --infinite",
		Args: func(cmd *cobra.Command, args []string) error {
			if infinite, _ := cmd.Flags().GetBool("infinite"); !infinite && len(args) < 1 {
				return fmt.Errorf("a goal is required unless --infinite is set")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			// Flag overrides take precedence over file and environment values.
			flags := cmd.Flags()
			if flags.Changed("model") {
				cfg.Model.Name, _ = flags.GetString("model")
			}
			if flags.Changed("max-steps") {
				cfg.Agent.MaxSteps, _ = flags.GetInt("max-steps")
			}
			if flags.Changed("adaptive-steps") {
				cfg.Agent.AdaptiveSteps, _ = flags.GetBool("adaptive-steps")
			}
			if flags.Changed("verbose") {
				cfg.Agent.Verbose, _ = flags.GetBool("verbose")
			}
			if flags.Changed("no-confirm") {
				cfg.Agent.NoConfirm, _ = flags.GetBool("no-confirm")
			}
			if flags.Changed("stream") {
				cfg.Model.Stream = stream
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger.Info("Starting run",
				zap.String("model", cfg.Model.Name),
				zap.Int("max_steps", cfg.Agent.MaxSteps),
				zap.Bool("infinite", infinite),
			)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if timeout > 0 {
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			client := llmclient.New(cfg.Model, logger)
			healthCtx, healthCancel := context.WithTimeout(ctx, 10*time.Second)
			defer healthCancel()
			if err := client.CheckHealth(healthCtx); err != nil {
				return fmt.Errorf("model server health check failed: %w", err)
			}

			store, err := memory.New(cfg.Memory, logger)
			if err != nil {
				return fmt.Errorf("failed to open memory store: %w", err)
			}
			defer store.Close()

			operator := newConsoleInteractor(os.Stdin, os.Stdout, interactive)
			safetyMgr := safety.New(cfg.Safety, logger)
			registry := tools.NewRegistry(tools.Deps{
				Memory: store,
				Safety: safetyMgr,
				Logger: logger,
				Confirm: func(operation, details string, assessment safety.Assessment) bool {
					if cfg.Agent.NoConfirm {
						return true
					}
					question := fmt.Sprintf("%s requires approval (%s risk): %s. Proceed?",
						operation, assessment.Level, details)
					return operator.Confirm(question)
				},
			})

			opts := agent.Options{Stream: cfg.Model.Stream}
			var mon *monitor.Monitor
			if infinite {
				mon = monitor.New(cfg.Monitor.Interval, store, logger)
				mon.Start(ctx)
				defer mon.Stop()
				opts.Snapshots = mon.Snapshots()
			}

			ag := agent.New(cfg.Agent, client, registry, store, operator, logger, opts)

			// First interrupt asks the loop to stop after the current step;
			// a second one cancels outright.
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case <-sigCh:
					logger.Warn("Interrupt received, stopping after current step")
					ag.RequestStop()
					select {
					case <-sigCh:
						cancel()
					case <-ctx.Done():
					}
				case <-ctx.Done():
				}
			}()

			if infinite {
				runner := agent.NewRunner(ag, logger)
				runner.Run(ctx)
				return nil
			}

			goal := strings.Join(args, " ")
			outcome := ag.Execute(ctx, goal)

			fmt.Fprintf(cmd.OutOrStdout(), "\nRun finished after %d steps: %s\n", outcome.Steps, outcome.Reason)
			if !outcome.Finished {
				return fmt.Errorf("goal not accomplished: %s", outcome.Reason)
			}
			return nil
		},
	}

	runCmd.Flags().StringP("model", "m", "", "model name to request from the inference server")
	runCmd.Flags().IntP("max-steps", "n", 0, "hard ceiling on loop steps")
	runCmd.Flags().Bool("adaptive-steps", true, "scale the step ceiling with estimated goal complexity")
	runCmd.Flags().DurationVar(&timeout, "timeout", 0, "overall deadline for the run (0 for none)")
	runCmd.Flags().BoolP("verbose", "v", false, "log each prompt and raw model response")
	runCmd.Flags().BoolVarP(&stream, "stream", "s", false, "stream model responses")
	runCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "allow the loop to ask for clarification on stdin")
	runCmd.Flags().Bool("no-confirm", false, "skip all operator confirmation prompts")
	runCmd.Flags().BoolVar(&infinite, "infinite", false, "cycle built-in maintenance goals until interrupted")

	return runCmd
}

// consoleInteractor answers consent and clarification questions on the
// terminal. Clarification prompts are suppressed outside interactive mode so
// unattended runs never block on stdin.
type consoleInteractor struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

func newConsoleInteractor(in io.Reader, out io.Writer, interactive bool) *consoleInteractor {
	return &consoleInteractor{in: bufio.NewReader(in), out: out, interactive: interactive}
}

func (c *consoleInteractor) Confirm(question string) bool {
	fmt.Fprintf(c.out, "%s [y/N]: ", question)
	line, err := c.in.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (c *consoleInteractor) Ask(question string) string {
	if !c.interactive {
		return ""
	}
	fmt.Fprintf(c.out, "%s\n> ", question)
	line, err := c.in.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}
