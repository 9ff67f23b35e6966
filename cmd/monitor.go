package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/drover/internal/memory"
	"github.com/xkilldash9x/drover/internal/monitor"
	"github.com/xkilldash9x/drover/internal/observability"
)

// newMonitorCmd creates the `monitor` command: a standalone health watcher
// over the memory store, with periodic eviction, until interrupted.
func newMonitorCmd() *cobra.Command {
	var interval time.Duration

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Watches memory store health and runs periodic eviction",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			if interval > 0 {
				cfg.Monitor.Interval = interval
			}

			store, err := memory.New(cfg.Memory, logger)
			if err != nil {
				return fmt.Errorf("failed to open memory store: %w", err)
			}
			defer store.Close()

			mon := monitor.New(cfg.Monitor.Interval, store, logger)
			mon.Start(cmd.Context())
			defer mon.Stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Monitoring %s every %s. Press Ctrl+C to stop.\n",
				cfg.Memory.Path, cfg.Monitor.Interval)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			select {
			case <-sigCh:
			case <-cmd.Context().Done():
			}
			return nil
		},
	}

	monitorCmd.Flags().DurationVar(&interval, "interval", 0, "health check interval (defaults to monitor.interval)")
	return monitorCmd
}
