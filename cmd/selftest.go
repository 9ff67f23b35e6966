package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/drover/internal/agent"
	"github.com/xkilldash9x/drover/internal/config"
	"github.com/xkilldash9x/drover/internal/memory"
	"github.com/xkilldash9x/drover/internal/observability"
	"github.com/xkilldash9x/drover/internal/safety"
	"github.com/xkilldash9x/drover/internal/tools"
)

// selfTestPassFloor is the fraction of checks that must pass for a zero exit.
const selfTestPassFloor = 0.8

// newSelfTestCmd creates the `selftest` command, a one-shot diagnostic suite
// run against throwaway state.
func newSelfTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Runs the diagnostic suite against a throwaway memory store",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			scratch, err := os.MkdirTemp("", "drover-selftest-*")
			if err != nil {
				return fmt.Errorf("failed to create scratch directory: %w", err)
			}
			defer os.RemoveAll(scratch)

			memCfg := cfg.Memory
			memCfg.Path = filepath.Join(scratch, "selftest.db")
			store, err := memory.New(memCfg, logger)
			if err != nil {
				return fmt.Errorf("failed to open scratch memory store: %w", err)
			}
			defer store.Close()

			safetyCfg := config.SafetyConfig{
				AuditLogPath: filepath.Join(scratch, "selftest_safety_log.json"),
				AuditLogCap:  cfg.Safety.AuditLogCap,
			}
			registry := tools.NewRegistry(tools.Deps{
				Memory: store,
				Safety: safety.New(safetyCfg, logger),
				Logger: logger,
			})

			report := agent.RunDiagnostics(cmd.Context(), registry, store)
			out := cmd.OutOrStdout()
			for _, check := range report.Checks {
				status := "PASS"
				if !check.Passed {
					status = "FAIL"
				}
				fmt.Fprintf(out, "[%s] %-30s %s\n", status, check.Name, check.Detail)
			}
			fmt.Fprintf(out, "\nPass rate: %.0f%%\n", report.PassRate()*100)
			if report.PassRate() < selfTestPassFloor {
				return fmt.Errorf("self-test pass rate %.0f%% below required %.0f%%",
					report.PassRate()*100, selfTestPassFloor*100)
			}
			return nil
		},
	}
}
