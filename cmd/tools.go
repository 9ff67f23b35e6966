package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/drover/internal/observability"
	"github.com/xkilldash9x/drover/internal/tools"
)

// newToolsCmd creates the `tools` command, which lists the action surface the
// loop exposes to the model.
func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Lists the available tools and their descriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := tools.NewRegistry(tools.Deps{Logger: observability.GetLogger()})
			out := cmd.OutOrStdout()
			names := registry.Names()
			fmt.Fprintf(out, "%d tools available:\n\n", len(names))
			for _, name := range names {
				fmt.Fprintf(out, "  %-28s %s\n", name, registry.Describe(name))
			}
			return nil
		},
	}
}
