package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/parley/internal/router"
)

// NewOpsCommand creates the ops command.
func NewOpsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ops",
		Short:         "List operation names",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ops := router.Operations()
			if rootOpts.Format == "json" {
				return rootOpts.formatter(cmd).Success(map[string]any{"operations": ops})
			}
			for _, op := range ops {
				fmt.Fprintln(cmd.OutOrStdout(), op)
			}
			return nil
		},
	}
}
