package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/parley/internal/store"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "schema",
		Short:         "Print the SQL schema applied on open",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootOpts.Format == "json" {
				return rootOpts.formatter(cmd).Success(map[string]string{"schema": store.Schema()})
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), store.Schema())
			return err
		},
	}
}
