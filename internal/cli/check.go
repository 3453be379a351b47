package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/parley/internal/router"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	StoreFlags
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the database is reachable",
		Long: `Open the database and run test-db-connection against it.

Exit codes:
  0 - Connected
  1 - Store opened but did not answer
  2 - Command error (config or open failure)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")

	return cmd
}

func runCheck(opts *CheckOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	cfg, err := loadConfig(opts.RootOptions, opts.StoreFlags)
	if err != nil {
		_ = out.Error(ErrCodeConfig, err.Error(), nil)
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg, opts.Verbose)

	st, err := openStore(cfg, logger)
	if err != nil {
		_ = out.Error(ErrCodeStoreOpen, err.Error(), nil)
		return err
	}
	defer closeStore(st, logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	r := newRouter(st, cfg, nil, logger)
	res := r.TestConnection(ctx, router.Session{}, router.NoPayload{})
	v, ok := res.Value()
	connected := ok && v.Connected

	if opts.Format == "json" {
		if err := out.Success(map[string]any{"database": cfg.Database, "connected": connected}); err != nil {
			return err
		}
	} else {
		status := "connected"
		if !connected {
			status = "not connected"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", cfg.Database, status)
	}

	if !connected {
		return NewExitError(ExitFailure, "database did not answer")
	}
	return nil
}
