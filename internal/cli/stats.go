package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	StoreFlags
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print row counts for each table",
		Long: `Print the number of users, conversations, participants and messages.

Example:
  parley stats --db ./parley.db
  parley stats --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")

	return cmd
}

func runStats(opts *StatsOptions, cmd *cobra.Command) error {
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

	stats, err := st.Stats(ctx)
	if err != nil {
		_ = out.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to read stats", err)
	}

	if opts.Format == "json" {
		return out.Success(map[string]int{
			"users":         stats.Users,
			"conversations": stats.Conversations,
			"participants":  stats.Participants,
			"messages":      stats.Messages,
		})
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "users\t%d\n", stats.Users)
	fmt.Fprintf(tw, "conversations\t%d\n", stats.Conversations)
	fmt.Fprintf(tw, "participants\t%d\n", stats.Participants)
	fmt.Fprintf(tw, "messages\t%d\n", stats.Messages)
	return tw.Flush()
}
