package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/parley/internal/router"
)

// CallOptions holds flags for the call command.
type CallOptions struct {
	*RootOptions
	StoreFlags
	Payload        string
	UserID         int64
	Username       string
	ConversationID int64
}

// NewCallCommand creates the call command.
func NewCallCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CallOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "call <operation>",
		Short: "Run one operation against the database",
		Long: `Dispatch a single operation through the router and print its envelope.

The session flags stand in for the logged-in user and the open
conversation; payload ids left at zero fall back to them.

Exit codes:
  0 - Envelope has success=true
  1 - Envelope has success=false
  2 - Command error (unknown operation, bad payload, unopenable database)

Examples:
  parley call user-register --payload '{"username":"alice","email":"a@example.com","password":"pw"}'
  parley call save-message --user-id 1 --conversation-id 1 --payload '{"messageText":"hi"}'
  parley call get-messages --payload 1 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().StringVar(&opts.Payload, "payload", "", "operation payload as JSON")
	cmd.Flags().Int64Var(&opts.UserID, "user-id", 0, "session user id")
	cmd.Flags().StringVar(&opts.Username, "username", "", "session username")
	cmd.Flags().Int64Var(&opts.ConversationID, "conversation-id", 0, "session conversation id")

	return cmd
}

func runCall(opts *CallOptions, op string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	if !router.Has(op) {
		_ = out.Error(ErrCodeUnknownOp, fmt.Sprintf("unknown operation %q", op), router.Operations())
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown operation %q", op))
	}

	var payload json.RawMessage
	if p := strings.TrimSpace(opts.Payload); p != "" {
		if !json.Valid([]byte(p)) {
			_ = out.Error(ErrCodeInvalidPayload, "--payload is not valid JSON", nil)
			return NewExitError(ExitCommandError, "invalid --payload JSON")
		}
		payload = json.RawMessage(p)
	}

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

	tokens, err := newTokenIssuer(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sess := router.Session{
		UserID:         opts.UserID,
		Username:       opts.Username,
		ConversationID: opts.ConversationID,
	}
	env := newRouter(st, cfg, tokens, logger).Dispatch(ctx, op, sess, payload)
	if err := out.Envelope(env); err != nil {
		return WrapExitError(ExitCommandError, "failed to write envelope", err)
	}

	if f := env.Failure(); f != nil {
		return NewExitError(ExitFailure, fmt.Sprintf("%s failed (%s): %s", op, f.Kind, f.Message))
	}
	return nil
}
