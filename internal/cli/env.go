package cli

import (
	"io"
	"log/slog"

	"github.com/roach88/parley/internal/auth"
	"github.com/roach88/parley/internal/config"
	"github.com/roach88/parley/internal/router"
	"github.com/roach88/parley/internal/store"
)

// StoreFlags are the flags shared by commands that open the database.
type StoreFlags struct {
	Database string // overrides the configured database path
}

// loadConfig resolves the config and applies flag overrides.
func loadConfig(opts *RootOptions, sf StoreFlags) (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		EnvFile:    opts.EnvFile,
		ConfigFile: opts.ConfigFile,
	})
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if sf.Database != "" {
		cfg.Database = sf.Database
	}
	return cfg, nil
}

// newLogger builds the text logger used by every command. --verbose
// forces debug level; otherwise the configured level applies.
func newLogger(w io.Writer, cfg config.Config, verbose bool) *slog.Logger {
	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openStore opens the configured database.
func openStore(cfg config.Config, logger *slog.Logger) (*store.Store, error) {
	logger.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database,
		store.WithMaxOpenConns(cfg.MaxOpenConns),
		store.WithBusyTimeout(cfg.BusyTimeout),
	)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// closeStore closes st and logs, rather than returns, any error.
func closeStore(st *store.Store, logger *slog.Logger) {
	if err := st.Close(); err != nil {
		logger.Error("error closing database", "error", err)
	}
}

// newTokenIssuer returns nil when no secret is configured; logins then
// succeed without a token.
func newTokenIssuer(cfg config.Config) (*auth.TokenIssuer, error) {
	if cfg.TokenSecret == "" {
		return nil, nil
	}
	issuer, err := auth.NewTokenIssuer(cfg.TokenSecret, auth.WithTokenTTL(cfg.TokenTTL))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create token issuer", err)
	}
	return issuer, nil
}

// newRouter wires a router over st from cfg.
func newRouter(st *store.Store, cfg config.Config, tokens *auth.TokenIssuer, logger *slog.Logger) *router.Router {
	opts := []router.Option{
		router.WithLogger(logger),
		router.WithPasswordHasher(auth.NewPasswordHasher(cfg.BcryptCost)),
	}
	if tokens != nil {
		opts = append(opts, router.WithTokenIssuer(tokens))
	}
	return router.New(st, opts...)
}
