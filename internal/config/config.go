// Package config resolves parley's runtime settings.
//
// Precedence, lowest first: built-in defaults, a .env file, PARLEY_*
// environment variables, a CUE config file. Command-line flags are
// applied on top by the CLI.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/joho/godotenv"
)

//go:embed schema.cue
var schemaCUE string

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "PARLEY_"

// Config holds resolved settings.
type Config struct {
	Database      string
	MaxOpenConns  int
	BusyTimeout   time.Duration
	Addr          string
	AllowedOrigin string
	TokenSecret   string
	TokenTTL      time.Duration
	BcryptCost    int
	LogLevel      string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Database:      "parley.db",
		MaxOpenConns:  1,
		BusyTimeout:   5 * time.Second,
		Addr:          "127.0.0.1:7420",
		AllowedOrigin: "",
		TokenSecret:   "",
		TokenTTL:      24 * time.Hour,
		BcryptCost:    10,
		LogLevel:      "info",
	}
}

// LoadOptions selects the sources consulted by Load.
type LoadOptions struct {
	// EnvFile is a dotenv file. Missing files are ignored.
	EnvFile string

	// ConfigFile is a CUE file validated against the embedded schema.
	// Empty skips it; a missing file is an error.
	ConfigFile string

	// LookupEnv replaces os.LookupEnv (for testing).
	LookupEnv func(string) (string, bool)
}

// Load resolves a Config from defaults, the env file, the environment and
// the config file, in that order.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	dotenv := map[string]string{}
	if opts.EnvFile != "" {
		m, err := godotenv.Read(opts.EnvFile)
		switch {
		case err == nil:
			dotenv = m
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read env file %s: %w", opts.EnvFile, err)
		}
	}

	// Real environment wins over the dotenv file.
	env := func(key string) (string, bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			return v, true
		}
		v, ok := dotenv[EnvPrefix+key]
		return v, ok
	}
	if err := cfg.applyEnv(env); err != nil {
		return Config{}, err
	}

	if opts.ConfigFile != "" {
		data, err := os.ReadFile(opts.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := cfg.applyCUE(opts.ConfigFile, data); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(env func(string) (string, bool)) error {
	strVar := func(key string, dst *string) {
		if v, ok := env(key); ok {
			*dst = v
		}
	}
	intVar := func(key string, dst *int) error {
		v, ok := env(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
		return nil
	}
	durVar := func(key string, dst *time.Duration) error {
		v, ok := env(key)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = d
		return nil
	}

	strVar("DB", &c.Database)
	strVar("ADDR", &c.Addr)
	strVar("ALLOWED_ORIGIN", &c.AllowedOrigin)
	strVar("TOKEN_SECRET", &c.TokenSecret)
	strVar("LOG_LEVEL", &c.LogLevel)

	return errors.Join(
		intVar("MAX_OPEN_CONNS", &c.MaxOpenConns),
		intVar("BCRYPT_COST", &c.BcryptCost),
		durVar("BUSY_TIMEOUT", &c.BusyTimeout),
		durVar("TOKEN_TTL", &c.TokenTTL),
	)
}

// fileConfig mirrors #Config in schema.cue.
type fileConfig struct {
	Database      *string `json:"database"`
	MaxOpenConns  *int    `json:"max_open_conns"`
	BusyTimeout   *string `json:"busy_timeout"`
	Addr          *string `json:"addr"`
	AllowedOrigin *string `json:"allowed_origin"`
	TokenSecret   *string `json:"token_secret"`
	TokenTTL      *string `json:"token_ttl"`
	BcryptCost    *int    `json:"bcrypt_cost"`
	LogLevel      *string `json:"log_level"`
}

func (c *Config) applyCUE(filename string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if schema.Err() != nil {
		return fmt.Errorf("compile config schema: %w", schema.Err())
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if v.Err() != nil {
		return fmt.Errorf("parse %s: %w", filename, v.Err())
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validate %s: %w", filename, err)
	}

	var fc fileConfig
	if err := unified.Decode(&fc); err != nil {
		return fmt.Errorf("decode %s: %w", filename, err)
	}

	setStr := func(src *string, dst *string) {
		if src != nil {
			*dst = *src
		}
	}
	setInt := func(src *int, dst *int) {
		if src != nil {
			*dst = *src
		}
	}
	setDur := func(field string, src *string, dst *time.Duration) error {
		if src == nil {
			return nil
		}
		d, err := time.ParseDuration(*src)
		if err != nil {
			return fmt.Errorf("%s: %s: %w", filename, field, err)
		}
		*dst = d
		return nil
	}

	setStr(fc.Database, &c.Database)
	setStr(fc.Addr, &c.Addr)
	setStr(fc.AllowedOrigin, &c.AllowedOrigin)
	setStr(fc.TokenSecret, &c.TokenSecret)
	setStr(fc.LogLevel, &c.LogLevel)
	setInt(fc.MaxOpenConns, &c.MaxOpenConns)
	setInt(fc.BcryptCost, &c.BcryptCost)

	return errors.Join(
		setDur("busy_timeout", fc.BusyTimeout, &c.BusyTimeout),
		setDur("token_ttl", fc.TokenTTL, &c.TokenTTL),
	)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Database == "" {
		errs = append(errs, errors.New("database path must not be empty"))
	}
	if c.MaxOpenConns < 1 {
		errs = append(errs, fmt.Errorf("max open conns must be at least 1, got %d", c.MaxOpenConns))
	}
	if c.BusyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("busy timeout must be positive, got %s", c.BusyTimeout))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("token ttl must be positive, got %s", c.TokenTTL))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("bcrypt cost must be in [4, 31], got %d", c.BcryptCost))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel returns LogLevel as a slog.Level. Unknown values map to Info.
func (c Config) SlogLevel() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}
