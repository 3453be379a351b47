package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{LookupEnv: envMap(nil)})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Environment(t *testing.T) {
	cfg, err := Load(LoadOptions{LookupEnv: envMap(map[string]string{
		"PARLEY_DB":             "/tmp/chat.db",
		"PARLEY_MAX_OPEN_CONNS": "4",
		"PARLEY_BUSY_TIMEOUT":   "250ms",
		"PARLEY_TOKEN_TTL":      "1h",
		"PARLEY_LOG_LEVEL":      "debug",
	})})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/chat.db", cfg.Database)
	assert.Equal(t, 4, cfg.MaxOpenConns)
	assert.Equal(t, 250*time.Millisecond, cfg.BusyTimeout)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_EnvironmentBadNumber(t *testing.T) {
	_, err := Load(LoadOptions{LookupEnv: envMap(map[string]string{
		"PARLEY_MAX_OPEN_CONNS": "many",
		"PARLEY_TOKEN_TTL":      "soon",
	})})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PARLEY_MAX_OPEN_CONNS")
	assert.Contains(t, err.Error(), "PARLEY_TOKEN_TTL")
}

func TestLoad_DotenvBelowEnvironment(t *testing.T) {
	envFile := writeFile(t, ".env", "PARLEY_DB=from-dotenv.db\nPARLEY_ADDR=0.0.0.0:9000\n")

	cfg, err := Load(LoadOptions{
		EnvFile:   envFile,
		LookupEnv: envMap(map[string]string{"PARLEY_DB": "from-env.db"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.Database)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
}

func TestLoad_MissingDotenvIgnored(t *testing.T) {
	_, err := Load(LoadOptions{
		EnvFile:   filepath.Join(t.TempDir(), "absent.env"),
		LookupEnv: envMap(nil),
	})
	assert.NoError(t, err)
}

func TestLoad_CUEFileOverridesEnvironment(t *testing.T) {
	file := writeFile(t, "parley.cue", `
database:       "from-file.db"
busy_timeout:   "2s"
allowed_origin: "http://localhost:5173"
bcrypt_cost:    6
`)

	cfg, err := Load(LoadOptions{
		ConfigFile: file,
		LookupEnv:  envMap(map[string]string{"PARLEY_DB": "from-env.db", "PARLEY_ADDR": "127.0.0.1:1"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "from-file.db", cfg.Database)
	assert.Equal(t, 2*time.Second, cfg.BusyTimeout)
	assert.Equal(t, "http://localhost:5173", cfg.AllowedOrigin)
	assert.Equal(t, 6, cfg.BcryptCost)
	assert.Equal(t, "127.0.0.1:1", cfg.Addr, "fields absent from the file keep the env value")
}

func TestLoad_CUESchemaViolations(t *testing.T) {
	tests := map[string]string{
		"unknown field":  `databse: "typo.db"`,
		"wrong type":     `max_open_conns: "two"`,
		"out of range":   `bcrypt_cost: 2`,
		"bad level":      `log_level: "loud"`,
		"empty database": `database: ""`,
		"bad duration":   `token_ttl: "forever"`,
		"not concrete":   `max_open_conns: int`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			file := writeFile(t, "parley.cue", content)
			_, err := Load(LoadOptions{ConfigFile: file, LookupEnv: envMap(nil)})
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.cue"), LookupEnv: envMap(nil)})
	assert.Error(t, err)
}

func TestValidate_ReportsAll(t *testing.T) {
	cfg := Default()
	cfg.Database = ""
	cfg.MaxOpenConns = 0
	cfg.LogLevel = "chatty"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database")
	assert.Contains(t, err.Error(), "max open conns")
	assert.Contains(t, err.Error(), "log level")
}

func TestSlogLevel_UnknownIsInfo(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "chatty"
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}
