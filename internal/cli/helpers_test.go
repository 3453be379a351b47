package cli

import (
	"bytes"
	"path/filepath"
	"testing"
)

// execute runs the root command with args and returns what it wrote to
// stdout. The dotenv file is disabled and bcrypt runs at minimum cost.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PARLEY_BCRYPT_COST", "4")

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--env-file="))

	err := cmd.Execute()
	return out.String(), err
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "parley.db")
}
