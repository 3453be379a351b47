package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Scenarios(t *testing.T) {
	for _, name := range []string{"chat_flow", "soft_delete", "references"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestResult_Summary(t *testing.T) {
	r := NewResult()
	r.AddTrace(TraceEvent{Step: 1, Op: "user-register", Success: true})
	r.AddTrace(TraceEvent{Step: 2, Op: "user-login", Kind: "Unauthorized"})

	want := "scenario: demo\n1 user-register ok\n2 user-login fail Unauthorized\n"
	assert.Equal(t, want, r.Summary("demo"))
}
