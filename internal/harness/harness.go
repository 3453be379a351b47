package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/parley/internal/auth"
	"github.com/roach88/parley/internal/router"
	"github.com/roach88/parley/internal/store"
	"github.com/roach88/parley/internal/testutil"
)

// Harness drives a router over a scenario's private store.
type Harness struct {
	router *router.Router
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh database file in a temporary directory
// that is removed afterwards. Timestamps come from a stepping clock and
// request ids from a sequential generator, so reruns are identical.
//
// An error is returned only when the scenario cannot be executed at all.
// Failed expectations and assertions are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "parley-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario dir: %w", err)
	}
	defer os.RemoveAll(dir)

	clock := testutil.NewSteppingClock()
	st, err := store.Open(filepath.Join(dir, "scenario.db"), store.WithClock(clock.Now))
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in scenarios
	h := &Harness{
		router: router.New(st,
			router.WithLogger(logger),
			router.WithPasswordHasher(auth.NewPasswordHasher(bcrypt.MinCost)),
			router.WithIDGenerator(testutil.NewSequentialIDGenerator("")),
		),
		logger: logger,
	}

	ctx := context.Background()
	result := NewResult()
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeSteps dispatches every step and checks its expect clause.
// A failed expectation does not stop the scenario.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		n := i + 1

		payload, err := marshalPayload(step.Payload)
		if err != nil {
			return fmt.Errorf("step %d: failed to encode payload: %w", n, err)
		}

		env := h.router.Dispatch(ctx, step.Op, step.Session.session(), payload)
		raw, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("step %d: failed to encode envelope: %w", n, err)
		}

		ev := TraceEvent{Step: n, Op: step.Op, Success: env.OK(), Envelope: raw}
		if f := env.Failure(); f != nil {
			ev.Kind = string(f.Kind)
		}
		result.AddTrace(ev)

		if step.Expect != nil {
			for _, msg := range checkExpect(n, step.Op, step.Expect, raw) {
				result.AddError(msg)
			}
		}

		h.logger.Info("scenario step completed",
			"step", n,
			"op", step.Op,
			"success", ev.Success,
			"kind", ev.Kind,
		)
	}
	return nil
}

func marshalPayload(p any) (json.RawMessage, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// checkExpect compares an envelope with the step's expectation.
func checkExpect(n int, op string, exp *Expect, raw json.RawMessage) []string {
	var env map[string]any
	if err := json.Unmarshal(raw, &env); err != nil {
		return []string{fmt.Sprintf("step %d (%s): envelope is not an object: %v", n, op, err)}
	}

	success, _ := env["success"].(bool)
	if success != exp.Success {
		return []string{fmt.Sprintf("step %d (%s): expected success=%t, got envelope %s", n, op, exp.Success, raw)}
	}

	var errs []string
	if !exp.Success && exp.Kind != "" && env["kind"] != exp.Kind {
		errs = append(errs, fmt.Sprintf("step %d (%s): expected kind %q, got %v", n, op, exp.Kind, env["kind"]))
	}

	if len(exp.Data) > 0 {
		want, err := normalize(exp.Data)
		if err != nil {
			return append(errs, fmt.Sprintf("step %d (%s): invalid expected data: %v", n, op, err))
		}
		if path, ok := matchSubset(env, want, ""); !ok {
			errs = append(errs, fmt.Sprintf("step %d (%s): data mismatch at %s, got envelope %s", n, op, path, raw))
		}
	}
	return errs
}

// normalize round-trips YAML values through JSON so that numbers compare
// as float64 on both sides.
func normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
