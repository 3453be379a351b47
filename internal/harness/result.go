package harness

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TraceEvent records one dispatched step and the envelope it produced.
type TraceEvent struct {
	Step     int             `json:"step"`
	Op       string          `json:"op"`
	Success  bool            `json:"success"`
	Kind     string          `json:"kind,omitempty"`
	Envelope json.RawMessage `json:"envelope"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in dispatch order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step outcome to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

// Summary renders the trace one step per line:
//
//	scenario: <name>
//	1 user-register ok
//	2 user-login fail Unauthorized
func (r *Result) Summary(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	for _, ev := range r.Trace {
		if ev.Success {
			fmt.Fprintf(&b, "%d %s ok\n", ev.Step, ev.Op)
			continue
		}
		fmt.Fprintf(&b, "%d %s fail %s\n", ev.Step, ev.Op, ev.Kind)
	}
	return b.String()
}
