package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/parley/internal/router"
)

// Scenario is a scripted sequence of operations with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps are dispatched in order against one store.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step dispatches one operation.
type Step struct {
	// Op is the operation name, e.g. "save-message".
	Op string `yaml:"op"`

	// Payload is marshaled to JSON as is. Scalars are allowed for
	// operations that take a bare id.
	Payload any `yaml:"payload,omitempty"`

	// Session supplies fallback ids for the call.
	Session StepSession `yaml:"session,omitempty"`

	// Expect is checked against the returned envelope. Nil skips the check.
	Expect *Expect `yaml:"expect,omitempty"`
}

// StepSession mirrors router.Session in YAML form.
type StepSession struct {
	UserID         int64  `yaml:"user_id,omitempty"`
	Username       string `yaml:"username,omitempty"`
	ConversationID int64  `yaml:"conversation_id,omitempty"`
}

func (s StepSession) session() router.Session {
	return router.Session{
		UserID:         s.UserID,
		Username:       s.Username,
		ConversationID: s.ConversationID,
	}
}

// Expect describes the envelope a step should produce.
type Expect struct {
	// Success is the expected success flag.
	Success bool `yaml:"success"`

	// Kind is the expected failure kind. Only checked when Success is false.
	Kind string `yaml:"kind,omitempty"`

	// Data is a subset of the success envelope's fields.
	Data map[string]any `yaml:"data,omitempty"`
}

// Assertion validates the trace or the final database state.
type Assertion struct {
	// Type is one of op_succeeded, op_order, op_count or final_state.
	Type string `yaml:"type"`

	// Op is used by op_succeeded and op_count.
	Op string `yaml:"op,omitempty"`

	// Ops is the expected order (op_order).
	Ops []string `yaml:"ops,omitempty"`

	// Count is the expected number of occurrences (op_count).
	Count int `yaml:"count,omitempty"`

	// Table, Where and Expect select and check a row (final_state).
	Table  string         `yaml:"table,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertOpSucceeded = "op_succeeded"
	AssertOpOrder     = "op_order"
	AssertOpCount     = "op_count"
	AssertFinalState  = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Op == "" {
			return fmt.Errorf("step[%d]: op is required", i)
		}
		if !router.Has(step.Op) {
			return fmt.Errorf("step[%d]: unknown operation %q", i, step.Op)
		}
		if step.Expect != nil && step.Expect.Success && step.Expect.Kind != "" {
			return fmt.Errorf("step[%d]: kind is only valid for expected failures", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion[%d]: %w", i, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertOpSucceeded:
		if a.Op == "" {
			return fmt.Errorf("op_succeeded requires op")
		}
	case AssertOpOrder:
		if len(a.Ops) < 2 {
			return fmt.Errorf("op_order requires at least two ops")
		}
	case AssertOpCount:
		if a.Op == "" {
			return fmt.Errorf("op_count requires op")
		}
		if a.Count < 0 {
			return fmt.Errorf("op_count requires a non-negative count")
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("final_state requires table")
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("final_state requires expect")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
