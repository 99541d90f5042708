package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fastlog/internal/chrono"
	"github.com/roach88/fastlog/internal/engine"
	"github.com/roach88/fastlog/internal/fast"
)

// DefaultClock is the fake clock's starting instant when a scenario sets none.
const DefaultClock = "2025-01-01T08:00:00Z"

// Scenario is a scripted sequence of lifecycle operations with expected
// results, run against a fresh store.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are keyed by it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Clock is the fake clock's starting instant (RFC 3339).
	// Defaults to DefaultClock.
	Clock string `yaml:"clock,omitempty"`

	// Zone is the engine's default zone. Defaults to UTC.
	Zone string `yaml:"zone,omitempty"`

	// Disclose reports guard denials as ACCESS_DENIED instead of NOT_FOUND.
	Disclose bool `yaml:"disclose,omitempty"`

	// Steps run in order. A step without an expect clause must succeed.
	Steps []Step `yaml:"steps"`

	// Assertions are checked against the final state after all steps ran.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one operation.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Owner is the caller.
	Owner string `yaml:"owner,omitempty"`

	// Fast names the target: an alias bound by an earlier step's "as",
	// or a literal id.
	Fast string `yaml:"fast,omitempty"`

	// As binds the id of the fast this step returns to an alias.
	As string `yaml:"as,omitempty"`

	// At is the wall-clock time for start and end.
	At string `yaml:"at,omitempty"`

	// Zone is the zone for At, Start and End, and the value for set_zone.
	Zone string `yaml:"zone,omitempty"`

	Outcome string `yaml:"outcome,omitempty"`
	Note    string `yaml:"note,omitempty"`

	// Start and End are wall-clock times set by edit.
	Start string `yaml:"start,omitempty"`
	End   string `yaml:"end,omitempty"`

	// Clear lists fields edit removes: start, end, outcome, note.
	Clear []string `yaml:"clear,omitempty"`

	// By is the advance duration, e.g. "15s" or "2h".
	By string `yaml:"by,omitempty"`

	// Status filters list.
	Status string `yaml:"status,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the expected result of a step or the expected state of a
// fast. Only the fields given are compared.
type Expect struct {
	// Error is the expected error kind (e.g. CONFLICT). Empty means success.
	Error string `yaml:"error,omitempty"`

	// Invariant is the expected violated invariant name.
	Invariant string `yaml:"invariant,omitempty"`

	Status  string  `yaml:"status,omitempty"`
	Outcome string  `yaml:"outcome,omitempty"`
	Note    *string `yaml:"note,omitempty"`

	// Start and End are expected UTC instants (RFC 3339).
	Start string `yaml:"start,omitempty"`
	End   string `yaml:"end,omitempty"`

	// Elapsed is the expected duration in seconds at the time of the step.
	Elapsed *int64 `yaml:"elapsed,omitempty"`

	// Count is the expected number of records a list returns.
	Count *int `yaml:"count,omitempty"`

	// IDs is the expected list order, as aliases or literal ids.
	IDs []string `yaml:"ids,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	Owner string `yaml:"owner,omitempty"`
	Fast  string `yaml:"fast,omitempty"`

	// Op and Error select trace steps for trace_count.
	Op    string `yaml:"op,omitempty"`
	Error string `yaml:"error,omitempty"`

	Count int `yaml:"count,omitempty"`

	// Expect is the expected record for final_state.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Step operations.
const (
	OpStart   = "start"
	OpEnd     = "end"
	OpEdit    = "edit"
	OpDelete  = "delete"
	OpGet     = "get"
	OpList    = "list"
	OpActive  = "active"
	OpAdvance = "advance"
	OpSetZone = "set_zone"
)

// Assertion type constants.
const (
	AssertActiveCount = "active_count"
	AssertFinalState  = "final_state"
	AssertAbsent      = "absent"
	AssertTraceCount  = "trace_count"
)

var validOps = map[string]bool{
	OpStart: true, OpEnd: true, OpEdit: true, OpDelete: true, OpGet: true,
	OpList: true, OpActive: true, OpAdvance: true, OpSetZone: true,
}

var validKinds = map[string]bool{
	string(engine.KindValidation):   true,
	string(engine.KindConflict):     true,
	string(engine.KindInvalidState): true,
	string(engine.KindNotFound):     true,
	string(engine.KindAccessDenied): true,
	string(engine.KindTransient):    true,
}

var clearable = map[string]bool{"start": true, "end": true, "outcome": true, "note": true}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
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

// validateScenario checks structure only. Whether the operations succeed is
// decided by running them.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps must contain at least one step")
	}
	if s.Clock != "" {
		if _, err := time.Parse(time.RFC3339, s.Clock); err != nil {
			return fmt.Errorf("clock: %w", err)
		}
	}
	if _, err := chrono.LoadZone(s.Zone); err != nil {
		return fmt.Errorf("zone: %w", err)
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}

	return nil
}

func validateStep(step Step) error {
	if !validOps[step.Op] {
		return fmt.Errorf("unknown op %q", step.Op)
	}

	switch step.Op {
	case OpAdvance:
		d, err := time.ParseDuration(step.By)
		if err != nil {
			return fmt.Errorf("advance: by: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("advance: by must be positive")
		}
		return nil
	case OpStart:
		if err := checkLocal("at", step.At); err != nil {
			return err
		}
	case OpEnd:
		if step.Fast == "" {
			return fmt.Errorf("end: fast is required")
		}
		if err := checkLocal("at", step.At); err != nil {
			return err
		}
	case OpEdit:
		if step.Fast == "" {
			return fmt.Errorf("edit: fast is required")
		}
		for _, c := range step.Clear {
			if !clearable[c] {
				return fmt.Errorf("edit: cannot clear %q", c)
			}
		}
		if step.Start != "" {
			if err := checkLocal("start", step.Start); err != nil {
				return err
			}
		}
		if step.End != "" {
			if err := checkLocal("end", step.End); err != nil {
				return err
			}
		}
	case OpDelete, OpGet:
		if step.Fast == "" {
			return fmt.Errorf("%s: fast is required", step.Op)
		}
	case OpSetZone:
		if step.Zone == "" {
			return fmt.Errorf("set_zone: zone is required")
		}
	}

	if step.Expect != nil {
		if err := validateExpect(*step.Expect); err != nil {
			return fmt.Errorf("expect: %w", err)
		}
	}
	return nil
}

// checkLocal accepts empty input so scenarios can exercise the engine's own
// missing-time validation.
func checkLocal(field, s string) error {
	if s == "" {
		return nil
	}
	if _, err := chrono.ParseLocal(s); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}

func validateExpect(e Expect) error {
	if e.Error != "" && !validKinds[e.Error] {
		return fmt.Errorf("unknown error kind %q", e.Error)
	}
	if e.Status != "" && e.Status != string(fast.StatusActive) && e.Status != string(fast.StatusCompleted) {
		return fmt.Errorf("unknown status %q", e.Status)
	}
	for field, v := range map[string]string{"start": e.Start, "end": e.End} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(time.RFC3339, v); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertActiveCount:
		if a.Owner == "" {
			return fmt.Errorf("active_count: owner is required")
		}
	case AssertFinalState:
		if a.Fast == "" || a.Expect == nil {
			return fmt.Errorf("final_state: fast and expect are required")
		}
		return validateExpect(*a.Expect)
	case AssertAbsent:
		if a.Fast == "" {
			return fmt.Errorf("absent: fast is required")
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("trace_count: op is required")
		}
		if a.Error != "" && !validKinds[a.Error] {
			return fmt.Errorf("trace_count: unknown error kind %q", a.Error)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
