package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one conformance test: a call sequence with expected faults
// and assertions over the trace and final state.
type Scenario struct {
	// Name uniquely identifies the scenario; golden files are keyed by it.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Setup steps establish initial state and must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow is the sequence under test. Each step is validated against its
	// expect clause.
	Flow []Step `yaml:"flow"`

	// Assertions validate the committed trace and final state after the
	// flow completes.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation against the system.
type Step struct {
	// Op names the operation: a facade call (addEmployee, payday,
	// vaultWithdraw, pause, ...) or a harness control (mint, fund, advance).
	Op string `yaml:"op"`

	// Args carries the operation's named arguments.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect is the expected outcome. Nil means the step must succeed.
	// Ignored for setup steps, which always must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect names the fault a flow step must raise.
type Expect struct {
	// Fault is the lowercase fault code: authorization, validation, state,
	// temporal, or collaborator.
	Fault string `yaml:"fault"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type selects the assertion:
	//   - events_contain: a notification of Kind with matching Fields exists
	//   - event_order: notifications of Kinds appear in this relative order
	//   - event_count: exactly Count notifications of Kind exist
	//   - employee: the record for EmployeeID matches Fields (subset)
	//   - quarantined: the vault holds Amount of Asset for Employee
	//   - balance: the engine's operational balance of Asset is Amount
	//   - phase: the facade phase is Phase
	Type string `yaml:"type"`

	Kind   string         `yaml:"kind,omitempty"`
	Kinds  []string       `yaml:"kinds,omitempty"`
	Fields map[string]any `yaml:"fields,omitempty"`
	Count  int            `yaml:"count,omitempty"`

	EmployeeID int64  `yaml:"employee_id,omitempty"`
	Employee   string `yaml:"employee,omitempty"`
	Asset      string `yaml:"asset,omitempty"`
	Amount     int64  `yaml:"amount,omitempty"`
	Phase      string `yaml:"phase,omitempty"`
}

// Assertion type names.
const (
	AssertEventsContain = "events_contain"
	AssertEventOrder    = "event_order"
	AssertEventCount    = "event_count"
	AssertEmployee      = "employee"
	AssertQuarantined   = "quarantined"
	AssertBalance       = "balance"
	AssertPhase         = "phase"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently skipping checks.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions is required and must be non-empty")
	}

	for i, st := range s.Setup {
		if st.Op == "" {
			return fmt.Errorf("setup[%d]: op is required", i)
		}
		if st.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is not allowed in setup", i)
		}
	}
	for i, st := range s.Flow {
		if st.Op == "" {
			return fmt.Errorf("flow[%d]: op is required", i)
		}
		if st.Expect != nil {
			if _, err := faultCode(st.Expect.Fault); err != nil {
				return fmt.Errorf("flow[%d].expect: %w", i, err)
			}
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(i int, a *Assertion) error {
	switch a.Type {
	case AssertEventsContain:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for events_contain", i)
		}
	case AssertEventOrder:
		if len(a.Kinds) < 2 {
			return fmt.Errorf("assertions[%d]: event_order needs at least two kinds", i)
		}
	case AssertEventCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for event_count", i)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", i)
		}
	case AssertEmployee:
		if a.EmployeeID == 0 {
			return fmt.Errorf("assertions[%d]: employee_id is required for employee", i)
		}
		if len(a.Fields) == 0 {
			return fmt.Errorf("assertions[%d]: fields is required for employee", i)
		}
	case AssertQuarantined:
		if a.Employee == "" || a.Asset == "" {
			return fmt.Errorf("assertions[%d]: employee and asset are required for quarantined", i)
		}
	case AssertBalance:
		if a.Asset == "" {
			return fmt.Errorf("assertions[%d]: asset is required for balance", i)
		}
	case AssertPhase:
		if a.Phase == "" {
			return fmt.Errorf("assertions[%d]: phase is required for phase", i)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
	return nil
}
