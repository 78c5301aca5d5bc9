package harness

import (
	"fmt"
	"time"

	"github.com/payhatch/payhatch/internal/asset"
	"github.com/payhatch/payhatch/internal/event"
	"github.com/payhatch/payhatch/internal/fault"
	"github.com/payhatch/payhatch/internal/payroll"
	"github.com/payhatch/payhatch/internal/testutil"
)

// Result is the outcome of one scenario execution.
type Result struct {
	// Pass is true when every flow expectation and assertion held.
	Pass bool

	// Errors lists expectation and assertion failures. Empty when Pass.
	Errors []string

	// Trace is the committed notification stream, in sequence order.
	Trace []event.Event
}

func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// system is the wired fixture a scenario runs against.
type system struct {
	*payroll.System

	clock  *testutil.ManualClock
	events *event.MemorySink
	tokens map[asset.ID]*asset.MockToken
}

// newSystem wires a deterministic system with the fixture identities:
// owner 0xowner, holding accounts 0xengine and 0xvault, assets ant, usd
// (reference), and native, a clock frozen at the fixture epoch, and
// sequential call tokens.
func newSystem() (*system, error) {
	clock := testutil.NewManualClock()
	events := event.NewMemorySink()
	tokens := map[asset.ID]*asset.MockToken{
		testutil.ANT: asset.NewMockToken(testutil.ANT),
		testutil.USD: asset.NewMockToken(testutil.USD),
		asset.Native: asset.NewMockToken(asset.Native),
	}
	wired := map[asset.ID]asset.Token{}
	for id, tok := range tokens {
		wired[id] = tok
	}

	sys, err := payroll.Wire(payroll.Config{
		Owner:         testutil.Owner,
		EngineAccount: testutil.EngineAccount,
		VaultAccount:  testutil.VaultAccount,
		Reference:     testutil.USD,
		Tokens:        wired,
		Clock:         clock,
		TokenGen:      &testutil.SeqTokenGenerator{},
		Sinks:         []event.Sink{events},
	})
	if err != nil {
		return nil, fmt.Errorf("wire scenario system: %w", err)
	}
	return &system{System: sys, clock: clock, events: events, tokens: tokens}, nil
}

// Run executes a scenario against a fresh system.
//
// A returned error is a scenario defect (unknown op, malformed args, failed
// setup); expectation and assertion failures are reported in the Result.
func Run(s *Scenario) (*Result, error) {
	sys, err := newSystem()
	if err != nil {
		return nil, err
	}
	res := &Result{Pass: true}

	for i, st := range s.Setup {
		if err := sys.execute(st); err != nil {
			return nil, fmt.Errorf("setup[%d] %s: %w", i, st.Op, err)
		}
	}

	for i, st := range s.Flow {
		err := sys.execute(st)
		if unknown, ok := err.(*unknownStepError); ok {
			return nil, fmt.Errorf("flow[%d]: %w", i, unknown)
		}
		switch {
		case st.Expect == nil && err != nil:
			res.addError("flow[%d] %s: unexpected failure: %v", i, st.Op, err)
		case st.Expect != nil:
			want, cerr := faultCode(st.Expect.Fault)
			if cerr != nil {
				return nil, fmt.Errorf("flow[%d]: %w", i, cerr)
			}
			if got := fault.CodeOf(err); got != want {
				res.addError("flow[%d] %s: expected %s fault, got %v", i, st.Op, want, err)
			}
		}
	}

	res.Trace = sys.events.Events()
	for i, a := range s.Assertions {
		if err := sys.check(&a, res.Trace); err != nil {
			res.addError("assertions[%d] %s: %v", i, a.Type, err)
		}
	}
	return res, nil
}

// unknownStepError marks a step the executor cannot dispatch, as opposed to
// an operation that ran and failed.
type unknownStepError struct{ op string }

func (e *unknownStepError) Error() string { return fmt.Sprintf("unknown op %q", e.op) }

// execute dispatches one step. Facade calls return the facade's error;
// harness controls (mint, fund, advance) cannot fail once parsed.
func (sys *system) execute(st Step) error {
	switch st.Op {
	case "mint":
		tok, err := sys.mockToken(st.Args)
		if err != nil {
			return err
		}
		to, amount, err := accountAmount(st.Args, "to")
		if err != nil {
			return err
		}
		tok.Mint(to, amount)
		return nil

	case "fund":
		tok, err := sys.mockToken(st.Args)
		if err != nil {
			return err
		}
		amount, err := argInt64(st.Args, "amount")
		if err != nil {
			return err
		}
		tok.Mint(testutil.EngineAccount, amount)
		return nil

	case "advance":
		raw, err := argString(st.Args, "by")
		if err != nil {
			return err
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("advance: %w", err)
		}
		sys.clock.Advance(d)
		return nil

	case "failNextTransfer":
		tok, err := sys.mockToken(st.Args)
		if err != nil {
			return err
		}
		tok.FailNextTransfer()
		return nil

	case "addEmployee":
		caller, err := argAccount(st.Args, "caller")
		if err != nil {
			return err
		}
		account, err := argAccount(st.Args, "account")
		if err != nil {
			return err
		}
		accepted, err := argAssets(st.Args, "accepted")
		if err != nil {
			return err
		}
		yearly, err := argInt64(st.Args, "yearly")
		if err != nil {
			return err
		}
		_, err = sys.Facade.AddEmployee(caller, account, accepted, yearly)
		return err

	case "setSalary":
		caller, err := argAccount(st.Args, "caller")
		if err != nil {
			return err
		}
		id, err := argInt64(st.Args, "id")
		if err != nil {
			return err
		}
		yearly, err := argInt64(st.Args, "yearly")
		if err != nil {
			return err
		}
		return sys.Facade.SetEmployeeSalary(caller, id, yearly)

	case "removeEmployee":
		caller, err := argAccount(st.Args, "caller")
		if err != nil {
			return err
		}
		id, err := argInt64(st.Args, "id")
		if err != nil {
			return err
		}
		return sys.Facade.RemoveEmployee(caller, id)

	case "setExchangeRate":
		caller, err := argAccount(st.Args, "caller")
		if err != nil {
			return err
		}
		id, err := argAsset(st.Args, "asset")
		if err != nil {
			return err
		}
		rate, err := argInt64(st.Args, "rate")
		if err != nil {
			return err
		}
		return sys.Facade.SetExchangeRate(caller, id, rate)

	case "addFunds":
		from, err := argAccount(st.Args, "from")
		if err != nil {
			return err
		}
		id, err := argAsset(st.Args, "asset")
		if err != nil {
			return err
		}
		amount, err := argInt64(st.Args, "amount")
		if err != nil {
			return err
		}
		return sys.Facade.AddFunds(from, id, amount)

	case "determineAllocation":
		caller, err := argAccount(st.Args, "caller")
		if err != nil {
			return err
		}
		assets, err := argAssets(st.Args, "assets")
		if err != nil {
			return err
		}
		percents, err := argInt64s(st.Args, "percents")
		if err != nil {
			return err
		}
		return sys.Facade.DetermineAllocation(caller, assets, percents)

	case "payday":
		caller, err := argAccount(st.Args, "caller")
		if err != nil {
			return err
		}
		return sys.Facade.Payday(caller)

	case "vaultWithdraw":
		caller, err := argAccount(st.Args, "caller")
		if err != nil {
			return err
		}
		return sys.Facade.VaultWithdraw(caller)

	case "pause", "unpause", "escapeHatch", "vaultPause", "vaultUnpause":
		caller, err := argAccount(st.Args, "caller")
		if err != nil {
			return err
		}
		switch st.Op {
		case "pause":
			return sys.Facade.Pause(caller)
		case "unpause":
			return sys.Facade.Unpause(caller)
		case "escapeHatch":
			return sys.Facade.EscapeHatch(caller)
		case "vaultPause":
			return sys.Facade.VaultPause(caller)
		default:
			return sys.Facade.VaultUnpause(caller)
		}

	case "emergencyWithdraw", "vaultEmergencyWithdraw":
		caller, err := argAccount(st.Args, "caller")
		if err != nil {
			return err
		}
		to, err := argAccount(st.Args, "to")
		if err != nil {
			return err
		}
		if st.Op == "emergencyWithdraw" {
			return sys.Facade.EmergencyWithdraw(caller, to)
		}
		return sys.Facade.VaultEmergencyWithdraw(caller, to)

	default:
		return &unknownStepError{op: st.Op}
	}
}

func (sys *system) mockToken(args map[string]any) (*asset.MockToken, error) {
	id, err := argAsset(args, "asset")
	if err != nil {
		return nil, err
	}
	tok, ok := sys.tokens[id]
	if !ok {
		return nil, fmt.Errorf("asset %q is not wired in the fixture", id)
	}
	return tok, nil
}

func accountAmount(args map[string]any, key string) (asset.Account, int64, error) {
	to, err := argAccount(args, key)
	if err != nil {
		return "", 0, err
	}
	amount, err := argInt64(args, "amount")
	if err != nil {
		return "", 0, err
	}
	return to, amount, nil
}

// faultCode maps the scenario's lowercase fault name to its code.
func faultCode(name string) (fault.Code, error) {
	switch name {
	case "authorization":
		return fault.Authorization, nil
	case "validation":
		return fault.Validation, nil
	case "state":
		return fault.State, nil
	case "temporal":
		return fault.Temporal, nil
	case "collaborator":
		return fault.Collaborator, nil
	default:
		return "", fmt.Errorf("unknown fault %q", name)
	}
}

// --- argument decoding ---

func argString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing arg %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("arg %q is %T, want string", key, v)
	}
	return s, nil
}

func argAccount(args map[string]any, key string) (asset.Account, error) {
	s, err := argString(args, key)
	return asset.Account(s), err
}

func argAsset(args map[string]any, key string) (asset.ID, error) {
	s, err := argString(args, key)
	return asset.ID(s), err
}

func argInt64(args map[string]any, key string) (int64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing arg %q", key)
	}
	return toInt64(key, v)
}

func argAssets(args map[string]any, key string) ([]asset.ID, error) {
	v, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("missing arg %q", key)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("arg %q is %T, want list", key, v)
	}
	out := make([]asset.ID, len(list))
	for i, elem := range list {
		s, ok := elem.(string)
		if !ok {
			return nil, fmt.Errorf("arg %q[%d] is %T, want string", key, i, elem)
		}
		out[i] = asset.ID(s)
	}
	return out, nil
}

func argInt64s(args map[string]any, key string) ([]int64, error) {
	v, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("missing arg %q", key)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("arg %q is %T, want list", key, v)
	}
	out := make([]int64, len(list))
	for i, elem := range list {
		n, err := toInt64(fmt.Sprintf("%s[%d]", key, i), elem)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// toInt64 accepts the integer types yaml.v3 produces.
func toInt64(key string, v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("arg %q is %T, want integer", key, v)
	}
}
