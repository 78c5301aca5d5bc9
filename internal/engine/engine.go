package engine

import (
	"sort"

	"github.com/payhatch/payhatch/internal/asset"
	"github.com/payhatch/payhatch/internal/auth"
	"github.com/payhatch/payhatch/internal/chrono"
	"github.com/payhatch/payhatch/internal/event"
	"github.com/payhatch/payhatch/internal/fault"
	"github.com/payhatch/payhatch/internal/ledger"
	"github.com/payhatch/payhatch/internal/vault"
)

// ControlState exposes the facade's circuit-breaker state to the engine.
// The emergency sweep is legal only while the facade reports paused.
type ControlState interface {
	Paused() bool
}

// Engine owns exchange-rate state and per-asset operational balances, and
// routes payday disbursements into the escrow vault.
type Engine struct {
	policy   *auth.Policy
	rec      *event.Recorder
	clock    chrono.Clock
	registry *asset.Registry
	store    *ledger.Store
	vault    *vault.Vault

	// account holds the engine's operational balances with every token.
	account asset.Account

	// reference is the asset pinned at rate 1; yearly compensation is
	// denominated in it.
	reference asset.ID

	rates map[asset.ID]int64

	// control is the facade's pause state, bound once at wiring time.
	// The emergency sweep fails closed while unbound.
	control ControlState
}

// New creates an engine holding funds under the given account.
// reference names the asset compensation is denominated in; its rate is
// fixed at 1 and cannot be changed.
func New(
	policy *auth.Policy,
	rec *event.Recorder,
	clock chrono.Clock,
	registry *asset.Registry,
	store *ledger.Store,
	v *vault.Vault,
	account asset.Account,
	reference asset.ID,
) *Engine {
	return &Engine{
		policy:    policy,
		rec:       rec,
		clock:     clock,
		registry:  registry,
		store:     store,
		vault:     v,
		account:   account,
		reference: reference,
		rates:     make(map[asset.ID]int64),
	}
}

// Account returns the engine's holding account.
func (e *Engine) Account() asset.Account {
	return e.account
}

// BindControl registers the facade's control state. Owner-only, once.
func (e *Engine) BindControl(caller asset.Account, cs ControlState) error {
	const op = "bindControl"

	if err := e.policy.RequireOwner(caller, op); err != nil {
		return err
	}
	if e.control != nil {
		return fault.Statef(op, "control state already bound")
	}
	if cs == nil {
		return fault.Validationf(op, "nil control state")
	}
	e.control = cs
	return nil
}

// SetExchangeRate sets the reference-units-per-asset-unit rate for an
// asset. Owner-only; the rate must be positive and the asset wired in the
// registry. The reference asset's rate is pinned at 1.
func (e *Engine) SetExchangeRate(caller asset.Account, id asset.ID, rate int64) error {
	const op = "setExchangeRate"

	if err := e.policy.RequireOwner(caller, op); err != nil {
		return err
	}
	if id.IsZero() {
		return fault.Validationf(op, "zero asset id")
	}
	if id == e.reference {
		return fault.Validationf(op, "rate of reference asset %q is fixed at 1", id)
	}
	if !e.registry.Known(id) {
		return fault.Validationf(op, "asset %q is not wired", id)
	}
	if rate <= 0 {
		return fault.Validationf(op, "rate must be positive, got %d", rate)
	}

	e.rates[id] = rate
	e.rec.Emit(event.ExchangeRateSet(id, rate))
	return nil
}

// Rate returns the conversion rate for an asset, or 0 if none is set.
// The reference asset always converts at 1.
func (e *Engine) Rate(id asset.ID) int64 {
	if id == e.reference {
		return 1
	}
	return e.rates[id]
}

// AddFunds moves amount of the given asset from the depositor into the
// engine's operational balance. Callable by anyone funding the payroll.
func (e *Engine) AddFunds(from asset.Account, id asset.ID, amount int64) error {
	const op = "addFunds"

	if from.IsZero() {
		return fault.Validationf(op, "zero depositor account")
	}
	if amount <= 0 {
		return fault.Validationf(op, "deposit must be positive, got %d", amount)
	}
	tok, err := e.registry.Resolve(id)
	if err != nil {
		return fault.Validationf(op, "asset %q is not wired", id)
	}
	if err := tok.Transfer(from, e.account, amount); err != nil {
		return fault.Collaboratorf(op, err, "depositing %d of %q", amount, id)
	}

	e.rec.Emit(event.FundsAdded(from, id, amount))
	return nil
}

// Balance returns the engine's operational balance for an asset.
// Zero for unwired assets.
func (e *Engine) Balance(id asset.ID) int64 {
	tok, err := e.registry.Resolve(id)
	if err != nil {
		return 0
	}
	return tok.BalanceOf(e.account)
}

// CalculatePayrollBurnrate returns the aggregate monthly compensation
// obligation across all active employees, in reference units.
func (e *Engine) CalculatePayrollBurnrate() int64 {
	var total int64
	for _, emp := range e.store.Active() {
		total += emp.Yearly / 12
	}
	return total
}

// CalculatePayrollRunwayInMonths returns how many whole months the current
// operational balances can sustain the burnrate.
func (e *Engine) CalculatePayrollRunwayInMonths() (int64, error) {
	const op = "calculatePayrollRunwayInMonths"

	burnrate := e.CalculatePayrollBurnrate()
	if burnrate == 0 {
		return 0, fault.Statef(op, "no active employees")
	}
	return e.referenceTotal() / burnrate, nil
}

// CalculatePayrollRunway returns how many whole days the current
// operational balances can sustain the burnrate, over the fixed 31-day
// month.
func (e *Engine) CalculatePayrollRunway() (int64, error) {
	const op = "calculatePayrollRunway"

	burnrate := e.CalculatePayrollBurnrate()
	if burnrate == 0 {
		return 0, fault.Statef(op, "no active employees")
	}
	return e.referenceTotal() * chrono.DaysPerMonth / burnrate, nil
}

// referenceTotal sums the operational balances in reference units. Assets
// without a rate are excluded: they cannot be converted.
func (e *Engine) referenceTotal() int64 {
	var total int64
	for _, id := range e.sortedAssets() {
		rate := e.Rate(id)
		if rate == 0 {
			continue
		}
		total += e.Balance(id) * rate
	}
	return total
}

// EmergencyWithdraw sweeps every operational balance to the given account.
// Owner-only, and only while the owning facade reports paused.
func (e *Engine) EmergencyWithdraw(caller, to asset.Account) error {
	const op = "emergencyWithdraw"

	if err := e.policy.RequireOwner(caller, op); err != nil {
		return err
	}
	if e.control == nil {
		return fault.Statef(op, "control state not bound")
	}
	if !e.control.Paused() {
		return fault.Statef(op, "facade is not paused")
	}
	if to.IsZero() {
		return fault.Validationf(op, "zero recipient account")
	}

	type leg struct {
		tok    asset.Token
		amount int64
	}
	var done []leg
	for _, id := range e.sortedAssets() {
		tok, err := e.registry.Resolve(id)
		if err != nil {
			continue
		}
		amount := tok.BalanceOf(e.account)
		if amount == 0 {
			continue
		}
		if err := tok.Transfer(e.account, to, amount); err != nil {
			for _, d := range done {
				_ = d.tok.Transfer(to, e.account, d.amount)
			}
			return fault.Collaboratorf(op, err, "sweeping %d of %q", amount, id)
		}
		done = append(done, leg{tok, amount})
	}

	e.rec.Emit(event.EngineSwept(to))
	return nil
}

// sortedAssets returns the wired asset IDs in lexicographic order, so every
// multi-asset loop is deterministic.
func (e *Engine) sortedAssets() []asset.ID {
	ids := e.registry.IDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
