package vault

import (
	"time"

	"github.com/payhatch/payhatch/internal/asset"
	"github.com/payhatch/payhatch/internal/auth"
	"github.com/payhatch/payhatch/internal/chrono"
	"github.com/payhatch/payhatch/internal/event"
	"github.com/payhatch/payhatch/internal/fault"
)

// entry is the quarantined holdings of one employee.
//
// Repeated quarantines before a withdrawal accumulate, and every quarantine
// refreshes QuarantineTime, restarting the delay for the whole entry.
type entry struct {
	amounts map[asset.ID]int64
	order   []asset.ID // first-quarantine order, for deterministic payout
	since   time.Time
}

func (en *entry) add(id asset.ID, amount int64, at time.Time) {
	if _, seen := en.amounts[id]; !seen {
		en.order = append(en.order, id)
	}
	en.amounts[id] += amount
	en.since = at
}

// Vault holds quarantined per-employee, per-asset amounts behind a time
// lock.
type Vault struct {
	policy   *auth.Policy
	rec      *event.Recorder
	clock    chrono.Clock
	registry *asset.Registry

	// account is the vault's own holding account with every token.
	account asset.Account

	// engine is the single authorized payment engine. Zero until
	// SetPayment; quarantine fails closed while unset.
	engine asset.Account

	paused  bool
	entries map[asset.Account]*entry

	// totals mirrors the sum of all entries per asset, for sweeps.
	totals      map[asset.ID]int64
	totalsOrder []asset.ID
}

// New creates an empty, unpaused vault holding funds under the given
// account identity.
func New(policy *auth.Policy, rec *event.Recorder, clock chrono.Clock, registry *asset.Registry, account asset.Account) *Vault {
	return &Vault{
		policy:   policy,
		rec:      rec,
		clock:    clock,
		registry: registry,
		account:  account,
		entries:  make(map[asset.Account]*entry),
		totals:   make(map[asset.ID]int64),
	}
}

// Account returns the vault's holding account.
func (v *Vault) Account() asset.Account {
	return v.account
}

// Paused reports whether the vault is paused.
func (v *Vault) Paused() bool {
	return v.paused
}

// SetPayment registers the single authorized payment engine account.
// Owner-only, and only once; re-pointing after go-live is not allowed.
func (v *Vault) SetPayment(caller, engine asset.Account) error {
	const op = "setPayment"

	if err := v.policy.RequireOwner(caller, op); err != nil {
		return err
	}
	if engine.IsZero() {
		return fault.Validationf(op, "zero payment engine account")
	}
	if !v.engine.IsZero() {
		return fault.Statef(op, "payment engine already registered")
	}
	v.engine = engine
	return nil
}

// Quarantine accepts escrowed funds from the registered payment engine.
//
// The engine must have transferred the amount to the vault's holding
// account before calling; Quarantine only updates accounting. Accumulates
// into the employee's entry and refreshes its quarantine time.
func (v *Vault) Quarantine(caller, employee asset.Account, id asset.ID, amount int64) error {
	const op = "quarantine"

	if v.engine.IsZero() {
		return fault.Statef(op, "no payment engine registered")
	}
	if caller != v.engine {
		return fault.Authorizationf(op, "caller %q is not the registered payment engine", caller)
	}
	if v.paused {
		return fault.Statef(op, "vault is paused")
	}
	if employee.IsZero() {
		return fault.Validationf(op, "zero employee account")
	}
	if amount <= 0 {
		return fault.Validationf(op, "quarantine amount must be positive, got %d", amount)
	}

	en, ok := v.entries[employee]
	if !ok {
		en = &entry{amounts: make(map[asset.ID]int64)}
		v.entries[employee] = en
	}
	now := v.clock.Now()
	en.add(id, amount, now)

	if _, seen := v.totals[id]; !seen {
		v.totalsOrder = append(v.totalsOrder, id)
	}
	v.totals[id] += amount

	v.rec.Emit(event.Quarantined(employee, id, amount))
	return nil
}

// Withdraw releases all quarantined assets of the calling employee once the
// quarantine delay has elapsed, and clears their entry.
func (v *Vault) Withdraw(caller asset.Account) error {
	const op = "withdraw"

	if v.paused {
		return fault.Statef(op, "vault is paused")
	}
	en, ok := v.entries[caller]
	if !ok || len(en.order) == 0 {
		return fault.Statef(op, "nothing quarantined for %q", caller)
	}
	now := v.clock.Now()
	if !chrono.Elapsed(now, en.since, chrono.QuarantineDelay) {
		return fault.Temporalf(op, "quarantine delay not elapsed: locked since %s", en.since.UTC().Format(time.RFC3339))
	}

	if err := v.payout(op, en, caller); err != nil {
		return err
	}

	for _, id := range en.order {
		v.totals[id] -= en.amounts[id]
	}
	delete(v.entries, caller)

	v.rec.Emit(event.Withdrawn(caller))
	return nil
}

// payout moves every quarantined asset of the entry to the recipient.
// On a mid-payout collaborator failure, completed legs are transferred back
// so the call has no observable effect.
func (v *Vault) payout(op string, en *entry, to asset.Account) error {
	done := make([]asset.ID, 0, len(en.order))
	for _, id := range en.order {
		tok, err := v.registry.Resolve(id)
		if err != nil {
			v.compensate(done, en.amounts, to)
			return fault.Collaboratorf(op, err, "resolving asset %q", id)
		}
		if err := tok.Transfer(v.account, to, en.amounts[id]); err != nil {
			v.compensate(done, en.amounts, to)
			return fault.Collaboratorf(op, err, "transferring %d of %q", en.amounts[id], id)
		}
		done = append(done, id)
	}
	return nil
}

// compensate returns already-moved legs after a failed multi-asset payout.
// Reversal uses the same collaborators that just succeeded; a reversal
// failure would strand funds at the recipient, which is still safer than
// double-counting them in the vault.
func (v *Vault) compensate(done []asset.ID, amounts map[asset.ID]int64, from asset.Account) {
	for _, id := range done {
		if tok, err := v.registry.Resolve(id); err == nil {
			_ = tok.Transfer(from, v.account, amounts[id])
		}
	}
}

// Pause halts withdrawals and quarantines. Owner-only.
func (v *Vault) Pause(caller asset.Account) error {
	const op = "vaultPause"

	if err := v.policy.RequireOwner(caller, op); err != nil {
		return err
	}
	if v.paused {
		return fault.Statef(op, "vault already paused")
	}
	v.paused = true
	v.rec.Emit(event.VaultPaused())
	return nil
}

// Unpause resumes normal vault operation. Owner-only.
func (v *Vault) Unpause(caller asset.Account) error {
	const op = "vaultUnpause"

	if err := v.policy.RequireOwner(caller, op); err != nil {
		return err
	}
	if !v.paused {
		return fault.Statef(op, "vault is not paused")
	}
	v.paused = false
	v.rec.Emit(event.VaultUnpaused())
	return nil
}

// EmergencyWithdraw sweeps every held asset balance to the given account
// and clears all accounting. Owner-only, and only while the vault is
// paused.
func (v *Vault) EmergencyWithdraw(caller, to asset.Account) error {
	const op = "vaultEmergencyWithdraw"

	if err := v.policy.RequireOwner(caller, op); err != nil {
		return err
	}
	if !v.paused {
		return fault.Statef(op, "vault is not paused")
	}
	if to.IsZero() {
		return fault.Validationf(op, "zero recipient account")
	}

	done := make([]asset.ID, 0, len(v.totalsOrder))
	for _, id := range v.totalsOrder {
		amount := v.totals[id]
		if amount == 0 {
			continue
		}
		tok, err := v.registry.Resolve(id)
		if err != nil {
			v.compensate(done, v.totals, to)
			return fault.Collaboratorf(op, err, "resolving asset %q", id)
		}
		if err := tok.Transfer(v.account, to, amount); err != nil {
			v.compensate(done, v.totals, to)
			return fault.Collaboratorf(op, err, "transferring %d of %q", amount, id)
		}
		done = append(done, id)
	}

	v.entries = make(map[asset.Account]*entry)
	v.totals = make(map[asset.ID]int64)
	v.totalsOrder = nil

	v.rec.Emit(event.VaultSwept(to))
	return nil
}

// Quarantined returns the locked amount for one (employee, asset).
// Zero if no entry exists.
func (v *Vault) Quarantined(employee asset.Account, id asset.ID) int64 {
	en, ok := v.entries[employee]
	if !ok {
		return 0
	}
	return en.amounts[id]
}

// QuarantinedSince returns the quarantine timestamp for an employee's
// entry, or the zero time if nothing is locked.
func (v *Vault) QuarantinedSince(employee asset.Account) time.Time {
	en, ok := v.entries[employee]
	if !ok {
		return time.Time{}
	}
	return en.since
}
