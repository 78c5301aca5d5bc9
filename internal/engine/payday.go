package engine

import (
	"time"

	"github.com/payhatch/payhatch/internal/asset"
	"github.com/payhatch/payhatch/internal/chrono"
	"github.com/payhatch/payhatch/internal/event"
	"github.com/payhatch/payhatch/internal/fault"
	"github.com/payhatch/payhatch/internal/ledger"
)

// DetermineAllocation lets an employee split their compensation across
// their accepted assets. Self-only: the caller must be the employee's own
// account.
//
// The split overwrites the allocation entry-by-entry: assets not named keep
// their previous share. Percentages must each be 0-100, and the resulting
// allocation, carried-over shares included, must sum to at most 100; the
// unallocated remainder is disbursed in the native asset at payday. A
// reallocation is allowed at most once per six months, except for the
// employee's first.
func (e *Engine) DetermineAllocation(caller asset.Account, assets []asset.ID, percents []int64) error {
	const op = "determineAllocation"

	emp, err := e.selfEmployee(op, caller)
	if err != nil {
		return err
	}
	if len(assets) != len(percents) {
		return fault.Validationf(op, "assets/percents length mismatch: %d != %d", len(assets), len(percents))
	}
	// emp is a copy, so its map doubles as the merged result: previous
	// shares overwritten by the submitted ones.
	merged := emp.Allocation
	for i, a := range assets {
		if !emp.Accepts(a) {
			return fault.Validationf(op, "asset %q is not in the accepted set", a)
		}
		pct := percents[i]
		if pct < 0 || pct > 100 {
			return fault.Validationf(op, "percentage %d for %q out of range 0-100", pct, a)
		}
		merged[a] = pct
	}
	var sum int64
	for _, pct := range merged {
		sum += pct
	}
	if sum > 100 {
		return fault.Validationf(op, "resulting allocation sums to %d, exceeding 100", sum)
	}

	now := e.clock.Now()
	if !chrono.Elapsed(now, emp.LastAllocationChange, chrono.ReallocationCooldown) {
		return fault.Temporalf(op, "reallocation cooldown not elapsed: last change %s",
			emp.LastAllocationChange.UTC().Format(time.RFC3339))
	}

	if err := e.store.WriteAllocation(e.account, emp.ID, assets, percents, now); err != nil {
		return err
	}
	for i, a := range assets {
		e.rec.Emit(event.AllocationChanged(emp.ID, a, percents[i]))
	}
	return nil
}

// payLeg is one planned disbursement: amount units of an asset bound for
// the escrow vault.
type payLeg struct {
	id     asset.ID
	tok    asset.Token
	amount int64
}

// Payday converts the calling employee's monthly compensation into asset
// amounts and quarantines them in the escrow vault. Self-only, at most once
// per month.
//
// Nothing is transferred directly to the employee; the full disbursement
// goes through quarantine and is claimable after the vault's delay.
func (e *Engine) Payday(caller asset.Account) error {
	const op = "payday"

	emp, err := e.selfEmployee(op, caller)
	if err != nil {
		return err
	}
	now := e.clock.Now()
	if !chrono.Elapsed(now, emp.LastPayday, chrono.PaydayCooldown) {
		return fault.Temporalf(op, "payday cooldown not elapsed: last payday %s",
			emp.LastPayday.UTC().Format(time.RFC3339))
	}
	if e.vault.Paused() {
		return fault.Statef(op, "escrow vault is paused")
	}

	monthly := emp.Yearly / 12
	legs, err := e.planDisbursement(op, emp, monthly)
	if err != nil {
		return err
	}

	// Phase 2: move every leg into the vault's holding account. The
	// quarantine registrations after this loop cannot fail, so reversing
	// completed transfers here is enough for fail-atomicity.
	vaultAccount := e.vault.Account()
	for i, leg := range legs {
		if err := leg.tok.Transfer(e.account, vaultAccount, leg.amount); err != nil {
			for _, d := range legs[:i] {
				_ = d.tok.Transfer(vaultAccount, e.account, d.amount)
			}
			return fault.Collaboratorf(op, err, "disbursing %d of %q", leg.amount, leg.id)
		}
	}
	for _, leg := range legs {
		if err := e.vault.Quarantine(e.account, emp.Account, leg.id, leg.amount); err != nil {
			return err
		}
	}

	if err := e.store.MarkPayday(e.account, emp.ID, now); err != nil {
		return err
	}
	e.rec.Emit(event.Paid(emp.ID, monthly))
	return nil
}

// planDisbursement resolves the allocation into concrete legs: each
// allocated accepted asset in creation order, then the native remainder.
// Amounts use truncating division; zero-amount legs are dropped.
func (e *Engine) planDisbursement(op string, emp ledger.Employee, monthly int64) ([]payLeg, error) {
	var legs []payLeg
	var allocated int64

	appendLeg := func(id asset.ID, pct int64) error {
		rate := e.Rate(id)
		if rate == 0 {
			return fault.Statef(op, "no exchange rate set for %q", id)
		}
		amount := (monthly * pct / 100) / rate
		if amount == 0 {
			return nil
		}
		tok, err := e.registry.Resolve(id)
		if err != nil {
			return fault.Statef(op, "asset %q is not wired", id)
		}
		if tok.BalanceOf(e.account) < amount {
			return fault.Statef(op, "insufficient operational balance for %q: have %d, need %d",
				id, tok.BalanceOf(e.account), amount)
		}
		legs = append(legs, payLeg{id: id, tok: tok, amount: amount})
		return nil
	}

	for _, id := range emp.AcceptedAssets {
		pct := emp.Allocation[id]
		if pct == 0 {
			continue
		}
		allocated += pct
		if err := appendLeg(id, pct); err != nil {
			return nil, err
		}
	}
	if remainder := 100 - allocated; remainder > 0 {
		if err := appendLeg(asset.Native, remainder); err != nil {
			return nil, err
		}
	}
	return legs, nil
}

// selfEmployee resolves the caller to their own active employee record.
func (e *Engine) selfEmployee(op string, caller asset.Account) (ledger.Employee, error) {
	if caller.IsZero() {
		return ledger.Employee{}, fault.Authorizationf(op, "zero caller account")
	}
	id, err := e.store.IDByAccount(caller)
	if err != nil {
		return ledger.Employee{}, fault.Authorizationf(op, "caller %q is not an employee", caller)
	}
	emp, err := e.store.Get(id)
	if err != nil {
		return ledger.Employee{}, err
	}
	if !emp.Active {
		return ledger.Employee{}, fault.Statef(op, "employee %d is inactive", id)
	}
	return emp, nil
}
