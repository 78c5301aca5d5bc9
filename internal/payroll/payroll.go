package payroll

import (
	"sync"
	"sync/atomic"

	"github.com/payhatch/payhatch/internal/asset"
	"github.com/payhatch/payhatch/internal/auth"
	"github.com/payhatch/payhatch/internal/engine"
	"github.com/payhatch/payhatch/internal/event"
	"github.com/payhatch/payhatch/internal/fault"
	"github.com/payhatch/payhatch/internal/ledger"
	"github.com/payhatch/payhatch/internal/vault"
)

// Payroll is the facade routing every external call to the ledger store,
// the payment engine, or the escrow vault, with the caller's identity
// preserved.
type Payroll struct {
	mu sync.Mutex

	policy *auth.Policy
	rec    *event.Recorder
	store  *ledger.Store
	engine *engine.Engine
	vault  *vault.Vault

	// phase holds a Phase value. Written under mu; read lock-free so the
	// engine can consult Paused() mid-operation without re-entering the
	// facade mutex.
	phase atomic.Int32
}

// New creates a facade in the Normal phase over its wired delegates.
func New(policy *auth.Policy, rec *event.Recorder, store *ledger.Store, eng *engine.Engine, v *vault.Vault) *Payroll {
	return &Payroll{
		policy: policy,
		rec:    rec,
		store:  store,
		engine: eng,
		vault:  v,
	}
}

// currentPhase reads the control phase.
func (p *Payroll) currentPhase() Phase {
	return Phase(p.phase.Load())
}

// Phase returns the current control phase.
func (p *Payroll) Phase() Phase {
	return p.currentPhase()
}

// Paused reports whether the facade is in the Paused phase.
// Implements engine.ControlState for the emergency-sweep gate.
func (p *Payroll) Paused() bool {
	return p.currentPhase() == Paused
}

// run serializes one external call: stage notifications, execute, then
// commit on success or abort on failure. A failed call leaves neither
// state nor notifications behind.
func (p *Payroll) run(fn func() error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rec.Begin()
	if err := fn(); err != nil {
		p.rec.Abort()
		return err
	}
	return p.rec.Commit()
}

// requireNormal rejects mutations outside the Normal phase.
func (p *Payroll) requireNormal(op string) error {
	if phase := p.currentPhase(); phase != Normal {
		return fault.Statef(op, "system is %s", phase)
	}
	return nil
}

// --- Control state machine ---

// Pause halts mutations reversibly. Owner-only.
func (p *Payroll) Pause(caller asset.Account) error {
	return p.run(func() error {
		const op = "pause"
		if err := p.policy.RequireOwner(caller, op); err != nil {
			return err
		}
		if err := p.transition(op, Paused); err != nil {
			return err
		}
		p.rec.Emit(event.Paused())
		return nil
	})
}

// Unpause restores normal operation. Owner-only; illegal once escaped.
func (p *Payroll) Unpause(caller asset.Account) error {
	return p.run(func() error {
		const op = "unpause"
		if err := p.policy.RequireOwner(caller, op); err != nil {
			return err
		}
		if err := p.transition(op, Normal); err != nil {
			return err
		}
		p.rec.Emit(event.Unpaused())
		return nil
	})
}

// EscapeHatch irreversibly shuts down disbursement. Owner-only.
func (p *Payroll) EscapeHatch(caller asset.Account) error {
	return p.run(func() error {
		const op = "escapeHatch"
		if err := p.policy.RequireOwner(caller, op); err != nil {
			return err
		}
		if err := p.transition(op, Escaped); err != nil {
			return err
		}
		p.rec.Emit(event.Escaped())
		return nil
	})
}

// EmergencyWithdraw sweeps the payment engine's balances to the given
// account. Owner-only, valid only while paused.
func (p *Payroll) EmergencyWithdraw(caller, to asset.Account) error {
	return p.run(func() error {
		const op = "emergencyWithdraw"
		if err := p.policy.RequireOwner(caller, op); err != nil {
			return err
		}
		if phase := p.currentPhase(); phase != Paused {
			return fault.Statef(op, "system is %s, not paused", phase)
		}
		return p.engine.EmergencyWithdraw(caller, to)
	})
}

// --- Ledger store forwarding ---

// AddEmployee registers a new employee. Owner-only, Normal phase.
func (p *Payroll) AddEmployee(caller, account asset.Account, accepted []asset.ID, yearly int64) (int64, error) {
	var id int64
	err := p.run(func() error {
		if err := p.requireNormal("addEmployee"); err != nil {
			return err
		}
		var err error
		id, err = p.store.AddEmployee(caller, account, accepted, yearly)
		return err
	})
	return id, err
}

// SetEmployeeSalary updates an employee's yearly compensation.
func (p *Payroll) SetEmployeeSalary(caller asset.Account, id, yearly int64) error {
	return p.run(func() error {
		if err := p.requireNormal("setSalary"); err != nil {
			return err
		}
		return p.store.SetSalary(caller, id, yearly)
	})
}

// RemoveEmployee deactivates an employee; the record is retained.
func (p *Payroll) RemoveEmployee(caller asset.Account, id int64) error {
	return p.run(func() error {
		if err := p.requireNormal("removeEmployee"); err != nil {
			return err
		}
		return p.store.RemoveEmployee(caller, id)
	})
}

// SetAllowedContract replaces the registry's mutation allow-list.
func (p *Payroll) SetAllowedContract(caller asset.Account, services ...asset.Account) error {
	return p.run(func() error {
		if err := p.requireNormal("setAllowedContract"); err != nil {
			return err
		}
		return p.store.SetAllowedContract(caller, services...)
	})
}

// GetEmployee returns a copy of the employee record, active or not.
func (p *Payroll) GetEmployee(id int64) (ledger.Employee, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.Get(id)
}

// GetEmployeeID returns the id registered for an account.
func (p *Payroll) GetEmployeeID(account asset.Account) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.IDByAccount(account)
}

// GetEmployeeCount returns the number of active employees.
func (p *Payroll) GetEmployeeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.Count()
}

// --- Payment engine forwarding ---

// SetExchangeRate sets an asset's conversion rate. Owner-only.
func (p *Payroll) SetExchangeRate(caller asset.Account, id asset.ID, rate int64) error {
	return p.run(func() error {
		if err := p.requireNormal("setExchangeRate"); err != nil {
			return err
		}
		return p.engine.SetExchangeRate(caller, id, rate)
	})
}

// AddFunds deposits value into the engine's operational balance.
func (p *Payroll) AddFunds(from asset.Account, id asset.ID, amount int64) error {
	return p.run(func() error {
		if err := p.requireNormal("addFunds"); err != nil {
			return err
		}
		return p.engine.AddFunds(from, id, amount)
	})
}

// DetermineAllocation forwards an employee's split request.
func (p *Payroll) DetermineAllocation(caller asset.Account, assets []asset.ID, percents []int64) error {
	return p.run(func() error {
		if err := p.requireNormal("determineAllocation"); err != nil {
			return err
		}
		return p.engine.DetermineAllocation(caller, assets, percents)
	})
}

// Payday disburses the calling employee's monthly compensation into
// quarantine. Fails in any phase but Normal; once escaped it fails forever.
func (p *Payroll) Payday(caller asset.Account) error {
	return p.run(func() error {
		if err := p.requireNormal("payday"); err != nil {
			return err
		}
		return p.engine.Payday(caller)
	})
}

// CalculatePayrollBurnrate returns the monthly obligation across active
// employees.
func (p *Payroll) CalculatePayrollBurnrate() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine.CalculatePayrollBurnrate()
}

// CalculatePayrollRunwayInMonths returns whole months of runway at current
// balances and rates.
func (p *Payroll) CalculatePayrollRunwayInMonths() (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine.CalculatePayrollRunwayInMonths()
}

// CalculatePayrollRunway returns whole days of runway at current balances
// and rates.
func (p *Payroll) CalculatePayrollRunway() (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine.CalculatePayrollRunway()
}

// --- Escrow vault forwarding ---
//
// The vault enforces its own pause latch independent of the facade's phase;
// these wrappers only add call serialization and notification staging.

// VaultWithdraw releases the calling employee's quarantined funds.
func (p *Payroll) VaultWithdraw(caller asset.Account) error {
	return p.run(func() error {
		return p.vault.Withdraw(caller)
	})
}

// VaultPause halts the vault. Owner-only.
func (p *Payroll) VaultPause(caller asset.Account) error {
	return p.run(func() error {
		return p.vault.Pause(caller)
	})
}

// VaultUnpause resumes the vault. Owner-only.
func (p *Payroll) VaultUnpause(caller asset.Account) error {
	return p.run(func() error {
		return p.vault.Unpause(caller)
	})
}

// VaultEmergencyWithdraw sweeps the vault's holdings. Owner-only, only
// while the vault itself is paused.
func (p *Payroll) VaultEmergencyWithdraw(caller, to asset.Account) error {
	return p.run(func() error {
		return p.vault.EmergencyWithdraw(caller, to)
	})
}
