package ledger

import (
	"time"

	"github.com/payhatch/payhatch/internal/asset"
	"github.com/payhatch/payhatch/internal/auth"
	"github.com/payhatch/payhatch/internal/event"
	"github.com/payhatch/payhatch/internal/fault"
)

// Store is the employee registry.
//
// All mutations check the access policy first and validate fully before
// touching state, so a rejected call leaves the registry unchanged.
type Store struct {
	policy *auth.Policy
	rec    *event.Recorder

	employees map[int64]*Employee
	byAccount map[asset.Account]int64
	nextID    int64
}

// NewStore creates an empty registry owned by the policy's owner.
func NewStore(policy *auth.Policy, rec *event.Recorder) *Store {
	return &Store{
		policy:    policy,
		rec:       rec,
		employees: make(map[int64]*Employee),
		byAccount: make(map[asset.Account]int64),
		nextID:    1,
	}
}

// SetAllowedContract replaces the allow-list of services permitted to
// mutate the registry. Owner-only.
func (s *Store) SetAllowedContract(caller asset.Account, services ...asset.Account) error {
	if err := s.policy.Allow(caller, services...); err != nil {
		return err
	}
	s.rec.Emit(event.AllowListChanged(len(services)))
	return nil
}

// AddEmployee registers a new employee and returns the assigned id.
//
// Fails if account is zero, already registered, any accepted asset is zero,
// or yearly is not positive and divisible by 12.
func (s *Store) AddEmployee(caller, account asset.Account, accepted []asset.ID, yearly int64) (int64, error) {
	const op = "addEmployee"

	if err := s.policy.RequireOwnerOrAllowed(caller, op); err != nil {
		return 0, err
	}
	if account.IsZero() {
		return 0, fault.Validationf(op, "zero employee account")
	}
	if _, exists := s.byAccount[account]; exists {
		return 0, fault.Validationf(op, "account %q already registered", account)
	}
	for _, a := range accepted {
		if a.IsZero() {
			return 0, fault.Validationf(op, "zero asset in accepted set")
		}
		if a.IsNative() {
			return 0, fault.Validationf(op, "native asset is implicit and cannot be accepted explicitly")
		}
	}
	if err := validYearly(op, yearly); err != nil {
		return 0, err
	}

	id := s.nextID
	s.nextID++

	emp := &Employee{
		ID:             id,
		Active:         true,
		Account:        account,
		Yearly:         yearly,
		AcceptedAssets: append([]asset.ID(nil), accepted...),
		Allocation:     make(map[asset.ID]int64),
	}
	s.employees[id] = emp
	s.byAccount[account] = id

	s.rec.Emit(event.EmployeeAdded(id, account, emp.AcceptedAssets, yearly))
	return id, nil
}

// SetSalary updates an active employee's yearly compensation.
func (s *Store) SetSalary(caller asset.Account, id, yearly int64) error {
	const op = "setSalary"

	if err := s.policy.RequireOwnerOrAllowed(caller, op); err != nil {
		return err
	}
	emp, err := s.active(op, id)
	if err != nil {
		return err
	}
	if err := validYearly(op, yearly); err != nil {
		return err
	}

	emp.Yearly = yearly
	s.rec.Emit(event.SalaryUpdated(id, yearly))
	return nil
}

// RemoveEmployee deactivates an employee; the record is retained.
func (s *Store) RemoveEmployee(caller asset.Account, id int64) error {
	const op = "removeEmployee"

	if err := s.policy.RequireOwnerOrAllowed(caller, op); err != nil {
		return err
	}
	emp, err := s.active(op, id)
	if err != nil {
		return err
	}

	emp.Active = false
	s.rec.Emit(event.EmployeeRemoved(id))
	return nil
}

// Get returns a copy of the employee record, active or not.
func (s *Store) Get(id int64) (Employee, error) {
	emp, ok := s.employees[id]
	if !ok {
		return Employee{}, fault.Statef("getEmployee", "unknown employee id %d", id)
	}
	return emp.clone(), nil
}

// IDByAccount returns the employee id registered for an account.
func (s *Store) IDByAccount(account asset.Account) (int64, error) {
	id, ok := s.byAccount[account]
	if !ok {
		return 0, fault.Statef("getEmployeeId", "no employee registered for account %q", account)
	}
	return id, nil
}

// Count returns the number of active employees.
func (s *Store) Count() int {
	n := 0
	for _, emp := range s.employees {
		if emp.Active {
			n++
		}
	}
	return n
}

// Active returns copies of all active employee records.
// Iteration helper for burnrate and sweep computations; order unspecified.
func (s *Store) Active() []Employee {
	out := make([]Employee, 0, len(s.employees))
	for _, emp := range s.employees {
		if emp.Active {
			out = append(out, emp.clone())
		}
	}
	return out
}

// WriteAllocation overwrites the allocation entries for an active employee
// and stamps LastAllocationChange. Allow-listed services only: the payment
// engine calls this after its own validation and cooldown checks.
func (s *Store) WriteAllocation(service asset.Account, id int64, assets []asset.ID, percents []int64, at time.Time) error {
	const op = "writeAllocation"

	if err := s.policy.RequireOwnerOrAllowed(service, op); err != nil {
		return err
	}
	emp, err := s.active(op, id)
	if err != nil {
		return err
	}
	if len(assets) != len(percents) {
		return fault.Validationf(op, "assets/percents length mismatch: %d != %d", len(assets), len(percents))
	}

	for i, a := range assets {
		emp.Allocation[a] = percents[i]
	}
	emp.LastAllocationChange = at
	return nil
}

// MarkPayday stamps LastPayday for an active employee.
// Allow-listed services only.
func (s *Store) MarkPayday(service asset.Account, id int64, at time.Time) error {
	const op = "markPayday"

	if err := s.policy.RequireOwnerOrAllowed(service, op); err != nil {
		return err
	}
	emp, err := s.active(op, id)
	if err != nil {
		return err
	}

	emp.LastPayday = at
	return nil
}

// active returns the mutable record for an active employee id.
func (s *Store) active(op string, id int64) (*Employee, error) {
	emp, ok := s.employees[id]
	if !ok {
		return nil, fault.Statef(op, "unknown employee id %d", id)
	}
	if !emp.Active {
		return nil, fault.Statef(op, "employee %d is inactive", id)
	}
	return emp, nil
}

func validYearly(op string, yearly int64) error {
	if yearly <= 0 {
		return fault.Validationf(op, "yearly compensation must be positive, got %d", yearly)
	}
	if yearly%12 != 0 {
		return fault.Validationf(op, "yearly compensation %d is not divisible by 12", yearly)
	}
	return nil
}
