package ledger

import (
	"fmt"

	"github.com/payhatch/payhatch/internal/asset"
	"github.com/payhatch/payhatch/internal/auth"
	"github.com/payhatch/payhatch/internal/event"
)

// Rebuild folds a committed notification stream back into a registry.
//
// Only registry-shaped notifications are consumed (employee added, salary
// updated, employee removed, allocation changed, paid); everything else is
// skipped. The stream must be in seq order, which is how the audit store
// returns it.
//
// The rebuilt store uses the given policy and recorder for subsequent
// operations; replay itself emits nothing.
func Rebuild(policy *auth.Policy, rec *event.Recorder, events []event.Event) (*Store, error) {
	s := NewStore(policy, rec)

	for _, e := range events {
		if err := s.apply(e); err != nil {
			return nil, fmt.Errorf("rebuild at seq %d: %w", e.Seq, err)
		}
	}
	return s, nil
}

// apply folds one notification into the registry.
func (s *Store) apply(e event.Event) error {
	switch e.Kind {
	case event.KindEmployeeAdded:
		id, err := fieldInt64(e, "employee_id")
		if err != nil {
			return err
		}
		account, err := fieldString(e, "account")
		if err != nil {
			return err
		}
		yearly, err := fieldInt64(e, "yearly")
		if err != nil {
			return err
		}
		accepted, err := fieldAssetIDs(e, "accepted")
		if err != nil {
			return err
		}
		emp := &Employee{
			ID:             id,
			Active:         true,
			Account:        asset.Account(account),
			Yearly:         yearly,
			AcceptedAssets: accepted,
			Allocation:     make(map[asset.ID]int64),
		}
		s.employees[id] = emp
		s.byAccount[emp.Account] = id
		if id >= s.nextID {
			s.nextID = id + 1
		}

	case event.KindSalaryUpdated:
		emp, err := s.replayTarget(e)
		if err != nil {
			return err
		}
		yearly, err := fieldInt64(e, "yearly")
		if err != nil {
			return err
		}
		emp.Yearly = yearly

	case event.KindEmployeeRemoved:
		emp, err := s.replayTarget(e)
		if err != nil {
			return err
		}
		emp.Active = false

	case event.KindAllocationChanged:
		emp, err := s.replayTarget(e)
		if err != nil {
			return err
		}
		a, err := fieldString(e, "asset")
		if err != nil {
			return err
		}
		pct, err := fieldInt64(e, "percent")
		if err != nil {
			return err
		}
		emp.Allocation[asset.ID(a)] = pct
		emp.LastAllocationChange = e.At

	case event.KindPaid:
		emp, err := s.replayTarget(e)
		if err != nil {
			return err
		}
		emp.LastPayday = e.At
	}

	return nil
}

func (s *Store) replayTarget(e event.Event) (*Employee, error) {
	id, err := fieldInt64(e, "employee_id")
	if err != nil {
		return nil, err
	}
	emp, ok := s.employees[id]
	if !ok {
		return nil, fmt.Errorf("%s references unknown employee %d", e.Kind, id)
	}
	return emp, nil
}

func fieldInt64(e event.Event, key string) (int64, error) {
	v, ok := e.Fields[key]
	if !ok {
		return 0, fmt.Errorf("%s missing field %q", e.Kind, key)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%s field %q is %T, want integer", e.Kind, key, v)
	}
}

func fieldString(e event.Event, key string) (string, error) {
	v, ok := e.Fields[key]
	if !ok {
		return "", fmt.Errorf("%s missing field %q", e.Kind, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s field %q is %T, want string", e.Kind, key, v)
	}
	return s, nil
}

func fieldAssetIDs(e event.Event, key string) ([]asset.ID, error) {
	v, ok := e.Fields[key]
	if !ok {
		return nil, fmt.Errorf("%s missing field %q", e.Kind, key)
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s field %q is %T, want array", e.Kind, key, v)
	}
	out := make([]asset.ID, len(arr))
	for i, elem := range arr {
		s, ok := elem.(string)
		if !ok {
			return nil, fmt.Errorf("%s field %q[%d] is %T, want string", e.Kind, key, i, elem)
		}
		out[i] = asset.ID(s)
	}
	return out, nil
}
