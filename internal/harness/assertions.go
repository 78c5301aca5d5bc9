package harness

import (
	"fmt"

	"github.com/payhatch/payhatch/internal/asset"
	"github.com/payhatch/payhatch/internal/event"
)

// check applies one assertion against the committed trace and the final
// system state.
func (sys *system) check(a *Assertion, trace []event.Event) error {
	switch a.Type {
	case AssertEventsContain:
		return checkEventsContain(trace, event.Kind(a.Kind), a.Fields)
	case AssertEventOrder:
		return checkEventOrder(trace, a.Kinds)
	case AssertEventCount:
		return checkEventCount(trace, event.Kind(a.Kind), a.Count)
	case AssertEmployee:
		return sys.checkEmployee(a)
	case AssertQuarantined:
		got := sys.Vault.Quarantined(asset.Account(a.Employee), asset.ID(a.Asset))
		if got != a.Amount {
			return fmt.Errorf("quarantined %q of %q: got %d, want %d", a.Asset, a.Employee, got, a.Amount)
		}
		return nil
	case AssertBalance:
		got := sys.Engine.Balance(asset.ID(a.Asset))
		if got != a.Amount {
			return fmt.Errorf("balance of %q: got %d, want %d", a.Asset, got, a.Amount)
		}
		return nil
	case AssertPhase:
		if got := sys.Facade.Phase().String(); got != a.Phase {
			return fmt.Errorf("phase: got %s, want %s", got, a.Phase)
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func checkEventsContain(trace []event.Event, kind event.Kind, fields map[string]any) error {
	for _, e := range trace {
		if e.Kind != kind {
			continue
		}
		if fieldsMatch(e.Fields, fields) {
			return nil
		}
	}
	return fmt.Errorf("no %q notification with fields %v in trace", kind, fields)
}

func checkEventOrder(trace []event.Event, kinds []string) error {
	next := 0
	for _, e := range trace {
		if next < len(kinds) && e.Kind == event.Kind(kinds[next]) {
			next++
		}
	}
	if next != len(kinds) {
		return fmt.Errorf("kind %q missing or out of order (matched %d of %d)", kinds[next], next, len(kinds))
	}
	return nil
}

func checkEventCount(trace []event.Event, kind event.Kind, count int) error {
	var got int
	for _, e := range trace {
		if e.Kind == kind {
			got++
		}
	}
	if got != count {
		return fmt.Errorf("%q notifications: got %d, want %d", kind, got, count)
	}
	return nil
}

// checkEmployee subset-matches the record's visible fields: account,
// yearly, active, and accepted.
func (sys *system) checkEmployee(a *Assertion) error {
	emp, err := sys.Store.Get(a.EmployeeID)
	if err != nil {
		return err
	}
	for key, want := range a.Fields {
		var got any
		switch key {
		case "account":
			got = string(emp.Account)
		case "yearly":
			got = emp.Yearly
		case "active":
			got = emp.Active
		case "accepted":
			ids := make([]any, len(emp.AcceptedAssets))
			for i, id := range emp.AcceptedAssets {
				ids[i] = string(id)
			}
			got = ids
		default:
			return fmt.Errorf("employee field %q is not assertable", key)
		}
		if !valueMatch(got, want) {
			return fmt.Errorf("employee %d field %q: got %v, want %v", a.EmployeeID, key, got, want)
		}
	}
	return nil
}

// fieldsMatch subset-matches expected fields against a notification
// payload: every expected key must be present and equal.
func fieldsMatch(got map[string]any, want map[string]any) bool {
	for key, w := range want {
		g, ok := got[key]
		if !ok || !valueMatch(g, w) {
			return false
		}
	}
	return true
}

// valueMatch compares a payload value against a YAML-decoded expectation,
// normalizing integer widths.
func valueMatch(got, want any) bool {
	if gn, err := toInt64("", got); err == nil {
		wn, err := toInt64("", want)
		return err == nil && gn == wn
	}
	gl, gok := got.([]any)
	wl, wok := want.([]any)
	if gok || wok {
		if !gok || !wok || len(gl) != len(wl) {
			return false
		}
		for i := range gl {
			if !valueMatch(gl[i], wl[i]) {
				return false
			}
		}
		return true
	}
	return got == want
}
