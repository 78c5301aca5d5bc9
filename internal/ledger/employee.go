package ledger

import (
	"time"

	"github.com/payhatch/payhatch/internal/asset"
)

// Employee is one registry record.
//
// IDs are assigned monotonically from 1 and are stable for the record's
// lifetime. AcceptedAssets is fixed at creation and bounds the allocation:
// every allocation key must be a member of the accepted set.
type Employee struct {
	ID      int64
	Active  bool
	Account asset.Account

	// Yearly is the yearly compensation in reference units.
	// Always positive and divisible by 12.
	Yearly int64

	// AcceptedAssets lists the token assets this employee may allocate to,
	// in the order given at creation. The native asset is implicit: it
	// receives the unallocated remainder at payday and never appears here.
	AcceptedAssets []asset.ID

	// Allocation maps accepted asset to its percentage share (0-100).
	// The shares sum to at most 100.
	Allocation map[asset.ID]int64

	// LastAllocationChange and LastPayday drive cooldown checks.
	// Zero values mean the window never started and count as elapsed.
	LastAllocationChange time.Time
	LastPayday           time.Time
}

// Accepts reports whether the employee's accepted-asset set contains id.
func (e *Employee) Accepts(id asset.ID) bool {
	for _, a := range e.AcceptedAssets {
		if a == id {
			return true
		}
	}
	return false
}

// clone returns a deep copy so callers can never mutate the stored record.
func (e *Employee) clone() Employee {
	out := *e
	out.AcceptedAssets = make([]asset.ID, len(e.AcceptedAssets))
	copy(out.AcceptedAssets, e.AcceptedAssets)
	out.Allocation = make(map[asset.ID]int64, len(e.Allocation))
	for k, v := range e.Allocation {
		out.Allocation[k] = v
	}
	return out
}
