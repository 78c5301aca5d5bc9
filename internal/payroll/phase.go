package payroll

import "github.com/payhatch/payhatch/internal/fault"

// Phase is the facade's control state.
type Phase int

const (
	// Normal is full operation.
	Normal Phase = iota

	// Paused is a reversible operational halt: mutations fail, the owner
	// may sweep the engine, and Unpause restores Normal.
	Paused

	// Escaped is the terminal kill-switch state. No transition leaves it.
	Escaped
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case Normal:
		return "normal"
	case Paused:
		return "paused"
	case Escaped:
		return "escaped"
	default:
		return "unknown"
	}
}

// transitions enumerates every legal phase change. Anything not listed is
// rejected; Escaped has no outgoing edges.
var transitions = map[Phase]map[Phase]bool{
	Normal:  {Paused: true, Escaped: true},
	Paused:  {Normal: true, Escaped: true},
	Escaped: {},
}

// transition moves the facade to a new phase, or fails with a STATE fault
// if the edge is not in the table. Callers hold the facade mutex.
func (p *Payroll) transition(op string, to Phase) error {
	from := p.currentPhase()
	if !transitions[from][to] {
		return fault.Statef(op, "illegal transition %s -> %s", from, to)
	}
	p.phase.Store(int32(to))
	return nil
}
