// Package vault implements the escrow vault (escape hatch).
//
// Every payday disbursement lands here first, tagged to its employee, and
// stays locked for the quarantine delay before the employee may withdraw.
// The vault enforces its own pause latch independent of the facade's: a
// paused vault rejects quarantines and withdrawals, and only a paused vault
// permits the owner's emergency sweep.
//
// The vault trusts exactly one payment engine account, registered once at
// wiring time. Quarantine fails closed until that registration happens.
package vault
