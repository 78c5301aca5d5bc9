// Package chrono centralizes the payroll time windows and the clock
// abstraction behind them.
//
// All three cooldowns derive from the single Month constant so the payday,
// reallocation, and quarantine windows can never drift apart. A month is a
// fixed 31 days; calendar months are deliberately not consulted.
package chrono

import "time"

// DaysPerMonth is the length of the fixed payroll month in days.
const DaysPerMonth = 31

// Month is the fixed payroll month: 31 days.
const Month = DaysPerMonth * 24 * time.Hour

const (
	// PaydayCooldown is the minimum interval between two paydays for the
	// same employee.
	PaydayCooldown = Month

	// ReallocationCooldown is the minimum interval between two allocation
	// changes for the same employee.
	ReallocationCooldown = 6 * Month

	// QuarantineDelay is how long escrowed funds stay locked after the most
	// recent quarantine before the employee may withdraw.
	QuarantineDelay = 24 * time.Hour
)

// Clock supplies the current time to cooldown checks.
//
// Production uses SystemClock; tests use a manual clock that can jump
// forward across cooldown windows.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Elapsed reports whether at least d has passed between since and now.
// A zero since counts as elapsed: a record that never started a window is
// always eligible.
func Elapsed(now, since time.Time, d time.Duration) bool {
	if since.IsZero() {
		return true
	}
	return !now.Before(since.Add(d))
}
