package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payhatch/payhatch/internal/asset"
	"github.com/payhatch/payhatch/internal/chrono"
	"github.com/payhatch/payhatch/internal/event"
	"github.com/payhatch/payhatch/internal/fault"
	"github.com/payhatch/payhatch/internal/testutil"
)

// do wraps a direct engine call with recorder staging the way the facade
// would.
func do(t *testing.T, sys *testutil.System, fn func() error) error {
	t.Helper()
	sys.Recorder.Begin()
	if err := fn(); err != nil {
		sys.Recorder.Abort()
		return err
	}
	require.NoError(t, sys.Recorder.Commit())
	return nil
}

// newFunded wires a system with the canonical fixture: Alice earning 1200
// a year accepting ANT and USD, rates ANT=2 and native=2 (USD is the
// reference), and 200 units of each asset in the engine.
func newFunded(t *testing.T) *testutil.System {
	t.Helper()
	sys := testutil.NewSystem(t)

	require.NoError(t, do(t, sys, func() error {
		return sys.Engine.SetExchangeRate(testutil.Owner, testutil.ANT, 2)
	}))
	require.NoError(t, do(t, sys, func() error {
		return sys.Engine.SetExchangeRate(testutil.Owner, asset.Native, 2)
	}))

	sys.Fund(testutil.ANT, 200)
	sys.Fund(testutil.USD, 200)
	sys.Fund(asset.Native, 200)

	require.NoError(t, do(t, sys, func() error {
		_, err := sys.Store.AddEmployee(testutil.Owner, testutil.Alice,
			[]asset.ID{testutil.ANT, testutil.USD}, 1200)
		return err
	}))
	sys.Events.Reset()
	return sys
}

// TestSetExchangeRate tests the rate table rules.
func TestSetExchangeRate(t *testing.T) {
	sys := testutil.NewSystem(t)

	assert.True(t, fault.IsAuthorization(do(t, sys, func() error {
		return sys.Engine.SetExchangeRate(testutil.Alice, testutil.ANT, 2)
	})))
	assert.True(t, fault.IsValidation(do(t, sys, func() error {
		return sys.Engine.SetExchangeRate(testutil.Owner, testutil.ANT, 0)
	})))
	assert.True(t, fault.IsValidation(do(t, sys, func() error {
		return sys.Engine.SetExchangeRate(testutil.Owner, "unwired", 2)
	})))

	// The reference asset converts at 1 and cannot be re-rated.
	assert.Equal(t, int64(1), sys.Engine.Rate(testutil.USD))
	assert.True(t, fault.IsValidation(do(t, sys, func() error {
		return sys.Engine.SetExchangeRate(testutil.Owner, testutil.USD, 2)
	})))

	require.NoError(t, do(t, sys, func() error {
		return sys.Engine.SetExchangeRate(testutil.Owner, testutil.ANT, 2)
	}))
	assert.Equal(t, int64(2), sys.Engine.Rate(testutil.ANT))

	rates := sys.Events.ByKind(event.KindExchangeRateSet)
	require.Len(t, rates, 1)
	assert.Equal(t, "ant", rates[0].Fields["asset"])
	assert.Equal(t, int64(2), rates[0].Fields["rate"])
}

// TestAddFunds tests funding moves value from the depositor.
func TestAddFunds(t *testing.T) {
	sys := testutil.NewSystem(t)
	sys.Tokens[asset.Native].Mint(testutil.Alice, 10000)

	require.NoError(t, do(t, sys, func() error {
		return sys.Engine.AddFunds(testutil.Alice, asset.Native, 10000)
	}))
	assert.Equal(t, int64(10000), sys.Engine.Balance(asset.Native))
	assert.Equal(t, int64(0), sys.Tokens[asset.Native].BalanceOf(testutil.Alice))

	added := sys.Events.ByKind(event.KindFundsAdded)
	require.Len(t, added, 1)
	assert.Equal(t, string(testutil.Alice), added[0].Fields["from"])
	assert.Equal(t, int64(10000), added[0].Fields["amount"])

	// An underfunded depositor is a collaborator failure.
	err := do(t, sys, func() error {
		return sys.Engine.AddFunds(testutil.Bob, asset.Native, 5)
	})
	assert.True(t, fault.IsCollaborator(err))

	assert.True(t, fault.IsValidation(do(t, sys, func() error {
		return sys.Engine.AddFunds(testutil.Alice, asset.Native, 0)
	})))
	assert.True(t, fault.IsValidation(do(t, sys, func() error {
		return sys.Engine.AddFunds(testutil.Alice, "unwired", 5)
	})))
}

// TestDetermineAllocation_Success tests the split and its notifications.
func TestDetermineAllocation_Success(t *testing.T) {
	sys := newFunded(t)

	require.NoError(t, do(t, sys, func() error {
		return sys.Engine.DetermineAllocation(testutil.Alice,
			[]asset.ID{testutil.ANT, testutil.USD}, []int64{20, 40})
	}))

	emp, err := sys.Store.Get(1)
	require.NoError(t, err)
	assert.Equal(t, int64(20), emp.Allocation[testutil.ANT])
	assert.Equal(t, int64(40), emp.Allocation[testutil.USD])

	changed := sys.Events.ByKind(event.KindAllocationChanged)
	require.Len(t, changed, 2)
	assert.Equal(t, "ant", changed[0].Fields["asset"])
	assert.Equal(t, int64(20), changed[0].Fields["percent"])
	assert.Equal(t, "usd", changed[1].Fields["asset"])
	assert.Equal(t, int64(40), changed[1].Fields["percent"])
}

// TestDetermineAllocation_Validation tests every rejection rule, including
// the 100%-exact acceptance boundary.
func TestDetermineAllocation_Validation(t *testing.T) {
	sys := newFunded(t)

	cases := []struct {
		name     string
		assets   []asset.ID
		percents []int64
		code     fault.Code
	}{
		{"length mismatch", []asset.ID{testutil.ANT, testutil.USD}, []int64{20}, fault.Validation},
		{"asset not accepted", []asset.ID{"doge"}, []int64{20}, fault.Validation},
		{"single percent above 100", []asset.ID{testutil.ANT, testutil.USD}, []int64{20, 110}, fault.Validation},
		{"negative percent", []asset.ID{testutil.ANT}, []int64{-1}, fault.Validation},
		{"sum above 100", []asset.ID{testutil.ANT, testutil.USD}, []int64{60, 50}, fault.Validation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := do(t, sys, func() error {
				return sys.Engine.DetermineAllocation(testutil.Alice, tc.assets, tc.percents)
			})
			require.Error(t, err)
			assert.Equal(t, tc.code, fault.CodeOf(err))
		})
	}

	// Not an employee.
	err := do(t, sys, func() error {
		return sys.Engine.DetermineAllocation(testutil.Owner, []asset.ID{testutil.ANT}, []int64{20})
	})
	assert.True(t, fault.IsAuthorization(err))

	// Exactly 100 is accepted.
	require.NoError(t, do(t, sys, func() error {
		return sys.Engine.DetermineAllocation(testutil.Alice,
			[]asset.ID{testutil.ANT, testutil.USD}, []int64{60, 40})
	}))
}

// TestDetermineAllocation_Cooldown tests the six-month reallocation window.
func TestDetermineAllocation_Cooldown(t *testing.T) {
	sys := newFunded(t)

	require.NoError(t, do(t, sys, func() error {
		return sys.Engine.DetermineAllocation(testutil.Alice,
			[]asset.ID{testutil.ANT, testutil.USD}, []int64{20, 40})
	}))

	err := do(t, sys, func() error {
		return sys.Engine.DetermineAllocation(testutil.Alice,
			[]asset.ID{testutil.ANT, testutil.USD}, []int64{30, 50})
	})
	require.Error(t, err)
	assert.True(t, fault.IsTemporal(err))

	sys.Clock.Advance(chrono.ReallocationCooldown)
	require.NoError(t, do(t, sys, func() error {
		return sys.Engine.DetermineAllocation(testutil.Alice,
			[]asset.ID{testutil.ANT, testutil.USD}, []int64{30, 50})
	}))

	emp, err := sys.Store.Get(1)
	require.NoError(t, err)
	assert.Equal(t, int64(30), emp.Allocation[testutil.ANT])
	assert.Equal(t, int64(50), emp.Allocation[testutil.USD])
}

// TestDetermineAllocation_CarriedSharesCountTowardSum tests that shares
// kept from a previous split count against the 100 limit, so successive
// disjoint reallocations cannot grow the disbursement past one monthly
// compensation.
func TestDetermineAllocation_CarriedSharesCountTowardSum(t *testing.T) {
	sys := newFunded(t)

	require.NoError(t, do(t, sys, func() error {
		return sys.Engine.DetermineAllocation(testutil.Alice,
			[]asset.ID{testutil.ANT}, []int64{100})
	}))
	sys.Clock.Advance(chrono.ReallocationCooldown)

	// The full ANT share is carried over, so a full USD share on top would
	// sum to 200.
	err := do(t, sys, func() error {
		return sys.Engine.DetermineAllocation(testutil.Alice,
			[]asset.ID{testutil.USD}, []int64{100})
	})
	require.Error(t, err)
	assert.True(t, fault.IsValidation(err))

	emp, err := sys.Store.Get(1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), emp.Allocation[testutil.ANT])
	assert.Zero(t, emp.Allocation[testutil.USD])

	// Naming both assets moves the share in one call.
	require.NoError(t, do(t, sys, func() error {
		return sys.Engine.DetermineAllocation(testutil.Alice,
			[]asset.ID{testutil.ANT, testutil.USD}, []int64{0, 100})
	}))

	// Payday disburses exactly one monthly compensation: 100 USD at the
	// reference rate, nothing in ANT or native.
	require.NoError(t, do(t, sys, func() error {
		return sys.Engine.Payday(testutil.Alice)
	}))
	assert.Equal(t, int64(100), sys.Vault.Quarantined(testutil.Alice, testutil.USD))
	assert.Equal(t, int64(0), sys.Vault.Quarantined(testutil.Alice, testutil.ANT))
	assert.Equal(t, int64(0), sys.Vault.Quarantined(testutil.Alice, asset.Native))
}

// TestPayday_SplitsPerAllocation tests the worked disbursement example:
// 1200 a year is 100 a month; 20% ANT at rate 2 is 10 ANT, 20% USD at the
// reference rate is 20 USD, and the 60% remainder at native rate 2 is 30.
func TestPayday_SplitsPerAllocation(t *testing.T) {
	sys := newFunded(t)

	require.NoError(t, do(t, sys, func() error {
		return sys.Engine.DetermineAllocation(testutil.Alice,
			[]asset.ID{testutil.ANT, testutil.USD}, []int64{20, 20})
	}))
	require.NoError(t, do(t, sys, func() error {
		return sys.Engine.Payday(testutil.Alice)
	}))

	// Quarantined amounts.
	assert.Equal(t, int64(10), sys.Vault.Quarantined(testutil.Alice, testutil.ANT))
	assert.Equal(t, int64(20), sys.Vault.Quarantined(testutil.Alice, testutil.USD))
	assert.Equal(t, int64(30), sys.Vault.Quarantined(testutil.Alice, asset.Native))

	// Engine balances decreased by exactly those amounts.
	assert.Equal(t, int64(190), sys.Engine.Balance(testutil.ANT))
	assert.Equal(t, int64(180), sys.Engine.Balance(testutil.USD))
	assert.Equal(t, int64(170), sys.Engine.Balance(asset.Native))

	// Vault holding account received them.
	assert.Equal(t, int64(10), sys.Tokens[testutil.ANT].BalanceOf(testutil.VaultAccount))
	assert.Equal(t, int64(20), sys.Tokens[testutil.USD].BalanceOf(testutil.VaultAccount))
	assert.Equal(t, int64(30), sys.Tokens[asset.Native].BalanceOf(testutil.VaultAccount))

	paid := sys.Events.ByKind(event.KindPaid)
	require.Len(t, paid, 1)
	assert.Equal(t, int64(1), paid[0].Fields["employee_id"])
	assert.Equal(t, int64(100), paid[0].Fields["monthly"])

	q := sys.Events.ByKind(event.KindQuarantined)
	require.Len(t, q, 3)
	assert.Equal(t, "ant", q[0].Fields["asset"])
	assert.Equal(t, int64(10), q[0].Fields["amount"])
	assert.Equal(t, "usd", q[1].Fields["asset"])
	assert.Equal(t, int64(20), q[1].Fields["amount"])
	assert.Equal(t, "native", q[2].Fields["asset"])
	assert.Equal(t, int64(30), q[2].Fields["amount"])
}

// TestPayday_Cooldown tests the one-month window and its reset.
func TestPayday_Cooldown(t *testing.T) {
	sys := newFunded(t)

	require.NoError(t, do(t, sys, func() error { return sys.Engine.Payday(testutil.Alice) }))

	err := do(t, sys, func() error { return sys.Engine.Payday(testutil.Alice) })
	require.Error(t, err)
	assert.True(t, fault.IsTemporal(err))

	sys.Clock.Advance(chrono.PaydayCooldown)
	require.NoError(t, do(t, sys, func() error { return sys.Engine.Payday(testutil.Alice) }))

	// The timer reset: immediately after, payday is again on cooldown.
	err = do(t, sys, func() error { return sys.Engine.Payday(testutil.Alice) })
	assert.True(t, fault.IsTemporal(err))
}

// TestPayday_Gates tests the vault-paused, missing-rate, and not-employee
// rejections.
func TestPayday_Gates(t *testing.T) {
	sys := newFunded(t)

	err := do(t, sys, func() error { return sys.Engine.Payday(testutil.Owner) })
	assert.True(t, fault.IsAuthorization(err))

	require.NoError(t, do(t, sys, func() error { return sys.Vault.Pause(testutil.Owner) }))
	err = do(t, sys, func() error { return sys.Engine.Payday(testutil.Alice) })
	require.Error(t, err)
	assert.True(t, fault.IsState(err))
	require.NoError(t, do(t, sys, func() error { return sys.Vault.Unpause(testutil.Owner) }))

	// A missing rate is detected in planning, before anything moves.
	fresh := testutil.NewSystem(t)
	fresh.Fund(asset.Native, 200)
	require.NoError(t, do(t, fresh, func() error {
		_, err := fresh.Store.AddEmployee(testutil.Owner, testutil.Alice, []asset.ID{testutil.ANT}, 1200)
		return err
	}))
	err = do(t, fresh, func() error { return fresh.Engine.Payday(testutil.Alice) })
	require.Error(t, err)
	assert.True(t, fault.IsState(err))
	assert.Equal(t, int64(200), fresh.Engine.Balance(asset.Native))
}

// TestPayday_InsufficientBalance tests that planning refuses an
// underfunded disbursement with no partial movement.
func TestPayday_InsufficientBalance(t *testing.T) {
	sys := testutil.NewSystem(t)
	require.NoError(t, do(t, sys, func() error {
		return sys.Engine.SetExchangeRate(testutil.Owner, asset.Native, 2)
	}))
	sys.Fund(asset.Native, 10) // needs 50 for the 100% native remainder
	require.NoError(t, do(t, sys, func() error {
		_, err := sys.Store.AddEmployee(testutil.Owner, testutil.Alice, []asset.ID{testutil.ANT}, 1200)
		return err
	}))

	err := do(t, sys, func() error { return sys.Engine.Payday(testutil.Alice) })
	require.Error(t, err)
	assert.True(t, fault.IsState(err))
	assert.Equal(t, int64(10), sys.Engine.Balance(asset.Native))
}

// TestPayday_TransferFailureRollsBack tests fail-atomicity across a
// multi-leg disbursement: a failed later leg reverses the earlier ones.
func TestPayday_TransferFailureRollsBack(t *testing.T) {
	sys := newFunded(t)
	require.NoError(t, do(t, sys, func() error {
		return sys.Engine.DetermineAllocation(testutil.Alice,
			[]asset.ID{testutil.ANT, testutil.USD}, []int64{20, 20})
	}))
	sys.Events.Reset()

	sys.Tokens[asset.Native].FailNextTransfer()
	err := do(t, sys, func() error { return sys.Engine.Payday(testutil.Alice) })
	require.Error(t, err)
	assert.True(t, fault.IsCollaborator(err))

	// All balances back where they started; nothing quarantined, nothing
	// emitted, cooldown not consumed.
	assert.Equal(t, int64(200), sys.Engine.Balance(testutil.ANT))
	assert.Equal(t, int64(200), sys.Engine.Balance(testutil.USD))
	assert.Equal(t, int64(200), sys.Engine.Balance(asset.Native))
	assert.Equal(t, int64(0), sys.Vault.Quarantined(testutil.Alice, testutil.ANT))
	assert.Empty(t, sys.Events.Events())

	emp, gerr := sys.Store.Get(1)
	require.NoError(t, gerr)
	assert.True(t, emp.LastPayday.IsZero())

	// Retry succeeds.
	require.NoError(t, do(t, sys, func() error { return sys.Engine.Payday(testutil.Alice) }))
	assert.Equal(t, int64(30), sys.Vault.Quarantined(testutil.Alice, asset.Native))
}

// TestPayday_TruncatingDivision tests dust-free floor semantics: remainders
// below one asset unit are not disbursed.
func TestPayday_TruncatingDivision(t *testing.T) {
	sys := testutil.NewSystem(t)
	require.NoError(t, do(t, sys, func() error {
		return sys.Engine.SetExchangeRate(testutil.Owner, testutil.ANT, 7)
	}))
	require.NoError(t, do(t, sys, func() error {
		return sys.Engine.SetExchangeRate(testutil.Owner, asset.Native, 2)
	}))
	sys.Fund(testutil.ANT, 200)
	sys.Fund(asset.Native, 200)
	require.NoError(t, do(t, sys, func() error {
		_, err := sys.Store.AddEmployee(testutil.Owner, testutil.Alice, []asset.ID{testutil.ANT}, 1200)
		return err
	}))
	require.NoError(t, do(t, sys, func() error {
		return sys.Engine.DetermineAllocation(testutil.Alice, []asset.ID{testutil.ANT}, []int64{25})
	}))

	require.NoError(t, do(t, sys, func() error { return sys.Engine.Payday(testutil.Alice) }))

	// 25% of 100 is 25 reference units; 25/7 truncates to 3 ANT.
	assert.Equal(t, int64(3), sys.Vault.Quarantined(testutil.Alice, testutil.ANT))
	// 75 remainder at rate 2 is 37 native, truncated from 37.5.
	assert.Equal(t, int64(37), sys.Vault.Quarantined(testutil.Alice, asset.Native))
}

// TestBurnrate tests the aggregate monthly obligation.
func TestBurnrate(t *testing.T) {
	sys := newFunded(t)
	assert.Equal(t, int64(100), sys.Engine.CalculatePayrollBurnrate())

	require.NoError(t, do(t, sys, func() error {
		_, err := sys.Store.AddEmployee(testutil.Owner, testutil.Bob, []asset.ID{testutil.ANT}, 2400)
		return err
	}))
	assert.Equal(t, int64(300), sys.Engine.CalculatePayrollBurnrate())

	require.NoError(t, do(t, sys, func() error {
		return sys.Store.RemoveEmployee(testutil.Owner, 2)
	}))
	assert.Equal(t, int64(100), sys.Engine.CalculatePayrollBurnrate())
}

// TestRunway tests reference-unit conversion of balances over burnrate.
func TestRunway(t *testing.T) {
	sys := newFunded(t)

	// 200 USD at 1 plus 200 ANT at 2 plus 200 native at 2 is 1000 units;
	// burnrate 100 gives 10 months.
	months, err := sys.Engine.CalculatePayrollRunwayInMonths()
	require.NoError(t, err)
	assert.Equal(t, int64(10), months)

	// Truncation: 1050 units over 100 is still 10 whole months.
	sys.Fund(testutil.USD, 50)
	months, err = sys.Engine.CalculatePayrollRunwayInMonths()
	require.NoError(t, err)
	assert.Equal(t, int64(10), months)
}

// TestRunwayInDays tests the day-granular variant over the 31-day month.
func TestRunwayInDays(t *testing.T) {
	sys := newFunded(t)

	// 1000 units over burnrate 100 is 310 days.
	days, err := sys.Engine.CalculatePayrollRunway()
	require.NoError(t, err)
	assert.Equal(t, int64(310), days)

	// 1050 units is 325.5 days, truncated to 325.
	sys.Fund(testutil.USD, 50)
	days, err = sys.Engine.CalculatePayrollRunway()
	require.NoError(t, err)
	assert.Equal(t, int64(325), days)
}

// TestRunway_NoActiveEmployees tests the zero-burnrate rejection.
func TestRunway_NoActiveEmployees(t *testing.T) {
	sys := testutil.NewSystem(t)
	_, err := sys.Engine.CalculatePayrollRunwayInMonths()
	require.Error(t, err)
	assert.True(t, fault.IsState(err))

	_, err = sys.Engine.CalculatePayrollRunway()
	require.Error(t, err)
	assert.True(t, fault.IsState(err))
}

// TestEmergencyWithdraw tests the facade-paused gate and the full sweep.
func TestEmergencyWithdraw(t *testing.T) {
	sys := newFunded(t)

	// Facade not paused: refused.
	err := do(t, sys, func() error {
		return sys.Engine.EmergencyWithdraw(testutil.Owner, testutil.Owner)
	})
	require.Error(t, err)
	assert.True(t, fault.IsState(err))

	require.NoError(t, sys.Facade.Pause(testutil.Owner))

	err = do(t, sys, func() error {
		return sys.Engine.EmergencyWithdraw(testutil.Alice, testutil.Alice)
	})
	assert.True(t, fault.IsAuthorization(err))

	require.NoError(t, do(t, sys, func() error {
		return sys.Engine.EmergencyWithdraw(testutil.Owner, testutil.Owner)
	}))

	assert.Equal(t, int64(0), sys.Engine.Balance(testutil.ANT))
	assert.Equal(t, int64(0), sys.Engine.Balance(testutil.USD))
	assert.Equal(t, int64(0), sys.Engine.Balance(asset.Native))
	assert.Equal(t, int64(200), sys.Tokens[testutil.ANT].BalanceOf(testutil.Owner))
	assert.Equal(t, int64(200), sys.Tokens[testutil.USD].BalanceOf(testutil.Owner))
	assert.Equal(t, int64(200), sys.Tokens[asset.Native].BalanceOf(testutil.Owner))

	swept := sys.Events.ByKind(event.KindEngineSwept)
	require.Len(t, swept, 1)
	assert.Equal(t, string(testutil.Owner), swept[0].Fields["to"])
}
