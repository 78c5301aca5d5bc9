package payroll_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payhatch/payhatch/internal/asset"
	"github.com/payhatch/payhatch/internal/chrono"
	"github.com/payhatch/payhatch/internal/event"
	"github.com/payhatch/payhatch/internal/fault"
	"github.com/payhatch/payhatch/internal/payroll"
	"github.com/payhatch/payhatch/internal/testutil"
)

// TestPhaseMachine tests every legal and illegal control transition.
func TestPhaseMachine(t *testing.T) {
	sys := testutil.NewSystem(t)
	f := sys.Facade

	assert.Equal(t, payroll.Normal, f.Phase())

	// Unpause from Normal is not an edge.
	err := f.Unpause(testutil.Owner)
	require.Error(t, err)
	assert.True(t, fault.IsState(err))

	require.NoError(t, f.Pause(testutil.Owner))
	assert.Equal(t, payroll.Paused, f.Phase())
	assert.True(t, f.Paused())

	// Pausing twice is not an edge either.
	assert.True(t, fault.IsState(f.Pause(testutil.Owner)))

	require.NoError(t, f.Unpause(testutil.Owner))
	assert.Equal(t, payroll.Normal, f.Phase())

	// Escape is reachable from both live phases and is terminal.
	require.NoError(t, f.EscapeHatch(testutil.Owner))
	assert.Equal(t, payroll.Escaped, f.Phase())
	assert.True(t, fault.IsState(f.Unpause(testutil.Owner)))
	assert.True(t, fault.IsState(f.Pause(testutil.Owner)))
	assert.True(t, fault.IsState(f.EscapeHatch(testutil.Owner)))

	kinds := []event.Kind{}
	for _, e := range sys.Events.Events() {
		switch e.Kind {
		case event.KindPaused, event.KindUnpaused, event.KindEscaped:
			kinds = append(kinds, e.Kind)
		}
	}
	assert.Equal(t, []event.Kind{event.KindPaused, event.KindUnpaused, event.KindEscaped}, kinds)
}

// TestPhaseMachine_OwnerOnly tests the authorization gate on control calls.
func TestPhaseMachine_OwnerOnly(t *testing.T) {
	sys := testutil.NewSystem(t)
	f := sys.Facade

	assert.True(t, fault.IsAuthorization(f.Pause(testutil.Alice)))
	assert.True(t, fault.IsAuthorization(f.EscapeHatch(testutil.Alice)))
	require.NoError(t, f.Pause(testutil.Owner))
	assert.True(t, fault.IsAuthorization(f.Unpause(testutil.Alice)))
	assert.True(t, fault.IsAuthorization(f.EmergencyWithdraw(testutil.Alice, testutil.Alice)))
}

// TestPaused_BlocksMutations tests that every mutation fails with a STATE
// fault while paused, and that reads keep working.
func TestPaused_BlocksMutations(t *testing.T) {
	sys := testutil.NewSystem(t)
	f := sys.Facade

	id, err := f.AddEmployee(testutil.Owner, testutil.Alice, []asset.ID{testutil.ANT}, 1200)
	require.NoError(t, err)
	require.NoError(t, f.Pause(testutil.Owner))

	mutations := map[string]error{
		"addEmployee": func() error {
			_, err := f.AddEmployee(testutil.Owner, testutil.Bob, []asset.ID{testutil.ANT}, 1200)
			return err
		}(),
		"setSalary":           f.SetEmployeeSalary(testutil.Owner, id, 2400),
		"removeEmployee":      f.RemoveEmployee(testutil.Owner, id),
		"setAllowedContract":  f.SetAllowedContract(testutil.Owner, testutil.EngineAccount),
		"setExchangeRate":     f.SetExchangeRate(testutil.Owner, testutil.ANT, 2),
		"addFunds":            f.AddFunds(testutil.Owner, testutil.ANT, 10),
		"determineAllocation": f.DetermineAllocation(testutil.Alice, []asset.ID{testutil.ANT}, []int64{20}),
		"payday":              f.Payday(testutil.Alice),
	}
	for name, err := range mutations {
		assert.Truef(t, fault.IsState(err), "%s should be blocked while paused, got %v", name, err)
	}

	// Reads are unaffected.
	emp, err := f.GetEmployee(id)
	require.NoError(t, err)
	assert.True(t, emp.Active)
	assert.Equal(t, 1, f.GetEmployeeCount())

	got, err := f.GetEmployeeID(testutil.Alice)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	// Unpause restores everything.
	require.NoError(t, f.Unpause(testutil.Owner))
	require.NoError(t, f.SetEmployeeSalary(testutil.Owner, id, 2400))
}

// TestEscaped_KillsDisbursementForever tests the terminal shutdown.
func TestEscaped_KillsDisbursementForever(t *testing.T) {
	sys := testutil.NewSystem(t)
	f := sys.Facade

	_, err := f.AddEmployee(testutil.Owner, testutil.Alice, []asset.ID{testutil.ANT}, 1200)
	require.NoError(t, err)
	require.NoError(t, f.SetExchangeRate(testutil.Owner, asset.Native, 1))
	sys.Fund(asset.Native, 1000)

	require.NoError(t, f.EscapeHatch(testutil.Owner))

	assert.True(t, fault.IsState(f.Payday(testutil.Alice)))
	sys.Clock.Advance(100 * chrono.Month)
	assert.True(t, fault.IsState(f.Payday(testutil.Alice)))

	// The escrow vault is independent: already-quarantined funds would still
	// be claimable, and its own controls still answer.
	assert.False(t, sys.Vault.Paused())
}

// TestEmergencyWithdraw_RequiresPause tests the paused-only engine sweep
// through the facade.
func TestEmergencyWithdraw_RequiresPause(t *testing.T) {
	sys := testutil.NewSystem(t)
	f := sys.Facade
	sys.Fund(testutil.ANT, 500)

	err := f.EmergencyWithdraw(testutil.Owner, testutil.Owner)
	require.Error(t, err)
	assert.True(t, fault.IsState(err))

	require.NoError(t, f.Pause(testutil.Owner))
	require.NoError(t, f.EmergencyWithdraw(testutil.Owner, testutil.Owner))

	assert.Equal(t, int64(500), sys.Tokens[testutil.ANT].BalanceOf(testutil.Owner))
	assert.Equal(t, int64(0), sys.Engine.Balance(testutil.ANT))
}

// TestLifecycle_EndToEnd drives one full cycle through the facade: hire,
// rate setup, funding, allocation, payday, quarantine, and withdrawal.
func TestLifecycle_EndToEnd(t *testing.T) {
	sys := testutil.NewSystem(t)
	f := sys.Facade

	id, err := f.AddEmployee(testutil.Owner, testutil.Alice, []asset.ID{testutil.ANT, testutil.USD}, 1200)
	require.NoError(t, err)
	require.NoError(t, f.SetExchangeRate(testutil.Owner, testutil.ANT, 2))
	require.NoError(t, f.SetExchangeRate(testutil.Owner, asset.Native, 2))

	sys.Tokens[testutil.ANT].Mint(testutil.Owner, 200)
	require.NoError(t, f.AddFunds(testutil.Owner, testutil.ANT, 200))
	sys.Fund(testutil.USD, 200)
	sys.Fund(asset.Native, 200)

	require.NoError(t, f.DetermineAllocation(testutil.Alice, []asset.ID{testutil.ANT, testutil.USD}, []int64{20, 20}))
	require.NoError(t, f.Payday(testutil.Alice))

	emp, err := f.GetEmployee(id)
	require.NoError(t, err)
	assert.Equal(t, sys.Clock.Now(), emp.LastPayday)

	// Claim after the quarantine delay.
	assert.True(t, fault.IsTemporal(f.VaultWithdraw(testutil.Alice)))
	sys.Clock.Advance(chrono.QuarantineDelay)
	require.NoError(t, f.VaultWithdraw(testutil.Alice))

	assert.Equal(t, int64(10), sys.Tokens[testutil.ANT].BalanceOf(testutil.Alice))
	assert.Equal(t, int64(20), sys.Tokens[testutil.USD].BalanceOf(testutil.Alice))
	assert.Equal(t, int64(30), sys.Tokens[asset.Native].BalanceOf(testutil.Alice))

	// Each external call carries its own correlation token; the stream is
	// strictly sequenced.
	events := sys.Events.Events()
	require.NotEmpty(t, events)
	for i, e := range events {
		assert.Equal(t, int64(i+1), e.Seq)
	}
	paid := sys.Events.ByKind(event.KindPaid)
	q := sys.Events.ByKind(event.KindQuarantined)
	require.Len(t, paid, 1)
	require.Len(t, q, 3)
	for _, e := range q {
		assert.Equal(t, paid[0].CallToken, e.CallToken, "payday notifications share one call token")
	}
	w := sys.Events.ByKind(event.KindWithdrawn)
	require.Len(t, w, 1)
	assert.NotEqual(t, paid[0].CallToken, w[0].CallToken)
}

// TestFailedCall_EmitsNothing tests fail-atomic notification staging: a
// rejected call leaves no trace in the stream.
func TestFailedCall_EmitsNothing(t *testing.T) {
	sys := testutil.NewSystem(t)
	f := sys.Facade
	sys.Events.Reset()

	_, err := f.AddEmployee(testutil.Owner, testutil.Alice, []asset.ID{testutil.ANT}, 1000)
	require.Error(t, err)
	assert.Empty(t, sys.Events.Events())

	// A collaborator failure mid-disbursement aborts the whole call's
	// notifications, including ones staged before the failure.
	id, err := f.AddEmployee(testutil.Owner, testutil.Alice, []asset.ID{testutil.ANT}, 1200)
	require.NoError(t, err)
	require.NoError(t, f.SetExchangeRate(testutil.Owner, testutil.ANT, 1))
	require.NoError(t, f.SetExchangeRate(testutil.Owner, asset.Native, 1))
	require.NoError(t, f.DetermineAllocation(testutil.Alice, []asset.ID{testutil.ANT}, []int64{50}))
	sys.Fund(testutil.ANT, 1000)
	sys.Fund(asset.Native, 1000)
	sys.Events.Reset()

	sys.Tokens[asset.Native].FailNextTransfer()
	err = f.Payday(testutil.Alice)
	require.Error(t, err)
	assert.True(t, fault.IsCollaborator(err))
	assert.Empty(t, sys.Events.Events())

	emp, err := f.GetEmployee(id)
	require.NoError(t, err)
	assert.True(t, emp.LastPayday.IsZero())
}

// TestVaultForwarding tests that vault controls pass through with the
// vault's own latch semantics intact.
func TestVaultForwarding(t *testing.T) {
	sys := testutil.NewSystem(t)
	f := sys.Facade

	require.NoError(t, f.VaultPause(testutil.Owner))
	assert.True(t, sys.Vault.Paused())

	// The facade phase is untouched: the two pause mechanisms are
	// independent.
	assert.Equal(t, payroll.Normal, f.Phase())

	// Vault emergency sweep needs only the vault latch, not the facade's.
	require.NoError(t, f.VaultEmergencyWithdraw(testutil.Owner, testutil.Owner))

	require.NoError(t, f.VaultUnpause(testutil.Owner))
	assert.False(t, sys.Vault.Paused())
}

// TestBurnrateAndRunwayForwarding tests the read-model passthroughs.
func TestBurnrateAndRunwayForwarding(t *testing.T) {
	sys := testutil.NewSystem(t)
	f := sys.Facade

	_, err := f.AddEmployee(testutil.Owner, testutil.Alice, []asset.ID{testutil.ANT}, 1200)
	require.NoError(t, err)
	sys.Fund(testutil.USD, 500)

	assert.Equal(t, int64(100), f.CalculatePayrollBurnrate())
	months, err := f.CalculatePayrollRunwayInMonths()
	require.NoError(t, err)
	assert.Equal(t, int64(5), months)

	days, err := f.CalculatePayrollRunway()
	require.NoError(t, err)
	assert.Equal(t, int64(155), days)
}
