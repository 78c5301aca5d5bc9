package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payhatch/payhatch/internal/store"
)

// TestRun_TextSummary tests applying the fixture config and the reported
// posture: burnrate 300/month, runway (200*2 + 200*1 + 200*2)/300 = 3.
func TestRun_TextSummary(t *testing.T) {
	stdout, _, err := executeCommand("run", "testdata/payroll.cue")
	require.NoError(t, err)

	assert.Contains(t, stdout, "employees: 2")
	assert.Contains(t, stdout, "burnrate: 300/month")
	assert.Contains(t, stdout, "runway: 3 months")
}

// TestRun_JSONSummary tests the JSON envelope.
func TestRun_JSONSummary(t *testing.T) {
	stdout, _, err := executeCommand("--format", "json", "run", "testdata/payroll.cue")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Employees)
	assert.Equal(t, int64(300), resp.Data.BurnratePerMonth)
	assert.Equal(t, int64(3), resp.Data.RunwayMonths)
	assert.Greater(t, resp.Data.Notifications, 0)
}

// TestRun_WritesAuditLog tests that --audit persists the full stream.
func TestRun_WritesAuditLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	_, _, err := executeCommand("run", "testdata/payroll.cue", "--audit", path)
	require.NoError(t, err)

	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	events, err := st.ReadAll()
	require.NoError(t, err)
	assert.NotEmpty(t, events)

	seq, err := st.LastSeq()
	require.NoError(t, err)
	assert.Equal(t, events[len(events)-1].Seq, seq)
}

// TestRun_DomainRejection tests that a schema-clean config breaking a
// domain rule fails with the operation's fault.
func TestRun_DomainRejection(t *testing.T) {
	_, _, err := executeCommand("run", "testdata/invalid_salary.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "applying config")
}

// TestValidate_OK tests the validate command on the fixture config.
func TestValidate_OK(t *testing.T) {
	stdout, _, err := executeCommand("validate", "testdata/payroll.cue")
	require.NoError(t, err)
	assert.Contains(t, stdout, "valid (2 employees, 3 assets)")
}

// TestValidate_SchemaFailure tests schema rejection output.
func TestValidate_SchemaFailure(t *testing.T) {
	stdout, _, err := executeCommand("validate", "testdata/invalid_rate.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E003]")
}

// TestValidate_DomainFailure tests that validate also runs domain rules.
func TestValidate_DomainFailure(t *testing.T) {
	stdout, _, err := executeCommand("validate", "testdata/invalid_salary.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E004]")
}
