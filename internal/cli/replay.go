package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/payhatch/payhatch/internal/auth"
	"github.com/payhatch/payhatch/internal/chrono"
	"github.com/payhatch/payhatch/internal/event"
	"github.com/payhatch/payhatch/internal/ledger"
	"github.com/payhatch/payhatch/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
}

// ReplayedEmployee is one registry record reconstructed from the log.
type ReplayedEmployee struct {
	ID         int64            `json:"id"`
	Account    string           `json:"account"`
	Yearly     int64            `json:"yearly"`
	Active     bool             `json:"active"`
	Accepted   []string         `json:"accepted"`
	Allocation map[string]int64 `json:"allocation,omitempty"`
}

// ReplayResult is the outcome of folding an audit log.
type ReplayResult struct {
	Notifications int                `json:"notifications"`
	Employees     []ReplayedEmployee `json:"employees"`
}

func (r ReplayResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "replayed %d notification(s), %d employee(s)", r.Notifications, len(r.Employees))
	for _, emp := range r.Employees {
		status := "active"
		if !emp.Active {
			status = "removed"
		}
		fmt.Fprintf(&b, "\n%d\t%s\t%d/year\t%s\taccepts %s",
			emp.ID, emp.Account, emp.Yearly, status, strings.Join(emp.Accepted, ","))
	}
	return b.String()
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <audit.db>",
		Short: "Rebuild the employee registry from the audit log",
		Long: `Fold an audit log back into the employee registry.

Replays every registry notification in sequence order and prints the
reconstructed records. A log that references unknown employees or carries
malformed payloads fails loudly; a clean exit proves the log is
sufficient to recover registry state.

Example:
  payhatch replay ./audit.db
  payhatch replay ./audit.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return replayLog(opts, args[0], cmd)
		},
	}

	return cmd
}

func replayLog(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, "audit log not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening audit log", err)
	}
	defer st.Close()

	events, err := st.ReadAll()
	if err != nil {
		return WrapExitError(ExitCommandError, "reading audit log", err)
	}

	// The rebuilt registry is read-only here; the policy and recorder are
	// throwaways satisfying the constructor.
	policy := auth.NewPolicy("payhatch:replay")
	rec := event.NewRecorder(chrono.SystemClock{}, event.NewSequencer(), event.UUIDv7Generator{})
	registry, err := ledger.Rebuild(policy, rec, events)
	if err != nil {
		return WrapExitError(ExitFailure, "audit log does not fold cleanly", err)
	}

	result := ReplayResult{Notifications: len(events)}
	for _, id := range replayedIDs(events) {
		emp, err := registry.Get(id)
		if err != nil {
			return WrapExitError(ExitFailure, "reading rebuilt registry", err)
		}
		accepted := make([]string, len(emp.AcceptedAssets))
		for i, a := range emp.AcceptedAssets {
			accepted[i] = string(a)
		}
		allocation := make(map[string]int64, len(emp.Allocation))
		for a, pct := range emp.Allocation {
			allocation[string(a)] = pct
		}
		result.Employees = append(result.Employees, ReplayedEmployee{
			ID:         emp.ID,
			Account:    string(emp.Account),
			Yearly:     emp.Yearly,
			Active:     emp.Active,
			Accepted:   accepted,
			Allocation: allocation,
		})
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	return formatter.Success(result)
}

// replayedIDs extracts every employee id the log registered, in first
// appearance order.
func replayedIDs(events []event.Event) []int64 {
	var ids []int64
	seen := map[int64]bool{}
	for _, e := range events {
		if e.Kind != event.KindEmployeeAdded {
			continue
		}
		id, ok := e.Fields["employee_id"].(int64)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
