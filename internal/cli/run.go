package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/payhatch/payhatch/internal/asset"
	"github.com/payhatch/payhatch/internal/event"
	"github.com/payhatch/payhatch/internal/payroll"
	"github.com/payhatch/payhatch/internal/store"
)

// Holding accounts used by CLI-wired systems. Distinct from any
// operator-supplied account by the "payhatch:" prefix.
const (
	engineHoldingAccount asset.Account = "payhatch:engine"
	vaultHoldingAccount  asset.Account = "payhatch:vault"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Audit string
}

// RunSummary is the payroll posture after applying a config.
type RunSummary struct {
	Employees        int   `json:"employees"`
	BurnratePerMonth int64 `json:"burnrate_per_month"`
	RunwayMonths     int64 `json:"runway_months"`
	Notifications    int   `json:"notifications"`
}

func (s RunSummary) String() string {
	return fmt.Sprintf("employees: %d\nburnrate: %d/month\nrunway: %d months\nnotifications: %d",
		s.Employees, s.BurnratePerMonth, s.RunwayMonths, s.Notifications)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <config.cue>",
		Short: "Apply a config to a fresh system and report payroll posture",
		Long: `Apply a payhatch configuration to a freshly wired system.

The system runs against simulated token balances: rates are set, the
roster is registered, allocations applied, and funding deposited, exactly
as the live operations would. The command then reports the resulting
burnrate and runway.

With --audit, every committed notification is also appended to a SQLite
audit log at the given path (created if missing).

Example:
  payhatch run ./payroll.cue
  payhatch run ./payroll.cue --audit ./audit.db --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Audit, "audit", "", "path to SQLite audit log (optional)")

	return cmd
}

func runConfig(opts *RunOptions, path string, cmd *cobra.Command) error {
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	slog.Debug("config loaded", "path", path,
		"assets", len(cfg.Assets), "employees", len(cfg.Employees))

	var sinks []event.Sink
	events := event.NewMemorySink()
	sinks = append(sinks, events)

	if opts.Audit != "" {
		slog.Debug("opening audit log", "path", opts.Audit)
		st, err := store.Open(opts.Audit)
		if err != nil {
			return WrapExitError(ExitCommandError, "opening audit log", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("closing audit log", "error", closeErr)
			}
		}()
		sinks = append(sinks, st)
	}

	sys, err := applyConfig(cfg, sinks)
	if err != nil {
		return WrapExitError(ExitFailure, "applying config", err)
	}

	summary := RunSummary{
		Employees:        sys.Facade.GetEmployeeCount(),
		BurnratePerMonth: sys.Facade.CalculatePayrollBurnrate(),
		Notifications:    len(events.Events()),
	}
	if summary.BurnratePerMonth > 0 {
		months, err := sys.Facade.CalculatePayrollRunwayInMonths()
		if err != nil {
			return WrapExitError(ExitFailure, "computing runway", err)
		}
		summary.RunwayMonths = months
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	return formatter.Success(summary)
}

// applyConfig wires a system over simulated tokens and drives the config
// through the facade: rates, roster, allocations, funding. Every step is a
// real audited operation, so a config that breaks a domain rule fails here
// with the operation's own fault.
func applyConfig(cfg *Config, sinks []event.Sink) (*payroll.System, error) {
	owner := asset.Account(cfg.Owner)

	mocks := map[asset.ID]*asset.MockToken{}
	tokens := map[asset.ID]asset.Token{}
	for _, id := range cfg.assetIDs() {
		tok := asset.NewMockToken(id)
		mocks[id] = tok
		tokens[id] = tok
	}

	sys, err := payroll.Wire(payroll.Config{
		Owner:         owner,
		EngineAccount: engineHoldingAccount,
		VaultAccount:  vaultHoldingAccount,
		Reference:     asset.ID(cfg.Reference),
		Tokens:        tokens,
		Sinks:         sinks,
	})
	if err != nil {
		return nil, err
	}

	for _, name := range sortedKeys(cfg.Assets) {
		ac := cfg.Assets[name]
		if name == cfg.Reference || ac.Rate == 0 {
			continue
		}
		slog.Debug("setting exchange rate", "asset", name, "rate", ac.Rate)
		if err := sys.Facade.SetExchangeRate(owner, asset.ID(name), ac.Rate); err != nil {
			return nil, err
		}
	}

	for _, emp := range cfg.Employees {
		accepted := make([]asset.ID, len(emp.Accepted))
		for i, a := range emp.Accepted {
			accepted[i] = asset.ID(a)
		}
		slog.Debug("registering employee", "account", emp.Account, "yearly", emp.Yearly)
		id, err := sys.Facade.AddEmployee(owner, asset.Account(emp.Account), accepted, emp.Yearly)
		if err != nil {
			return nil, err
		}
		if len(emp.Allocation) > 0 {
			names := sortedKeys(emp.Allocation)
			assets := make([]asset.ID, len(names))
			percents := make([]int64, len(names))
			for i, n := range names {
				assets[i] = asset.ID(n)
				percents[i] = emp.Allocation[n]
			}
			slog.Debug("applying allocation", "employee", id)
			if err := sys.Facade.DetermineAllocation(asset.Account(emp.Account), assets, percents); err != nil {
				return nil, err
			}
		}
	}

	for _, name := range sortedKeys(cfg.Funding) {
		amount := cfg.Funding[name]
		id := asset.ID(name)
		mocks[id].Mint(owner, amount)
		slog.Debug("funding engine", "asset", name, "amount", amount)
		if err := sys.Facade.AddFunds(owner, id, amount); err != nil {
			return nil, err
		}
	}

	return sys, nil
}
