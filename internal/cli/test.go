package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/payhatch/payhatch/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
}

// ScenarioResult is one scenario's outcome in the test report.
type ScenarioResult struct {
	Name          string   `json:"name"`
	Path          string   `json:"path"`
	Pass          bool     `json:"pass"`
	Notifications int      `json:"notifications"`
	Errors        []string `json:"errors,omitempty"`
}

// TestReport aggregates a test run.
type TestReport struct {
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

func (r TestReport) String() string {
	var b strings.Builder
	for _, s := range r.Scenarios {
		status := "PASS"
		if !s.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "%s\t%s\n", status, s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(&b, "\t%s\n", e)
		}
	}
	fmt.Fprintf(&b, "%d passed, %d failed", r.Passed, r.Failed)
	return b.String()
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario.yaml>...",
		Short: "Run conformance scenarios",
		Long: `Run YAML conformance scenarios against fresh systems.

Each scenario wires its own deterministic system, executes the declared
flow, checks expected faults, and applies its trace and state assertions.
Exit code 1 if any scenario fails.

Example:
  payhatch test ./scenarios/payday_cycle.yaml
  payhatch test ./scenarios/*.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	return cmd
}

func runScenarios(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var report TestReport
	for _, path := range paths {
		s, err := harness.LoadScenario(path)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("loading %s", path), err)
		}

		formatter.VerboseLog("running %s", s.Name)
		res, err := harness.Run(s)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("running %s", s.Name), err)
		}

		sr := ScenarioResult{
			Name:          s.Name,
			Path:          path,
			Pass:          res.Pass,
			Notifications: len(res.Trace),
			Errors:        res.Errors,
		}
		if res.Pass {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Scenarios = append(report.Scenarios, sr)
	}

	if err := formatter.Success(report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", report.Failed))
	}
	return nil
}
