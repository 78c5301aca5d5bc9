package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidateResult reports the outcome of config validation.
type ValidateResult struct {
	Path      string `json:"path"`
	Employees int    `json:"employees"`
	Assets    int    `json:"assets"`
}

func (r ValidateResult) String() string {
	return fmt.Sprintf("%s: valid (%d employees, %d assets)", r.Path, r.Employees, r.Assets)
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <config.cue>",
		Short: "Validate a config against the schema and domain rules",
		Long: `Validate a payhatch configuration file.

The config is checked against the embedded CUE schema, then applied to a
throwaway system so every domain rule runs: salary divisibility,
allocation percentages and sums, accepted-asset membership, and rate
constraints. Nothing is persisted.

Example:
  payhatch validate ./payroll.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(opts, args[0], cmd)
		},
	}

	return cmd
}

func validateConfig(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		_ = formatter.Error(ErrCodeConfigInvalid, err.Error(), nil)
		return err
	}

	formatter.VerboseLog("schema ok, applying to throwaway system")
	if _, err := applyConfig(cfg, nil); err != nil {
		wrapped := WrapExitError(ExitFailure, "config rejected", err)
		_ = formatter.Error(ErrCodeConfigApply, wrapped.Error(), nil)
		return wrapped
	}

	return formatter.Success(ValidateResult{
		Path:      path,
		Employees: len(cfg.Employees),
		Assets:    len(cfg.Assets),
	})
}
