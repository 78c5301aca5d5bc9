package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/payhatch/payhatch/internal/event"
	"github.com/payhatch/payhatch/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Kind      string
	CallToken string
	Since     int64
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <audit.db>",
		Short: "Read the audit log",
		Long: `Read committed notifications from a SQLite audit log.

Without filters, prints the full stream in sequence order. Filters
compose: --kind restricts to one notification kind, --call-token to one
external call, --since to sequence numbers after the given value.

Example:
  payhatch trace ./audit.db
  payhatch trace ./audit.db --kind paid
  payhatch trace ./audit.db --call-token 0191e4a0-... --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return traceLog(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter by notification kind")
	cmd.Flags().StringVar(&opts.CallToken, "call-token", "", "filter by call token")
	cmd.Flags().Int64Var(&opts.Since, "since", 0, "only sequence numbers after this value")

	return cmd
}

func traceLog(opts *TraceOptions, path string, cmd *cobra.Command) error {
	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, "audit log not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening audit log", err)
	}
	defer st.Close()

	events, err := readFiltered(st, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading audit log", err)
	}

	if opts.Format == "json" {
		maps := make([]any, len(events))
		for i, e := range events {
			maps[i] = e.CanonicalMap()
		}
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(maps)
	}

	out := cmd.OutOrStdout()
	for _, e := range events {
		fields, err := event.MarshalCanonical(e.Fields)
		if err != nil {
			return WrapExitError(ExitFailure, "encoding notification fields", err)
		}
		fmt.Fprintf(out, "%d\t%s\t%s\t%s\t%s\n",
			e.Seq, e.At.UTC().Format(time.RFC3339), e.Kind, e.CallToken, fields)
	}
	fmt.Fprintf(out, "%d notification(s)\n", len(events))
	return nil
}

// readFiltered applies the narrowest store-side filter, then the remaining
// filters in memory.
func readFiltered(st *store.Store, opts *TraceOptions) ([]event.Event, error) {
	var (
		events []event.Event
		err    error
	)
	switch {
	case opts.CallToken != "":
		events, err = st.ReadByCallToken(opts.CallToken)
	case opts.Kind != "":
		events, err = st.ReadByKind(event.Kind(opts.Kind))
	case opts.Since > 0:
		events, err = st.ReadSince(opts.Since)
	default:
		events, err = st.ReadAll()
	}
	if err != nil {
		return nil, err
	}

	var out []event.Event
	for _, e := range events {
		if opts.Kind != "" && e.Kind != event.Kind(opts.Kind) {
			continue
		}
		if opts.CallToken != "" && e.CallToken != opts.CallToken {
			continue
		}
		if opts.Since > 0 && e.Seq <= opts.Since {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
