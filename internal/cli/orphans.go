package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// OrphansOptions holds flags for the orphans command.
type OrphansOptions struct {
	*RootOptions
	Database      string
	FailOnOrphans bool
}

// OrphanRef is one orphaned event in the JSON payload.
type OrphanRef struct {
	EventID       int64  `json:"event_id"`
	Command       string `json:"command"`
	MissingParent int64  `json:"missing_parent"`
	CorrelationID string `json:"correlation_id"`
}

// OrphansResult is the JSON payload for the orphans command.
type OrphansResult struct {
	Count  int         `json:"count"`
	Events []OrphanRef `json:"events"`
}

// NewOrphansCommand creates the orphans command.
func NewOrphansCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrphansOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "List events whose causation parent is missing",
		Long: `List orphaned events: entries whose causation id references no stored
event. Orphans are accepted at write time and surface here as an
integrity warning.

With --fail-on-orphans the command exits 1 when any orphan exists, for
use in integrity checks.

Examples:
  causelog orphans --db ./events.db
  causelog orphans --db ./events.db --fail-on-orphans
  causelog orphans --db ./events.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrphans(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&opts.FailOnOrphans, "fail-on-orphans", false, "exit 1 when orphans are found")

	return cmd
}

func runOrphans(opts *OrphansOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openStore(opts.Database, true)
	if err != nil {
		return err
	}
	defer st.Close()

	orphans, err := st.FindOrphanedEvents(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find orphans", err)
	}

	result := OrphansResult{Count: len(orphans), Events: make([]OrphanRef, 0, len(orphans))}
	for _, ev := range orphans {
		ref := OrphanRef{EventID: ev.ID, Command: ev.Command, CorrelationID: ev.CorrelationID}
		if ev.CausationID != nil {
			ref.MissingParent = *ev.CausationID
		}
		result.Events = append(result.Events, ref)
	}

	if opts.Format == "json" {
		if result.Count > 0 && opts.FailOnOrphans {
			if err := writeErrorJSON(cmd, fmt.Sprintf("%d orphaned events", result.Count), result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, fmt.Sprintf("%d orphaned events", result.Count))
		}
		return writeJSON(cmd, result)
	}

	w := cmd.OutOrStdout()
	if result.Count == 0 {
		fmt.Fprintln(w, "No orphaned events.")
		return nil
	}

	fmt.Fprintf(w, "WARNING: %d orphaned events reference missing parents\n", result.Count)
	for _, ref := range result.Events {
		fmt.Fprintf(w, "  [%d] %s (missing parent %d)\n", ref.EventID, ref.Command, ref.MissingParent)
	}
	if opts.FailOnOrphans {
		return NewExitError(ExitFailure, fmt.Sprintf("%d orphaned events", result.Count))
	}
	return nil
}
