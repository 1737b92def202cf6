package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/causelog/internal/event"
)

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	Database string
	ID       int64
}

// GetResult is the JSON payload for the get command.
type GetResult struct {
	Found bool         `json:"found"`
	Event *event.Event `json:"event,omitempty"`
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Fetch one event by id",
		Long: `Fetch a single event by id and print its fields.

A missing id is not an error: the command reports it and exits 0.

Examples:
  causelog get --db ./events.db --id 42
  causelog get --db ./events.db --id 42 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().Int64Var(&opts.ID, "id", 0, "event id (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func runGet(opts *GetOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openStore(opts.Database, true)
	if err != nil {
		return err
	}
	defer st.Close()

	ev, found, err := st.ByID(ctx, opts.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read event", err)
	}

	if opts.Format == "json" {
		result := GetResult{Found: found}
		if found {
			result.Event = &ev
		}
		return writeJSON(cmd, result)
	}

	w := cmd.OutOrStdout()
	if !found {
		fmt.Fprintf(w, "Event %d not found.\n", opts.ID)
		return nil
	}

	fmt.Fprintf(w, "Event [%d] %s\n", ev.ID, ev.Command)
	fmt.Fprintf(w, "  Version:     %d\n", ev.Version)
	fmt.Fprintf(w, "  Timestamp:   %s\n", ev.Timestamp.Format(time.RFC3339))
	if ev.Actor != "" {
		fmt.Fprintf(w, "  Actor:       %s\n", ev.Actor)
	}
	if ev.Origin != "" {
		fmt.Fprintf(w, "  Origin:      %s\n", ev.Origin)
	}
	fmt.Fprintf(w, "  Correlation: %s\n", ev.CorrelationID)
	if ev.CausationID != nil {
		fmt.Fprintf(w, "  Causation:   %d\n", *ev.CausationID)
	} else {
		fmt.Fprintln(w, "  Causation:   (root)")
	}
	if len(ev.Payload) > 0 {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to render payload", err)
		}
		fmt.Fprintf(w, "  Payload:     %s\n", payload)
	}
	if len(ev.Metadata) > 0 {
		metadata, err := json.Marshal(ev.Metadata)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to render metadata", err)
		}
		fmt.Fprintf(w, "  Metadata:    %s\n", metadata)
	}
	return nil
}
