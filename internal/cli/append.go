package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/causelog/internal/event"
)

// AppendOptions holds flags for the append command.
type AppendOptions struct {
	*RootOptions
	Database    string
	Command     string
	Actor       string
	Origin      string
	Payload     string
	Causation   int64
	Correlation string
	Version     int
}

// AppendResult is the JSON payload for a successful append.
type AppendResult struct {
	EventID       int64  `json:"event_id"`
	Command       string `json:"command"`
	CorrelationID string `json:"correlation_id"`
	CausationID   *int64 `json:"causation_id,omitempty"`
}

// NewAppendCommand creates the append command.
func NewAppendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AppendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "append",
		Short: "Append one event to the log",
		Long: `Append a single event and print the assigned id and correlation.

Without --causation or --correlation the event starts a fresh transaction.
With --causation only, the event joins its parent's transaction.

Examples:
  causelog append --db ./events.db --command order.placed --payload '{"sku":"A-100"}'
  causelog append --db ./events.db --command payment.captured --causation 1
  causelog append --db ./events.db --command audit.recorded --causation 4 --correlation audit-trail`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAppend(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Command, "command", "", "command name (required)")
	_ = cmd.MarkFlagRequired("command")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "actor recorded on the event")
	cmd.Flags().StringVar(&opts.Origin, "origin", "", "origin recorded on the event")
	cmd.Flags().StringVar(&opts.Payload, "payload", "", "payload as a JSON object")
	cmd.Flags().Int64Var(&opts.Causation, "causation", 0, "id of the causing event")
	cmd.Flags().StringVar(&opts.Correlation, "correlation", "", "explicit correlation id")
	cmd.Flags().IntVar(&opts.Version, "version", 0, "payload version (defaults to 1)")

	return cmd
}

func runAppend(opts *AppendOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	req := event.Request{
		Actor:         opts.Actor,
		Origin:        opts.Origin,
		Command:       opts.Command,
		Version:       opts.Version,
		CorrelationID: opts.Correlation,
	}
	if opts.Payload != "" {
		var payload map[string]any
		if err := json.Unmarshal([]byte(opts.Payload), &payload); err != nil {
			return WrapExitError(ExitCommandError, "invalid --payload JSON", err)
		}
		req.Payload = payload
	}
	if opts.Causation > 0 {
		req.CausationID = event.CausedBy(opts.Causation)
	}

	st, err := openStore(opts.Database, false)
	if err != nil {
		return err
	}
	defer st.Close()

	ev, _, err := st.Append(ctx, req, nil, nil)
	if err != nil {
		return WrapExitError(ExitFailure, "append failed", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd, AppendResult{
			EventID:       ev.ID,
			Command:       ev.Command,
			CorrelationID: ev.CorrelationID,
			CausationID:   ev.CausationID,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Appended event [%d] %s (correlation: %s)\n", ev.ID, ev.Command, ev.CorrelationID)
	return nil
}
