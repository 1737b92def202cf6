package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/causelog/internal/event"
	"github.com/roach88/causelog/internal/lineage"
)

// ValidRelations lists the relation queries the lineage command accepts.
var ValidRelations = []string{"children", "descendants", "siblings", "cousins", "family", "depth", "influence"}

var relationLabels = map[string]string{
	"children":    "Children",
	"descendants": "Descendants",
	"siblings":    "Siblings",
	"cousins":     "Cousins",
	"family":      "Family",
	"depth":       "Depth",
	"influence":   "Influence",
}

// LineageOptions holds flags for the lineage command.
type LineageOptions struct {
	*RootOptions
	Database string
	EventID  int64
	Relation string
}

// LineageEventRef is one related event in the JSON payload.
type LineageEventRef struct {
	EventID       int64  `json:"event_id"`
	Command       string `json:"command"`
	Depth         int    `json:"depth,omitempty"`
	CorrelationID string `json:"correlation_id"`
}

// LineageListResult is the JSON payload for relations that return events.
type LineageListResult struct {
	EventID  int64             `json:"event_id"`
	Relation string            `json:"relation"`
	Count    int               `json:"count"`
	Events   []LineageEventRef `json:"events"`
}

// LineageValueResult is the JSON payload for depth and influence. Value is
// null when the event does not exist.
type LineageValueResult struct {
	EventID  int64  `json:"event_id"`
	Relation string `json:"relation"`
	Value    *int   `json:"value"`
}

// NewLineageCommand creates the lineage command.
func NewLineageCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LineageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lineage",
		Short: "Query causal relations of an event",
		Long: `Query the causal neighbourhood of one event.

Relations:
  children     events caused directly by the event
  descendants  everything reachable through causation, breadth-first
  siblings     other children of the same parent
  cousins      same transaction, neither ancestor, descendant nor sibling
  family       ancestors, descendants and cousins combined
  depth        causation distance from the root
  influence    number of descendants

Examples:
  causelog lineage --db ./events.db --event 1 --relation children
  causelog lineage --db ./events.db --event 1 --relation descendants --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineage(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().Int64Var(&opts.EventID, "event", 0, "event id to query (required)")
	_ = cmd.MarkFlagRequired("event")
	cmd.Flags().StringVar(&opts.Relation, "relation", "children", "relation to query")

	return cmd
}

func runLineage(opts *LineageOptions, cmd *cobra.Command) error {
	if _, ok := relationLabels[opts.Relation]; !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid relation %q: must be one of %v", opts.Relation, ValidRelations))
	}

	ctx := context.Background()
	st, err := openStore(opts.Database, true)
	if err != nil {
		return err
	}
	defer st.Close()

	engine := lineage.New(st)

	switch opts.Relation {
	case "depth":
		depth, found, err := engine.Depth(ctx, opts.EventID)
		if err != nil {
			return WrapExitError(ExitCommandError, "depth query failed", err)
		}
		return outputLineageValue(cmd, opts, depth, found)

	case "influence":
		influence, err := engine.Influence(ctx, opts.EventID)
		if err != nil {
			return WrapExitError(ExitCommandError, "influence query failed", err)
		}
		return outputLineageValue(cmd, opts, influence, true)

	case "descendants":
		nodes, err := engine.Descendants(ctx, opts.EventID)
		if err != nil {
			return WrapExitError(ExitCommandError, "descendants query failed", err)
		}
		refs := make([]LineageEventRef, 0, len(nodes))
		for _, n := range nodes {
			refs = append(refs, LineageEventRef{
				EventID:       n.Event.ID,
				Command:       n.Event.Command,
				Depth:         n.Depth,
				CorrelationID: n.Event.CorrelationID,
			})
		}
		return outputLineageList(cmd, opts, refs)

	default:
		var events []event.Event
		switch opts.Relation {
		case "children":
			events, err = engine.Children(ctx, opts.EventID)
		case "siblings":
			events, err = engine.Siblings(ctx, opts.EventID)
		case "cousins":
			events, err = engine.Cousins(ctx, opts.EventID)
		case "family":
			events, err = engine.Family(ctx, opts.EventID)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("%s query failed", opts.Relation), err)
		}
		return outputLineageList(cmd, opts, eventRefs(events))
	}
}

// eventRefs projects events onto the JSON reference shape.
func eventRefs(events []event.Event) []LineageEventRef {
	refs := make([]LineageEventRef, 0, len(events))
	for _, ev := range events {
		refs = append(refs, LineageEventRef{
			EventID:       ev.ID,
			Command:       ev.Command,
			CorrelationID: ev.CorrelationID,
		})
	}
	return refs
}

func outputLineageList(cmd *cobra.Command, opts *LineageOptions, refs []LineageEventRef) error {
	if opts.Format == "json" {
		return writeJSON(cmd, LineageListResult{
			EventID:  opts.EventID,
			Relation: opts.Relation,
			Count:    len(refs),
			Events:   refs,
		})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s of event %d: %d\n", relationLabels[opts.Relation], opts.EventID, len(refs))
	if len(refs) == 0 {
		fmt.Fprintln(w, "  (none)")
		return nil
	}
	for _, ref := range refs {
		line := fmt.Sprintf("  [%d] %s", ref.EventID, ref.Command)
		if opts.Relation == "descendants" {
			line += fmt.Sprintf(" (depth %d)", ref.Depth)
		}
		if opts.Verbose {
			line += fmt.Sprintf(" correlation=%s", ref.CorrelationID)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func outputLineageValue(cmd *cobra.Command, opts *LineageOptions, value int, found bool) error {
	if opts.Format == "json" {
		result := LineageValueResult{EventID: opts.EventID, Relation: opts.Relation}
		if found {
			result.Value = &value
		}
		return writeJSON(cmd, result)
	}

	w := cmd.OutOrStdout()
	if !found {
		fmt.Fprintf(w, "Event %d not found.\n", opts.EventID)
		return nil
	}
	fmt.Fprintf(w, "%s of event %d: %d\n", relationLabels[opts.Relation], opts.EventID, value)
	return nil
}
