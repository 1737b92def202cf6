package lineage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/roach88/causelog/internal/event"
	"github.com/roach88/causelog/internal/store"
)

// RenderText writes the report as sectioned text.
func RenderText(w io.Writer, r *Report) error {
	fmt.Fprintf(w, "Report for Correlation: %s\n", r.CorrelationID)
	fmt.Fprintf(w, "Events: %d (roots: %d, leaves: %d)\n", r.TotalEvents, r.Roots, len(r.LeafEvents))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Commands ===")
	if len(r.Commands) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		for _, c := range r.Commands {
			fmt.Fprintf(w, "  %s: %d\n", c.Command, c.Count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Time Span ===")
	if r.TotalEvents == 0 {
		fmt.Fprintln(w, "  (no events)")
	} else {
		fmt.Fprintf(w, "  First: %s\n", r.FirstEvent.Format(time.RFC3339))
		fmt.Fprintf(w, "  Last:  %s\n", r.LastEvent.Format(time.RFC3339))
		fmt.Fprintf(w, "  Span:  %s\n", r.Span)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Depth ===")
	fmt.Fprintf(w, "  Max:     %d\n", r.MaxDepth)
	fmt.Fprintf(w, "  Average: %.2f\n", r.AverageDepth)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Branch Points ===")
	if len(r.BranchPoints) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		for _, bp := range r.BranchPoints {
			fmt.Fprintf(w, "  [%d] %s (%d children)\n", bp.EventID, bp.Command, bp.Children)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Leaf Events ===")
	if len(r.LeafEvents) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		for _, leaf := range r.LeafEvents {
			fmt.Fprintf(w, "  [%d] %s\n", leaf.EventID, leaf.Command)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Critical Path ===")
	if len(r.CriticalPath) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		parts := make([]string, len(r.CriticalPath))
		for i, step := range r.CriticalPath {
			parts[i] = step.Command
		}
		fmt.Fprintf(w, "  %s\n", strings.Join(parts, " -> "))
		fmt.Fprintf(w, "  Length: %d\n", len(r.CriticalPath))
	}

	return nil
}

// RenderTree writes the causation tree for every root of a correlation
// using box-drawing connectors. Nodes reached through a causation edge
// appear under their parent even when they overrode their correlation id.
func (e *Engine) RenderTree(ctx context.Context, w io.Writer, correlationID string) error {
	roots, err := e.reader.RootEvents(ctx, store.RootFilter{CorrelationID: correlationID})
	if err != nil {
		return err
	}

	fmt.Fprintln(w, correlationID)
	if len(roots) == 0 {
		fmt.Fprintln(w, "└── (no events)")
		return nil
	}

	visited := map[int64]bool{}
	for i, root := range roots {
		if err := e.renderNode(ctx, w, root, "", i == len(roots)-1, visited); err != nil {
			return err
		}
	}
	return nil
}

// renderNode prints one node and recurses into its children. The visited
// set stops expansion on cyclic causation.
func (e *Engine) renderNode(ctx context.Context, w io.Writer, ev event.Event, prefix string, last bool, visited map[int64]bool) error {
	connector := "├── "
	childPrefix := prefix + "│   "
	if last {
		connector = "└── "
		childPrefix = prefix + "    "
	}

	fmt.Fprintf(w, "%s%s[%d] %s\n", prefix, connector, ev.ID, ev.Command)

	if visited[ev.ID] {
		return nil
	}
	visited[ev.ID] = true

	children, err := e.reader.ChildrenOf(ctx, ev.ID)
	if err != nil {
		return err
	}
	for i, child := range children {
		if err := e.renderNode(ctx, w, child, childPrefix, i == len(children)-1, visited); err != nil {
			return err
		}
	}
	return nil
}
