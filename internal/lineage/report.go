package lineage

import (
	"cmp"
	"context"
	"slices"
	"time"
)

// CommandCount is one row of a report's command distribution.
type CommandCount struct {
	Command string `json:"command"`
	Count   int    `json:"count"`
}

// EventRef names an event in a report without carrying its full row.
type EventRef struct {
	EventID int64  `json:"event_id"`
	Command string `json:"command"`
}

// BranchPoint is an event with more than one direct child.
type BranchPoint struct {
	EventID  int64  `json:"event_id"`
	Command  string `json:"command"`
	Children int    `json:"children"`
}

// Report summarizes the causal structure of one correlation. It is the
// machine-readable rendering; RenderText and RenderTree derive the other
// two from the same data.
type Report struct {
	CorrelationID string         `json:"correlation_id"`
	TotalEvents   int            `json:"total_events"`
	Roots         int            `json:"roots"`
	MaxDepth      int            `json:"max_depth"`
	AverageDepth  float64        `json:"average_depth"`
	Commands      []CommandCount `json:"commands"`
	FirstEvent    time.Time      `json:"first_event"`
	LastEvent     time.Time      `json:"last_event"`
	Span          string         `json:"span"`
	BranchPoints  []BranchPoint  `json:"branch_points"`
	LeafEvents    []EventRef     `json:"leaf_events"`
	CriticalPath  []EventRef     `json:"critical_path"`
}

// BuildReport assembles the report for one correlation. Membership, command
// distribution, and the time span come from the correlation's own events;
// depth and branching read the global causation structure, so children that
// overrode their correlation id still count toward their parent's branching.
func (e *Engine) BuildReport(ctx context.Context, correlationID string) (*Report, error) {
	members, err := e.reader.Transaction(ctx, correlationID)
	if err != nil {
		return nil, err
	}

	r := &Report{
		CorrelationID: correlationID,
		TotalEvents:   len(members),
		Commands:      []CommandCount{},
		BranchPoints:  []BranchPoint{},
		LeafEvents:    []EventRef{},
		CriticalPath:  []EventRef{},
	}
	if len(members) == 0 {
		return r, nil
	}

	counts := map[string]int{}
	first, last := members[0].Timestamp, members[0].Timestamp
	depthSum := 0

	for _, m := range members {
		counts[m.Command]++
		if m.Timestamp.Before(first) {
			first = m.Timestamp
		}
		if m.Timestamp.After(last) {
			last = m.Timestamp
		}
		if m.CausationID == nil {
			r.Roots++
		}

		depth, _, err := e.Depth(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		depthSum += depth
		if depth > r.MaxDepth {
			r.MaxDepth = depth
		}

		children, err := e.reader.ChildrenOf(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		switch {
		case len(children) == 0:
			r.LeafEvents = append(r.LeafEvents, EventRef{EventID: m.ID, Command: m.Command})
		case len(children) > 1:
			r.BranchPoints = append(r.BranchPoints, BranchPoint{
				EventID:  m.ID,
				Command:  m.Command,
				Children: len(children),
			})
		}
	}

	r.AverageDepth = float64(depthSum) / float64(len(members))
	r.FirstEvent = first
	r.LastEvent = last
	r.Span = last.Sub(first).String()

	for command, count := range counts {
		r.Commands = append(r.Commands, CommandCount{Command: command, Count: count})
	}
	slices.SortFunc(r.Commands, func(a, b CommandCount) int {
		if a.Count != b.Count {
			return cmp.Compare(b.Count, a.Count) // most frequent first
		}
		return cmp.Compare(a.Command, b.Command)
	})

	path, err := e.CriticalPath(ctx, correlationID)
	if err != nil {
		return nil, err
	}
	for _, ev := range path {
		r.CriticalPath = append(r.CriticalPath, EventRef{EventID: ev.ID, Command: ev.Command})
	}

	return r, nil
}
