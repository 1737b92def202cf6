package store

import (
	"context"
	"fmt"

	"github.com/huandu/go-sqlbuilder"

	"github.com/roach88/causelog/internal/dispatch"
	"github.com/roach88/causelog/internal/event"
)

// Checkpointer is implemented by checkpoint or snapshot services that track
// how far a projection has been rebuilt. Checkpoint reports the id of the
// last event already applied.
type Checkpointer interface {
	Checkpoint(ctx context.Context) (lastID int64, err error)
}

// ResumeOptions asks cp for the last applied event id and returns options
// that continue a CycleThrough pass immediately after it.
func ResumeOptions(ctx context.Context, cp Checkpointer) (CycleOptions, error) {
	lastID, err := cp.Checkpoint(ctx)
	if err != nil {
		return CycleOptions{}, fmt.Errorf("reading checkpoint: %w", err)
	}
	return CycleOptions{StartID: lastID + 1}, nil
}

// CycleOptions bounds a CycleThrough pass. The zero value covers the whole
// log.
type CycleOptions struct {
	// StartID is the first event id dispatched. Zero starts at the
	// beginning of the log.
	StartID int64

	// StopID, when positive, is the first event id NOT dispatched
	// (exclusive upper bound).
	StopID int64

	// PageSize overrides the store's configured page size for this pass.
	PageSize int
}

// CycleThrough re-dispatches stored events to projection in id order, one
// page at a time. This is how projections are rebuilt and how payload
// migrations are exercised over historical events.
//
// Handler failures never abort the pass; they are contained per event
// exactly as in Append. A storage error or context cancellation aborts the
// pass and is returned.
//
// onDone runs exactly once, after the final page completed cleanly. It is
// skipped on an aborted pass.
func (s *Store) CycleThrough(ctx context.Context, projection dispatch.Projection, hooks dispatch.Hooks, onDone func(), opts CycleOptions) error {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = s.pageSize
	}

	cursor := opts.StartID
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := s.cyclePage(ctx, cursor, opts.StopID, pageSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}

		for _, ev := range page {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.dispatcher.Execute(ev, projection, hooks)
		}

		cursor = page[len(page)-1].ID + 1
		if len(page) < pageSize {
			break
		}
	}

	if onDone != nil {
		onDone()
	}
	return nil
}

func (s *Store) cyclePage(ctx context.Context, cursor, stopID int64, limit int) ([]event.Event, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(eventColumns)
	sb.From("events")
	sb.Where(sb.GreaterEqualThan("id", cursor))
	if stopID > 0 {
		sb.Where(sb.LessThan("id", stopID))
	}
	sb.OrderBy("id")
	sb.Asc()
	sb.Limit(limit)

	query, args := sb.Build()
	return s.queryEvents(ctx, query, args...)
}
