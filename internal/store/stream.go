package store

import (
	"context"
	"iter"

	"github.com/huandu/go-sqlbuilder"

	"github.com/roach88/causelog/internal/event"
)

// StreamOptions configures StreamEvents. At most one of CorrelationID,
// Actor, and Command may be set; combining them is a validation error.
type StreamOptions struct {
	// CorrelationID filters to a single transaction.
	CorrelationID string

	// Actor filters to events recorded for one actor.
	Actor string

	// Command filters to one command.
	Command string

	// StartID is the first event id considered. Zero streams from the
	// beginning of the log.
	StartID int64

	// EndID is the last event id considered, inclusive. Zero streams to the
	// end of the log.
	EndID int64

	// BatchSize caps the events per yielded batch.
	// Zero uses DefaultStreamBatchSize.
	BatchSize int
}

// StreamEvents pages through the log in id order, yielding batches of at
// most BatchSize events. After each batch the cursor advances to the last
// yielded id plus one, so every matching event is yielded exactly once. The
// stream ends at the first short page.
//
// A yielded error (query failure or context cancellation) is terminal.
// Validation problems are reported up front instead of through the stream.
func (s *Store) StreamEvents(ctx context.Context, opts StreamOptions) (iter.Seq2[[]event.Event, error], error) {
	if err := validateStreamOptions(opts); err != nil {
		return nil, err
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultStreamBatchSize
	}

	return func(yield func([]event.Event, error) bool) {
		cursor := opts.StartID
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			batch, err := s.streamBatch(ctx, opts, cursor, batchSize)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(batch) == 0 {
				return
			}

			if !yield(batch, nil) {
				return
			}

			cursor = batch[len(batch)-1].ID + 1
			if len(batch) < batchSize {
				return
			}
		}
	}, nil
}

// validateStreamOptions enforces the single-predicate rule.
func validateStreamOptions(opts StreamOptions) error {
	predicates := 0
	if opts.CorrelationID != "" {
		predicates++
	}
	if opts.Actor != "" {
		predicates++
	}
	if opts.Command != "" {
		predicates++
	}
	if predicates > 1 {
		return event.NewValidationError("stream", "at most one of correlation_id, actor, command may be set")
	}
	return nil
}

func (s *Store) streamBatch(ctx context.Context, opts StreamOptions, cursor int64, limit int) ([]event.Event, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(eventColumns)
	sb.From("events")
	sb.Where(sb.GreaterEqualThan("id", cursor))

	if opts.CorrelationID != "" {
		sb.Where(sb.Equal("correlation_id", opts.CorrelationID))
	}
	if opts.Actor != "" {
		sb.Where(sb.Equal("actor", opts.Actor))
	}
	if opts.Command != "" {
		sb.Where(sb.Equal("command", opts.Command))
	}
	if opts.EndID > 0 {
		sb.Where(sb.LessEqualThan("id", opts.EndID))
	}

	sb.OrderBy("id")
	sb.Asc()
	sb.Limit(limit)

	query, args := sb.Build()
	return s.queryEvents(ctx, query, args...)
}
