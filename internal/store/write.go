package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/causelog/internal/dispatch"
	"github.com/roach88/causelog/internal/event"
)

// rowQuerier is the subset of database/sql used for parent lookups.
// Satisfied by both *sql.DB and *sql.Tx so bulk appends can resolve parents
// written earlier in the same transaction.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// execer is the subset of database/sql used for inserts.
// Satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Append validates req, resolves its correlation, inserts the event, and
// dispatches it to projection. It returns the stored event and the dispatch
// outcome.
//
// The write is durable before dispatch runs; a failing handler shows up in
// the Result but never as the returned error. The returned error is reserved
// for validation and storage failures, in which case nothing was persisted.
//
// The read cache is not touched: a cached event stays served from cache even
// after later appends.
func (s *Store) Append(ctx context.Context, req event.Request, projection dispatch.Projection, hooks dispatch.Hooks) (event.Event, dispatch.Result, error) {
	if err := validateRequest(req); err != nil {
		return event.Event{}, dispatch.Result{}, err
	}

	correlationID, err := s.resolveCorrelation(ctx, s.db, req)
	if err != nil {
		return event.Event{}, dispatch.Result{}, err
	}

	ev, err := s.insertEvent(ctx, s.db, req, correlationID)
	if err != nil {
		return event.Event{}, dispatch.Result{}, err
	}

	return ev, s.dispatcher.Execute(ev, projection, hooks), nil
}

// AppendBulk inserts all requests in a single transaction, then dispatches
// each stored event in order. Either every event persists or none does: the
// first invalid request or failed insert rolls the whole batch back and
// returns a *event.BulkAbortError naming the offending position.
//
// Causation parents may live earlier in the same batch; correlation
// resolution sees them through the open transaction.
//
// After a successful commit the read cache is cleared once, before any
// dispatch runs.
func (s *Store) AppendBulk(ctx context.Context, reqs []event.Request, projection dispatch.Projection, hooks dispatch.Hooks) ([]event.Event, []dispatch.Result, error) {
	if len(reqs) == 0 {
		return []event.Event{}, []dispatch.Result{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("append bulk: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	events := make([]event.Event, 0, len(reqs))
	for i, req := range reqs {
		if err := validateRequest(req); err != nil {
			return nil, nil, event.NewBulkAbortError(i, req.Command, err)
		}

		correlationID, err := s.resolveCorrelation(ctx, tx, req)
		if err != nil {
			return nil, nil, event.NewBulkAbortError(i, req.Command, err)
		}

		ev, err := s.insertEvent(ctx, tx, req, correlationID)
		if err != nil {
			return nil, nil, event.NewBulkAbortError(i, req.Command, err)
		}

		events = append(events, ev)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("append bulk: commit: %w", err)
	}

	// Bulk writes clear the cache once after commit
	s.cache.Clear()

	results := make([]dispatch.Result, len(events))
	for i, ev := range events {
		results[i] = s.dispatcher.Execute(ev, projection, hooks)
	}

	return events, results, nil
}

// validateRequest rejects requests that must never reach storage.
func validateRequest(req event.Request) error {
	if req.Command == "" {
		return event.NewValidationError("command", "must not be empty")
	}
	if req.Version < 0 {
		return event.NewValidationError("version", "must not be negative")
	}
	return nil
}

// resolveCorrelation determines the correlation id for a request:
//  1. An explicit correlation wins as-is.
//  2. A caused event inherits its parent's correlation.
//  3. Otherwise a fresh correlation is generated.
//
// A causation pointing at a missing parent gets a fresh correlation and a
// warning; the event is stored regardless and FindOrphanedEvents reports it.
func (s *Store) resolveCorrelation(ctx context.Context, q rowQuerier, req event.Request) (string, error) {
	if req.CorrelationID != "" {
		return req.CorrelationID, nil
	}

	if req.CausationID != nil {
		var parentCorrelation string
		err := q.QueryRowContext(ctx, `
			SELECT correlation_id FROM events WHERE id = ?
		`, *req.CausationID).Scan(&parentCorrelation)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			id := s.corrGen.Generate()
			s.logger.Warn("causation parent not found, starting new correlation",
				"causation_id", *req.CausationID,
				"correlation_id", id,
				"command", req.Command,
			)
			return id, nil
		case err != nil:
			return "", fmt.Errorf("resolve correlation: %w", err)
		}
		return parentCorrelation, nil
	}

	return s.corrGen.Generate(), nil
}

// insertEvent writes one row and returns the stored event with its assigned
// id and timestamp.
func (s *Store) insertEvent(ctx context.Context, x execer, req event.Request, correlationID string) (event.Event, error) {
	payloadJSON, err := marshalJSONColumn(req.Payload)
	if err != nil {
		return event.Event{}, fmt.Errorf("insert event: payload: %w", err)
	}

	metadataJSON, err := marshalJSONColumn(req.Metadata)
	if err != nil {
		return event.Event{}, fmt.Errorf("insert event: metadata: %w", err)
	}

	version := req.Version
	if version == 0 {
		version = 1
	}
	ts := s.clock.Now().UTC()

	result, err := x.ExecContext(ctx, `
		INSERT INTO events
		(version, timestamp, actor, origin, command, payload, correlation_id, causation_id, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		version,
		ts.Format(time.RFC3339Nano),
		req.Actor,
		req.Origin,
		req.Command,
		payloadJSON,
		correlationID,
		req.CausationID,
		metadataJSON,
	)
	if err != nil {
		return event.Event{}, fmt.Errorf("insert event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return event.Event{}, fmt.Errorf("insert event: last insert id: %w", err)
	}

	return event.Event{
		ID:            id,
		Version:       version,
		Timestamp:     ts,
		Actor:         req.Actor,
		Origin:        req.Origin,
		Command:       req.Command,
		Payload:       emptyIfNil(req.Payload),
		CorrelationID: correlationID,
		CausationID:   req.CausationID,
		Metadata:      emptyIfNil(req.Metadata),
	}, nil
}
