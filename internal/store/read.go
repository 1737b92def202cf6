package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/causelog/internal/event"
)

// eventColumns is the canonical column list for event queries, in scan order.
const eventColumns = "id, version, timestamp, actor, origin, command, payload, correlation_id, causation_id, metadata"

// ByID retrieves a single event. The boolean reports presence; a missing
// event is not an error.
//
// When a cache is configured the lookup goes through it. Events are
// immutable once written, so a cache hit is always accurate content-wise;
// only Reset and bulk appends drop cached entries.
func (s *Store) ByID(ctx context.Context, id int64) (event.Event, bool, error) {
	if ev, ok := s.cache.Get(id); ok {
		return ev, true, nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE id = ?
	`, id)

	ev, err := scanEventRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return event.Event{}, false, nil
	}
	if err != nil {
		return event.Event{}, false, fmt.Errorf("read event %d: %w", id, err)
	}

	s.cache.Put(id, ev)
	return ev, true, nil
}

// Transaction returns every event sharing a correlation id, ordered by id
// ascending. Returns an empty slice when the correlation is unknown.
func (s *Store) Transaction(ctx context.Context, correlationID string) ([]event.Event, error) {
	return s.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE correlation_id = ?
		ORDER BY id ASC
	`, correlationID)
}

// ChildrenOf returns the events directly caused by parentID, ordered by id
// ascending.
func (s *Store) ChildrenOf(ctx context.Context, parentID int64) ([]event.Event, error) {
	return s.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE causation_id = ?
		ORDER BY id ASC
	`, parentID)
}

// EventLineage returns the causation chain from the root down to the event
// with the given id, inclusive. An unknown id yields an empty slice.
//
// The walk follows causation_id upward one parent at a time. It stops early
// at a missing parent (orphaned chain: the topmost reachable ancestor opens
// the result) and at a repeated id (cyclic causation).
func (s *Store) EventLineage(ctx context.Context, id int64) ([]event.Event, error) {
	ev, ok, err := s.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []event.Event{}, nil
	}

	chain := []event.Event{ev}
	visited := map[int64]bool{id: true}

	cur := ev
	for cur.CausationID != nil {
		parentID := *cur.CausationID
		if visited[parentID] {
			break
		}

		parent, ok, err := s.ByID(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		visited[parentID] = true
		chain = append(chain, parent)
		cur = parent
	}

	slices.Reverse(chain)
	return chain, nil
}

// RootFilter narrows RootEvents. Zero-value fields are ignored.
type RootFilter struct {
	CorrelationID string
	Command       string

	// FromID and ToID bound the id range, inclusive. Zero means unbounded.
	FromID int64
	ToID   int64

	// PayloadField/PayloadValue keep only roots whose payload carries the
	// field with exactly this string value. Applied after the SQL filters;
	// payloads are opaque JSON to the database.
	PayloadField string
	PayloadValue string
}

// RootEvents returns events without a causation parent, ordered by id
// ascending, optionally narrowed by filter.
func (s *Store) RootEvents(ctx context.Context, filter RootFilter) ([]event.Event, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(eventColumns).From("events")

	conds := []string{sb.IsNull("causation_id")}
	if filter.CorrelationID != "" {
		conds = append(conds, sb.Equal("correlation_id", filter.CorrelationID))
	}
	if filter.Command != "" {
		conds = append(conds, sb.Equal("command", filter.Command))
	}
	if filter.FromID > 0 {
		conds = append(conds, sb.GreaterEqualThan("id", filter.FromID))
	}
	if filter.ToID > 0 {
		conds = append(conds, sb.LessEqualThan("id", filter.ToID))
	}
	sb.Where(conds...)
	sb.OrderBy("id").Asc()

	query, args := sb.Build()
	events, err := s.queryEvents(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	if filter.PayloadField == "" {
		return events, nil
	}

	matched := []event.Event{}
	for _, ev := range events {
		if matchPayloadField(ev, filter.PayloadField, filter.PayloadValue) {
			matched = append(matched, ev)
		}
	}
	return matched, nil
}

// matchPayloadField reports whether the payload carries field with the given
// string value. Both sides are NFC normalized first so visually identical
// strings match regardless of how their code points were composed.
func matchPayloadField(ev event.Event, field, value string) bool {
	raw, ok := ev.Payload[field]
	if !ok {
		return false
	}
	s, ok := raw.(string)
	if !ok {
		return false
	}
	return norm.NFC.String(s) == norm.NFC.String(value)
}

// FindOrphanedEvents returns events whose causation references a parent that
// does not exist. These are integrity warnings, not errors: the write path
// records dangling causations on purpose. Results ordered by id ASC.
func (s *Store) FindOrphanedEvents(ctx context.Context) ([]event.Event, error) {
	return s.queryEvents(ctx, `
		SELECT e.id, e.version, e.timestamp, e.actor, e.origin, e.command,
		       e.payload, e.correlation_id, e.causation_id, e.metadata
		FROM events e
		LEFT JOIN events pe ON e.causation_id = pe.id
		WHERE e.causation_id IS NOT NULL AND pe.id IS NULL
		ORDER BY e.id ASC
	`)
}

// Count returns the number of stored events.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Reset deletes every event, resets id assignment, and clears the cache.
// Intended for seeding fixtures and tests; the log is append-only in normal
// operation.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("reset: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("reset: delete events: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'events'`); err != nil {
		return fmt.Errorf("reset: reset sequence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("reset: commit: %w", err)
	}

	s.cache.Clear()
	return nil
}

// queryEvents runs a query whose columns match eventColumns and scans the
// result. Returns an empty slice instead of nil when nothing matches.
func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	// Return empty slice instead of nil
	if events == nil {
		events = []event.Event{}
	}

	return events, nil
}

// scanEvent scans a row into an Event struct.
func scanEvent(rows *sql.Rows) (event.Event, error) {
	var ev event.Event
	var ts, payloadJSON, metadataJSON string
	var causation sql.NullInt64

	if err := rows.Scan(
		&ev.ID, &ev.Version, &ts, &ev.Actor, &ev.Origin,
		&ev.Command, &payloadJSON, &ev.CorrelationID, &causation, &metadataJSON,
	); err != nil {
		return event.Event{}, fmt.Errorf("scan event: %w", err)
	}

	return finishEvent(ev, ts, payloadJSON, metadataJSON, causation)
}

// scanEventRow scans a single row into an Event struct.
// The raw scan error passes through so callers can test for sql.ErrNoRows.
func scanEventRow(row *sql.Row) (event.Event, error) {
	var ev event.Event
	var ts, payloadJSON, metadataJSON string
	var causation sql.NullInt64

	if err := row.Scan(
		&ev.ID, &ev.Version, &ts, &ev.Actor, &ev.Origin,
		&ev.Command, &payloadJSON, &ev.CorrelationID, &causation, &metadataJSON,
	); err != nil {
		return event.Event{}, err
	}

	return finishEvent(ev, ts, payloadJSON, metadataJSON, causation)
}

// finishEvent parses the text columns scanned by scanEvent/scanEventRow.
func finishEvent(ev event.Event, ts, payloadJSON, metadataJSON string, causation sql.NullInt64) (event.Event, error) {
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return event.Event{}, fmt.Errorf("parse timestamp: %w", err)
	}
	ev.Timestamp = parsed

	if causation.Valid {
		id := causation.Int64
		ev.CausationID = &id
	}

	payload, err := unmarshalJSONColumn(payloadJSON)
	if err != nil {
		return event.Event{}, err
	}
	ev.Payload = payload

	metadata, err := unmarshalJSONColumn(metadataJSON)
	if err != nil {
		return event.Event{}, err
	}
	ev.Metadata = metadata

	return ev, nil
}
