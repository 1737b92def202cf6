package event

import "time"

// Event is one immutable, append-only record in the log.
//
// ID is assigned at persist time by the store and is strictly increasing
// across the lifetime of a log. CausationID, when set, references the id of
// the event that directly produced this one; a nil CausationID marks a root
// event. CorrelationID groups all events of one logical transaction and is
// inherited across causation edges unless explicitly overridden.
type Event struct {
	ID            int64          `json:"id"`
	Version       int            `json:"version"`
	Timestamp     time.Time      `json:"timestamp"`
	Actor         string         `json:"actor,omitempty"`
	Origin        string         `json:"origin,omitempty"`
	Command       string         `json:"command"`
	Payload       map[string]any `json:"payload,omitempty"`
	CorrelationID string         `json:"correlation_id"`
	CausationID   *int64         `json:"causation_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Root reports whether the event has no causation parent.
func (e Event) Root() bool {
	return e.CausationID == nil
}

// Meta is the event context handed to projection handlers alongside the
// migrated payload. It mirrors Event minus the payload itself.
type Meta struct {
	ID            int64          `json:"id"`
	Version       int            `json:"version"`
	Timestamp     time.Time      `json:"timestamp"`
	Actor         string         `json:"actor,omitempty"`
	Origin        string         `json:"origin,omitempty"`
	Command       string         `json:"command"`
	CorrelationID string         `json:"correlation_id"`
	CausationID   *int64         `json:"causation_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Meta extracts the handler-facing context from an event.
func (e Event) Meta() Meta {
	return Meta{
		ID:            e.ID,
		Version:       e.Version,
		Timestamp:     e.Timestamp,
		Actor:         e.Actor,
		Origin:        e.Origin,
		Command:       e.Command,
		CorrelationID: e.CorrelationID,
		CausationID:   e.CausationID,
		Metadata:      e.Metadata,
	}
}

// Request describes one event to append. Command is the only required field.
//
// Version defaults to 1 when zero. CorrelationID and CausationID drive the
// resolution rules applied at persist time:
//   - neither given: a fresh correlation id is generated (new root transaction)
//   - CausationID only: the parent's correlation id is inherited
//   - CorrelationID given: used as-is regardless of CausationID
type Request struct {
	Actor         string         `json:"actor,omitempty"`
	Origin        string         `json:"origin,omitempty"`
	Command       string         `json:"command"`
	Payload       map[string]any `json:"payload,omitempty"`
	Version       int            `json:"version,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	CausationID   *int64         `json:"causation_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// CausedBy returns a pointer to id for use as a Request.CausationID.
func CausedBy(id int64) *int64 {
	return &id
}
