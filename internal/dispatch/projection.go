package dispatch

import (
	"github.com/roach88/causelog/internal/event"
)

// Handler processes a single dispatched event. It receives the payload after
// migration and the event's metadata (everything but the payload). The
// returned value is passed to hooks and the projection's Done callback.
type Handler func(payload map[string]any, meta event.Meta) (any, error)

// Projection is the read-side consumer of the event log. Implementations map
// commands to handlers and observe the dispatch lifecycle.
//
// Resolution order for an event's command: Handler, then Query, then Default.
// Default is the projection's catch-all; a projection whose Default returns
// nil drops unmatched commands with a handler error.
type Projection interface {
	// Handler returns the handler registered for command, if any.
	Handler(command string) (Handler, bool)

	// Query returns the raw query handler registered under name, if any.
	// Queries are consulted when no command handler matches.
	Query(name string) (Handler, bool)

	// Default returns the catch-all handler, or nil when there is none.
	Default() Handler

	// Done is called after every successful dispatch with the event and the
	// handler's result.
	Done(ev event.Event, result any)

	// OnError is called after every failed dispatch.
	OnError(herr *event.HandlerError)

	// Migrations returns the payload transformer registry for this
	// projection. May be nil.
	Migrations() Migrations
}

// MapProjection is a map-backed Projection for callers that don't need a
// custom type. The zero value is usable: every command falls through to
// Fallback, and nil callbacks are skipped.
type MapProjection struct {
	// Handlers maps commands to their handlers.
	Handlers map[string]Handler

	// Queries maps raw query names to handlers, consulted after Handlers.
	Queries map[string]Handler

	// Fallback handles commands matched by neither map. May be nil.
	Fallback Handler

	// OnDone observes successful dispatches. May be nil.
	OnDone func(ev event.Event, result any)

	// OnFailure observes failed dispatches. May be nil.
	OnFailure func(herr *event.HandlerError)

	// Migrate is the payload transformer registry. May be nil.
	Migrate Migrations
}

// Handler implements Projection.
func (p *MapProjection) Handler(command string) (Handler, bool) {
	h, ok := p.Handlers[command]
	return h, ok
}

// Query implements Projection.
func (p *MapProjection) Query(name string) (Handler, bool) {
	h, ok := p.Queries[name]
	return h, ok
}

// Default implements Projection.
func (p *MapProjection) Default() Handler {
	return p.Fallback
}

// Done implements Projection.
func (p *MapProjection) Done(ev event.Event, result any) {
	if p.OnDone != nil {
		p.OnDone(ev, result)
	}
}

// OnError implements Projection.
func (p *MapProjection) OnError(herr *event.HandlerError) {
	if p.OnFailure != nil {
		p.OnFailure(herr)
	}
}

// Migrations implements Projection.
func (p *MapProjection) Migrations() Migrations {
	return p.Migrate
}
