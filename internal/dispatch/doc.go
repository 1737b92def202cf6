// Package dispatch routes persisted events to projection handlers.
//
// Dispatch happens after an event is written (or re-read during a replay) and
// never affects the log itself. Handler resolution is three-tiered: a handler
// registered under the event's command, then a raw query handler of the same
// name, then the projection's default handler. The migrated payload and the
// event's metadata are passed to whichever handler wins.
//
// Handler and payload-migration failures are contained: they are wrapped in
// an *event.HandlerError, delivered to the error hook and the projection's
// OnError, logged, and recorded on the returned Result. Execute never returns
// a Go error, so a failing projection can never block the event log.
package dispatch
