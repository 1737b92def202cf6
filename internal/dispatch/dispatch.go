package dispatch

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/causelog/internal/event"
)

// Reserved hook names. All other keys in a Hooks map are matched against
// event commands.
const (
	// HookDefault receives every successful dispatch whose command has no
	// hook of its own.
	HookDefault = "_default"

	// HookError receives every failed dispatch.
	HookError = "_error"
)

// HookFunc observes a dispatch outcome. On success result holds the handler's
// return value and herr is nil; on failure result is nil and herr carries the
// full event context.
type HookFunc func(result any, ev event.Event, herr *event.HandlerError)

// Hooks maps commands (and the reserved HookDefault/HookError names) to
// observers. A nil map is valid.
type Hooks map[string]HookFunc

// Result is the outcome of a single dispatch. Exactly one of Value and Err is
// meaningful: a successful dispatch carries the handler's return value, a
// failed one carries the handler error.
type Result struct {
	Value any
	Err   *event.HandlerError
}

// Ok reports whether the dispatch succeeded.
func (r Result) Ok() bool {
	return r.Err == nil
}

// Dispatcher executes projection handlers for persisted events.
type Dispatcher struct {
	logger *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for dispatch failures.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// New creates a Dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Execute dispatches ev to projection and reports the outcome through hooks
// and the projection's lifecycle callbacks.
//
// The event's payload is migrated to the command's current version first,
// then the handler is resolved: command handler, raw query handler, default.
// A migration error, a missing handler, a handler error, and a handler panic
// are all reported the same way: error hook, projection.OnError, an Error log
// line, and Result.Err. Execute itself never fails; the write that produced
// ev is already durable and is not affected by anything that happens here.
//
// A nil projection disables dispatch and returns an empty successful Result.
func (d *Dispatcher) Execute(ev event.Event, projection Projection, hooks Hooks) Result {
	if projection == nil {
		return Result{}
	}

	payload, err := projection.Migrations().Apply(ev.Command, ev.Version, ev.Payload)
	if err != nil {
		return d.fail("payload migration failed", ev, err, projection, hooks)
	}

	handler := resolveHandler(projection, ev.Command)
	if handler == nil {
		return d.fail("no handler for command", ev, errors.New("projection has no matching or default handler"), projection, hooks)
	}

	result, err := invoke(handler, payload, ev.Meta())
	if err != nil {
		return d.fail("handler failed", ev, err, projection, hooks)
	}

	if hook := successHook(hooks, ev.Command); hook != nil {
		hook(result, ev, nil)
	}
	projection.Done(ev, result)

	return Result{Value: result}
}

// resolveHandler picks the handler for command: exact command handler, then
// raw query handler of the same name, then the projection default.
func resolveHandler(p Projection, command string) Handler {
	if h, ok := p.Handler(command); ok {
		return h
	}
	if h, ok := p.Query(command); ok {
		return h
	}
	return p.Default()
}

func successHook(hooks Hooks, command string) HookFunc {
	if hook, ok := hooks[command]; ok {
		return hook
	}
	return hooks[HookDefault]
}

// invoke runs the handler. A panicking handler is reported like a failed one.
func invoke(h Handler, payload map[string]any, meta event.Meta) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return h(payload, meta)
}

// fail builds the handler error, reports it, and returns the failed Result.
func (d *Dispatcher) fail(message string, ev event.Event, cause error, projection Projection, hooks Hooks) Result {
	herr := event.NewHandlerError(message, ev, cause)

	d.logger.Error("dispatch failed",
		"error", cause,
		"reason", message,
		"command", ev.Command,
		"event_id", ev.ID,
		"correlation_id", ev.CorrelationID,
	)

	if hook := hooks[HookError]; hook != nil {
		hook(nil, ev, herr)
	}
	projection.OnError(herr)

	return Result{Err: herr}
}
