package dispatch

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/causelog/internal/event"
)

func newTestDispatcher() *Dispatcher {
	return New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func testEvent(command string) event.Event {
	return event.Event{
		ID:            1,
		Version:       1,
		Command:       command,
		Payload:       map[string]any{"value": 10},
		CorrelationID: "txn-1",
	}
}

func TestExecute_CommandHandlerWins(t *testing.T) {
	d := newTestDispatcher()

	var called string
	projection := &MapProjection{
		Handlers: map[string]Handler{
			"order.placed": func(payload map[string]any, meta event.Meta) (any, error) {
				called = "command"
				return "ok", nil
			},
		},
		Queries: map[string]Handler{
			"order.placed": func(payload map[string]any, meta event.Meta) (any, error) {
				called = "query"
				return nil, nil
			},
		},
		Fallback: func(payload map[string]any, meta event.Meta) (any, error) {
			called = "default"
			return nil, nil
		},
	}

	res := d.Execute(testEvent("order.placed"), projection, nil)

	require.True(t, res.Ok())
	assert.Equal(t, "command", called)
	assert.Equal(t, "ok", res.Value)
}

func TestExecute_QueryHandlerBeforeDefault(t *testing.T) {
	d := newTestDispatcher()

	var called string
	projection := &MapProjection{
		Queries: map[string]Handler{
			"stats.daily": func(payload map[string]any, meta event.Meta) (any, error) {
				called = "query"
				return 42, nil
			},
		},
		Fallback: func(payload map[string]any, meta event.Meta) (any, error) {
			called = "default"
			return nil, nil
		},
	}

	res := d.Execute(testEvent("stats.daily"), projection, nil)

	require.True(t, res.Ok())
	assert.Equal(t, "query", called)
	assert.Equal(t, 42, res.Value)
}

func TestExecute_DefaultHandlerCatchesAll(t *testing.T) {
	d := newTestDispatcher()

	var gotCommand string
	projection := &MapProjection{
		Fallback: func(payload map[string]any, meta event.Meta) (any, error) {
			gotCommand = meta.Command
			return nil, nil
		},
	}

	res := d.Execute(testEvent("unknown.command"), projection, nil)

	require.True(t, res.Ok())
	assert.Equal(t, "unknown.command", gotCommand)
}

func TestExecute_NoHandlerAnywhere(t *testing.T) {
	d := newTestDispatcher()

	var onErrCalled *event.HandlerError
	projection := &MapProjection{
		OnFailure: func(herr *event.HandlerError) { onErrCalled = herr },
	}

	var hookErr *event.HandlerError
	hooks := Hooks{
		HookError: func(result any, ev event.Event, herr *event.HandlerError) {
			hookErr = herr
		},
	}

	res := d.Execute(testEvent("order.placed"), projection, hooks)

	require.False(t, res.Ok())
	assert.Equal(t, "no handler for command", res.Err.Message)
	assert.Same(t, res.Err, onErrCalled)
	assert.Same(t, res.Err, hookErr)
}

func TestExecute_HandlerReceivesPayloadAndMeta(t *testing.T) {
	d := newTestDispatcher()

	var gotPayload map[string]any
	var gotMeta event.Meta
	projection := &MapProjection{
		Handlers: map[string]Handler{
			"order.placed": func(payload map[string]any, meta event.Meta) (any, error) {
				gotPayload = payload
				gotMeta = meta
				return nil, nil
			},
		},
	}

	ev := testEvent("order.placed")
	ev.Actor = "checkout"
	res := d.Execute(ev, projection, nil)

	require.True(t, res.Ok())
	assert.Equal(t, map[string]any{"value": 10}, gotPayload)
	assert.Equal(t, int64(1), gotMeta.ID)
	assert.Equal(t, "checkout", gotMeta.Actor)
	assert.Equal(t, "txn-1", gotMeta.CorrelationID)
}

func TestExecute_SuccessHooks(t *testing.T) {
	d := newTestDispatcher()

	projection := &MapProjection{
		Handlers: map[string]Handler{
			"order.placed": func(payload map[string]any, meta event.Meta) (any, error) {
				return "result", nil
			},
		},
	}

	t.Run("command hook wins over default hook", func(t *testing.T) {
		var called string
		hooks := Hooks{
			"order.placed": func(result any, ev event.Event, herr *event.HandlerError) {
				called = "command"
				assert.Equal(t, "result", result)
				assert.Nil(t, herr)
			},
			HookDefault: func(result any, ev event.Event, herr *event.HandlerError) {
				called = "default"
			},
		}

		res := d.Execute(testEvent("order.placed"), projection, hooks)
		require.True(t, res.Ok())
		assert.Equal(t, "command", called)
	})

	t.Run("default hook when no command hook", func(t *testing.T) {
		var called string
		hooks := Hooks{
			HookDefault: func(result any, ev event.Event, herr *event.HandlerError) {
				called = "default"
			},
		}

		res := d.Execute(testEvent("order.placed"), projection, hooks)
		require.True(t, res.Ok())
		assert.Equal(t, "default", called)
	})

	t.Run("error hook not fired on success", func(t *testing.T) {
		hooks := Hooks{
			HookError: func(result any, ev event.Event, herr *event.HandlerError) {
				t.Error("error hook fired on success")
			},
		}

		res := d.Execute(testEvent("order.placed"), projection, hooks)
		require.True(t, res.Ok())
	})
}

func TestExecute_DoneCalledOnSuccess(t *testing.T) {
	d := newTestDispatcher()

	var doneEvent event.Event
	var doneResult any
	projection := &MapProjection{
		Handlers: map[string]Handler{
			"order.placed": func(payload map[string]any, meta event.Meta) (any, error) {
				return "result", nil
			},
		},
		OnDone: func(ev event.Event, result any) {
			doneEvent = ev
			doneResult = result
		},
	}

	res := d.Execute(testEvent("order.placed"), projection, nil)

	require.True(t, res.Ok())
	assert.Equal(t, int64(1), doneEvent.ID)
	assert.Equal(t, "result", doneResult)
}

func TestExecute_HandlerErrorIsContained(t *testing.T) {
	d := newTestDispatcher()

	boom := errors.New("boom")
	doneCalled := false
	var onErr *event.HandlerError
	projection := &MapProjection{
		Handlers: map[string]Handler{
			"order.placed": func(payload map[string]any, meta event.Meta) (any, error) {
				return nil, boom
			},
		},
		OnDone:    func(ev event.Event, result any) { doneCalled = true },
		OnFailure: func(herr *event.HandlerError) { onErr = herr },
	}

	commandHookCalled := false
	var hookErr *event.HandlerError
	hooks := Hooks{
		"order.placed": func(result any, ev event.Event, herr *event.HandlerError) {
			commandHookCalled = true
		},
		HookError: func(result any, ev event.Event, herr *event.HandlerError) {
			hookErr = herr
			assert.Nil(t, result)
		},
	}

	res := d.Execute(testEvent("order.placed"), projection, hooks)

	require.False(t, res.Ok())
	assert.ErrorIs(t, res.Err, boom)
	assert.Equal(t, "handler failed", res.Err.Message)
	assert.Equal(t, "order.placed", res.Err.Command)
	assert.Equal(t, int64(1), res.Err.ID)
	assert.Equal(t, "txn-1", res.Err.CorrelationID)

	assert.False(t, doneCalled, "Done must not fire after a failure")
	assert.False(t, commandHookCalled, "success hook must not fire after a failure")
	assert.Same(t, res.Err, hookErr)
	assert.Same(t, res.Err, onErr)
}

func TestExecute_HandlerPanicIsContained(t *testing.T) {
	d := newTestDispatcher()

	projection := &MapProjection{
		Handlers: map[string]Handler{
			"order.placed": func(payload map[string]any, meta event.Meta) (any, error) {
				panic("handler exploded")
			},
		},
	}

	var res Result
	assert.NotPanics(t, func() {
		res = d.Execute(testEvent("order.placed"), projection, nil)
	})

	require.False(t, res.Ok())
	assert.Contains(t, res.Err.Err.Error(), "handler exploded")
}

func TestExecute_MigrationRunsBeforeHandler(t *testing.T) {
	d := newTestDispatcher()

	migrations := Migrations{}
	migrations.Register("order.placed", 1, func(payload map[string]any) (map[string]any, error) {
		payload["currency"] = "EUR"
		return payload, nil
	})

	var gotPayload map[string]any
	projection := &MapProjection{
		Handlers: map[string]Handler{
			"order.placed": func(payload map[string]any, meta event.Meta) (any, error) {
				gotPayload = payload
				return nil, nil
			},
		},
		Migrate: migrations,
	}

	ev := testEvent("order.placed")
	res := d.Execute(ev, projection, nil)

	require.True(t, res.Ok())
	assert.Equal(t, "EUR", gotPayload["currency"])

	// The event's own payload stays as stored
	_, ok := ev.Payload["currency"]
	assert.False(t, ok, "stored payload must not be rewritten")
}

func TestExecute_MigrationFailureSkipsHandler(t *testing.T) {
	d := newTestDispatcher()

	migrations := Migrations{}
	migrations.Register("order.placed", 1, func(payload map[string]any) (map[string]any, error) {
		return nil, errors.New("bad shape")
	})

	handlerCalled := false
	var onErr *event.HandlerError
	projection := &MapProjection{
		Handlers: map[string]Handler{
			"order.placed": func(payload map[string]any, meta event.Meta) (any, error) {
				handlerCalled = true
				return nil, nil
			},
		},
		OnFailure: func(herr *event.HandlerError) { onErr = herr },
		Migrate:   migrations,
	}

	res := d.Execute(testEvent("order.placed"), projection, nil)

	require.False(t, res.Ok())
	assert.Equal(t, "payload migration failed", res.Err.Message)
	assert.False(t, handlerCalled)
	require.NotNil(t, onErr)
}

func TestExecute_NilProjection(t *testing.T) {
	d := newTestDispatcher()

	res := d.Execute(testEvent("order.placed"), nil, nil)

	assert.True(t, res.Ok())
	assert.Nil(t, res.Value)
}
