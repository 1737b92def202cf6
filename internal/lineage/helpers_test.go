package lineage

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/causelog/internal/event"
	"github.com/roach88/causelog/internal/store"
	"github.com/roach88/causelog/internal/testutil"
)

// setupTestEngine creates an engine over a real SQLite store with a ticking
// clock and sequential correlation ids, so fixtures are fully deterministic.
func setupTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(dir+"/test.db",
		store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		store.WithClock(testutil.DefaultTickingClock()),
		store.WithCorrelationGenerator(testutil.NewSequentialCorrelation("txn")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return New(s), s
}

func appendEvent(t *testing.T, s *store.Store, req event.Request) event.Event {
	t.Helper()
	ev, _, err := s.Append(context.Background(), req, nil, nil)
	require.NoError(t, err)
	return ev
}

// seedFamily builds the standard two-correlation fixture:
//
//	txn-0001            txn-0002
//	[1] order.placed    [7] user.registered
//	├── [2] payment.captured
//	│   └── [4] order.shipped
//	│       └── [6] delivery.confirmed
//	└── [3] inventory.reserved
//	    └── [5] stock.adjusted
func seedFamily(t *testing.T, s *store.Store) {
	t.Helper()
	appendEvent(t, s, event.Request{Command: "order.placed"})
	appendEvent(t, s, event.Request{Command: "payment.captured", CausationID: event.CausedBy(1)})
	appendEvent(t, s, event.Request{Command: "inventory.reserved", CausationID: event.CausedBy(1)})
	appendEvent(t, s, event.Request{Command: "order.shipped", CausationID: event.CausedBy(2)})
	appendEvent(t, s, event.Request{Command: "stock.adjusted", CausationID: event.CausedBy(3)})
	appendEvent(t, s, event.Request{Command: "delivery.confirmed", CausationID: event.CausedBy(4)})
	appendEvent(t, s, event.Request{Command: "user.registered"})
}

// eventIDs projects a slice of events onto their ids.
func eventIDs(events []event.Event) []int64 {
	ids := make([]int64, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	return ids
}

// nodeIDs projects traversal nodes onto their event ids.
func nodeIDs(nodes []Node) []int64 {
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.Event.ID
	}
	return ids
}
