package cli

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/causelog/internal/event"
	"github.com/roach88/causelog/internal/store"
	"github.com/roach88/causelog/internal/testutil"
)

func testDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// seedOrderLog writes the standard order fixture with deterministic
// timestamps and correlations, then closes the store:
//
//	txn-0001                txn-0002
//	[1] order.placed        [5] user.registered
//	├── [2] payment.captured
//	│   └── [4] order.shipped
//	└── [3] inventory.reserved
func seedOrderLog(t *testing.T, dbPath string) {
	t.Helper()
	st, err := store.Open(dbPath,
		store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		store.WithClock(testutil.DefaultTickingClock()),
		store.WithCorrelationGenerator(testutil.NewSequentialCorrelation("txn")),
	)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	reqs := []event.Request{
		{Command: "order.placed"},
		{Command: "payment.captured", CausationID: event.CausedBy(1)},
		{Command: "inventory.reserved", CausationID: event.CausedBy(1)},
		{Command: "order.shipped", CausationID: event.CausedBy(2)},
		{Command: "user.registered"},
	}
	for _, req := range reqs {
		_, _, err := st.Append(ctx, req, nil, nil)
		require.NoError(t, err)
	}
}

// seedEmptyLog creates the database file without writing any events.
func seedEmptyLog(t *testing.T, dbPath string) {
	t.Helper()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())
}
