package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/causelog/internal/event"
)

// createTestStore creates a file-backed store in a temp dir.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustAppend appends a single event without a projection and fails the test
// on error.
func mustAppend(t *testing.T, s *Store, req event.Request) event.Event {
	t.Helper()
	ev, _, err := s.Append(context.Background(), req, nil, nil)
	if err != nil {
		t.Fatalf("Append(%q) failed: %v", req.Command, err)
	}
	return ev
}

// seedChain appends a root followed by a causation chain of the given
// commands and returns the events in order.
func seedChain(t *testing.T, s *Store, commands ...string) []event.Event {
	t.Helper()
	events := make([]event.Event, 0, len(commands))
	for i, command := range commands {
		req := event.Request{Command: command}
		if i > 0 {
			req.CausationID = event.CausedBy(events[i-1].ID)
		}
		events = append(events, mustAppend(t, s, req))
	}
	return events
}
