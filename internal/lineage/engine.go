package lineage

import (
	"context"

	"github.com/roach88/causelog/internal/event"
	"github.com/roach88/causelog/internal/store"
)

// Reader is the slice of the event log the engine reads. *store.Store
// satisfies it.
type Reader interface {
	ByID(ctx context.Context, id int64) (event.Event, bool, error)
	ChildrenOf(ctx context.Context, parentID int64) ([]event.Event, error)
	Transaction(ctx context.Context, correlationID string) ([]event.Event, error)
	RootEvents(ctx context.Context, filter store.RootFilter) ([]event.Event, error)
	FindOrphanedEvents(ctx context.Context) ([]event.Event, error)
}

// Engine runs lineage queries over the causation forest. It never mutates
// the log.
type Engine struct {
	reader Reader
}

// New creates an Engine over the given reader.
func New(reader Reader) *Engine {
	return &Engine{reader: reader}
}
