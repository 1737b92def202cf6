package event

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// CorrelationGenerator mints correlation identifiers for events that start a
// new business transaction.
type CorrelationGenerator interface {
	// Generate returns a new unique correlation identifier.
	Generate() string
}

// UUIDv7Generator generates time-ordered UUIDv7 correlation identifiers.
// This is the default generator.
type UUIDv7Generator struct{}

// NewUUIDv7Generator creates a UUIDv7-based correlation generator.
func NewUUIDv7Generator() *UUIDv7Generator {
	return &UUIDv7Generator{}
}

// Generate returns a new UUIDv7 string.
func (g *UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns a predetermined sequence of correlation identifiers.
// It is intended for tests that need reproducible transaction boundaries.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns the given identifiers
// in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next identifier in the sequence. It panics when the
// sequence is exhausted, since running out mid-test indicates a broken setup.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic(fmt.Sprintf("FixedGenerator exhausted after %d ids", len(g.ids)))
	}

	id := g.ids[g.idx]
	g.idx++
	return id
}
