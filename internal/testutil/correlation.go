package testutil

import (
	"fmt"
	"sync"
)

// SequentialCorrelation generates numbered correlation ids from a fixed
// prefix: "txn-0001", "txn-0002", and so on.
//
// This enables deterministic test execution and golden snapshot comparison
// without pre-listing every id the way event.FixedGenerator requires. The
// same scenario with the same prefix produces byte-identical event logs.
//
// Thread-safety: all methods are safe for concurrent use.
type SequentialCorrelation struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialCorrelation creates a generator with the given prefix.
// An empty prefix defaults to "txn".
func NewSequentialCorrelation(prefix string) *SequentialCorrelation {
	if prefix == "" {
		prefix = "txn"
	}
	return &SequentialCorrelation{prefix: prefix}
}

// Generate returns the next id in the sequence.
//
// Implements event.CorrelationGenerator.
func (g *SequentialCorrelation) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset rewinds the sequence so the next Generate returns the first id again.
func (g *SequentialCorrelation) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
