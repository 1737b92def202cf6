// Package store provides SQLite-backed durable storage for the causal event
// log.
//
// The store implements an append-only log: Append and AppendBulk insert
// rows, nothing ever updates one. Each event may carry:
//   - causation_id: the id of the event that caused it (NULL for roots)
//   - correlation_id: the business transaction it belongs to
//
// # Correlation Resolution
//
// Resolved at write time, in a fixed order:
//   - Explicit correlation on the request wins as-is
//   - A caused event inherits its parent's correlation
//   - Otherwise a fresh correlation is generated
//
// A causation pointing at a missing parent is stored anyway and reported by
// FindOrphanedEvents; the log never rejects an event for referencing an
// unknown parent.
//
// # Query Guarantees
//
//   - Every multi-row result is ordered by id ASC for deterministic output
//   - Empty results are empty slices, never nil
//   - ByID consults the injected LRU/TTL cache; single writes leave the
//     cache alone, bulk writes clear it once after commit
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
