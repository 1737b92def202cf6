package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/causelog/internal/event"
)

// Option configures a Store during Open.
type Option func(*Store)

// WithCache enables the read cache for ByID lookups. Capacity is the maximum
// number of cached events, ttl the lifetime of each entry. The cache is
// deliberately not invalidated by single appends; bulk appends clear it once
// after commit.
func WithCache(capacity int, ttl time.Duration) Option {
	return func(s *Store) {
		s.cacheCapacity = capacity
		s.cacheTTL = ttl
	}
}

// WithIndexes selects which secondary indexes exist on the events table.
// Disabled indexes are dropped if present, enabled ones created if missing.
// Default: DefaultIndexes() (all enabled).
func WithIndexes(cfg IndexConfig) Option {
	return func(s *Store) {
		s.indexes = cfg
	}
}

// WithLogger sets the logger used for write-time warnings and dispatch
// failures. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock sets the time source for event timestamps and cache expiry.
// Default: the system clock in UTC.
func WithClock(clock Clock) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// WithCorrelationGenerator sets the generator used to mint correlation ids
// for events that start a new transaction. Default: UUIDv7.
func WithCorrelationGenerator(gen event.CorrelationGenerator) Option {
	return func(s *Store) {
		s.corrGen = gen
	}
}

// WithPageSize sets the page size used by CycleThrough.
// Default: DefaultPageSize.
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// IndexConfig toggles the secondary indexes on the events table. Single-
// column indexes serve the stream predicates and lineage lookups; the two
// composite indexes serve transaction-scoped causation walks and per-command
// time ranges.
type IndexConfig struct {
	Timestamp            bool
	Command              bool
	Actor                bool
	Version              bool
	Correlation          bool
	Causation            bool
	CorrelationCausation bool
	CommandTimestamp     bool
}

// DefaultIndexes returns the configuration with every index enabled.
func DefaultIndexes() IndexConfig {
	return IndexConfig{
		Timestamp:            true,
		Command:              true,
		Actor:                true,
		Version:              true,
		Correlation:          true,
		Causation:            true,
		CorrelationCausation: true,
		CommandTimestamp:     true,
	}
}

// indexDefs maps each toggle to its index name and column list. Order is
// fixed so index application is deterministic.
type indexDef struct {
	enabled func(IndexConfig) bool
	name    string
	columns string
}

var indexDefs = []indexDef{
	{func(c IndexConfig) bool { return c.Timestamp }, "idx_events_timestamp", "timestamp"},
	{func(c IndexConfig) bool { return c.Command }, "idx_events_command", "command"},
	{func(c IndexConfig) bool { return c.Actor }, "idx_events_actor", "actor"},
	{func(c IndexConfig) bool { return c.Version }, "idx_events_version", "version"},
	{func(c IndexConfig) bool { return c.Correlation }, "idx_events_correlation", "correlation_id"},
	{func(c IndexConfig) bool { return c.Causation }, "idx_events_causation", "causation_id"},
	{func(c IndexConfig) bool { return c.CorrelationCausation }, "idx_events_correlation_causation", "correlation_id, causation_id"},
	{func(c IndexConfig) bool { return c.CommandTimestamp }, "idx_events_command_timestamp", "command, timestamp"},
}

// applyIndexes reconciles the on-disk index set with cfg.
// CREATE INDEX IF NOT EXISTS and DROP INDEX IF EXISTS make this idempotent.
func applyIndexes(db *sql.DB, cfg IndexConfig) error {
	for _, def := range indexDefs {
		var stmt string
		if def.enabled(cfg) {
			stmt = fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON events(%s)", def.name, def.columns)
		} else {
			stmt = fmt.Sprintf("DROP INDEX IF EXISTS %s", def.name)
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply index %s: %w", def.name, err)
		}
	}
	return nil
}
