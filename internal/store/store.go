package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/causelog/internal/cache"
	"github.com/roach88/causelog/internal/dispatch"
	"github.com/roach88/causelog/internal/event"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Pre-migration databases
// 1 - Initial events schema
// 2 - correlation_id normalized to NOT NULL DEFAULT ''
const currentSchemaVersion = 2

// DefaultPageSize is the page size used by CycleThrough.
const DefaultPageSize = 1000

// DefaultStreamBatchSize is the batch size used by StreamEvents.
const DefaultStreamBatchSize = 100

// Clock supplies event timestamps. Implemented by the system clock
// (production) and deterministic clocks (tests).
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Store is the SQLite-backed event log.
// Uses WAL mode for concurrent read access during writes.
type Store struct {
	db         *sql.DB
	logger     *slog.Logger
	clock      Clock
	corrGen    event.CorrelationGenerator
	dispatcher *dispatch.Dispatcher
	cache      *cache.Cache[event.Event]
	indexes    IndexConfig
	pageSize   int

	cacheCapacity int
	cacheTTL      time.Duration
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas, migrations, and the configured indexes.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	// Open database (creates file if doesn't exist)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool for SQLite
	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1) // Single writer to avoid SQLITE_BUSY errors
	db.SetMaxIdleConns(1) // Keep one connection ready

	// Apply required pragmas
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	// Apply schema migrations
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{
		db:       db,
		logger:   slog.Default(),
		clock:    systemClock{},
		corrGen:  event.NewUUIDv7Generator(),
		indexes:  DefaultIndexes(),
		pageSize: DefaultPageSize,
	}

	// Apply options
	for _, opt := range opts {
		opt(s)
	}

	s.dispatcher = dispatch.New(dispatch.WithLogger(s.logger))

	if s.cacheCapacity > 0 {
		s.cache = cache.NewWithClock[event.Event](s.cacheCapacity, s.cacheTTL, s.clock.Now)
	}

	// Index toggles are applied last so options can change the set
	if err := applyIndexes(db, s.indexes); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply indexes: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
// Should be called when the store is no longer needed.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Query executes a query and returns the resulting rows.
// This is a convenience wrapper around db.QueryContext for callers that need
// raw access. Callers are responsible for closing the returned rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	// Apply migrations sequentially
	if version < 2 {
		if err := migrateToV2(db); err != nil {
			return err
		}
		version = 2
	}

	// Set version after all migrations
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV2 normalizes correlation ids in databases created before the
// NOT NULL DEFAULT '' constraint. New databases get the constraint from
// schema.sql, but rows written before v2 may hold NULL.
func migrateToV2(db *sql.DB) error {
	// UPDATE ... WHERE IS NULL is safe - no-op on conforming databases
	_, err := db.Exec(`
		UPDATE events SET correlation_id = ''
		WHERE correlation_id IS NULL
	`)
	if err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
