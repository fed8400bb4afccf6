/*
Package sqlite provides a SQLite-backed implementation of ledger.Store.

PURPOSE:
  Production persistence for the per-user key/value records (active
  ledger, roster, pay plan, rollover marker, archive buckets). The store
  is schema-blind: every record is an opaque JSON blob keyed by
  (entity_kind, user_id). Callers own the shape.

KEY TABLE:
  records: one row per (entity_kind, user_id), whole-record overwrite.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite. Writes are
  synchronous: a Get immediately after Set sees the value.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/dealdesk.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - ledger/store.go: Interface definition and contract
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Per-user JSON records, one row per (entity_kind, user_id).
	-- Whole-record overwrite; the store never inspects the value.
	CREATE TABLE IF NOT EXISTS records (
		entity_kind TEXT NOT NULL,
		user_id     TEXT NOT NULL,
		value       TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		PRIMARY KEY (entity_kind, user_id)
	);

	-- For per-user enumeration (archive listing, export).
	CREATE INDEX IF NOT EXISTS idx_records_user
		ON records(user_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ledger.Store IMPLEMENTATION
// =============================================================================

// Get returns the stored blob, or (nil, nil) if absent.
func (s *Store) Get(ctx context.Context, entityKind, userID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM records WHERE entity_kind = ? AND user_id = ?`,
		entityKind, userID,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s_%s: %w", entityKind, userID, err)
	}
	return []byte(value), nil
}

// Set overwrites the record wholesale.
func (s *Store) Set(ctx context.Context, entityKind, userID string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (entity_kind, user_id, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (entity_kind, user_id)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		entityKind, userID, string(value), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to set record %s_%s: %w", entityKind, userID, err)
	}
	return nil
}

// Remove deletes the record. Removing an absent record is a no-op.
func (s *Store) Remove(ctx context.Context, entityKind, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE entity_kind = ? AND user_id = ?`,
		entityKind, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove record %s_%s: %w", entityKind, userID, err)
	}
	return nil
}

// ListKinds returns every entity kind stored for a user, sorted.
func (s *Store) ListKinds(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_kind FROM records WHERE user_id = ? ORDER BY entity_kind`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list kinds for user %s: %w", userID, err)
	}
	defer rows.Close()

	kinds := []string{}
	for rows.Next() {
		var kind string
		if err := rows.Scan(&kind); err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, rows.Err()
}

// ListUsers returns every user id with at least one stored record, sorted.
func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM records ORDER BY user_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []string{}
	for rows.Next() {
		var user string
		if err := rows.Scan(&user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
