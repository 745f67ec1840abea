package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/calendar-bridge/internal/persistence"
	_ "modernc.org/sqlite"
)

// timeLayout is a fixed-width UTC timestamp format. Fixed width keeps
// lexicographic ordering of the stored text aligned with chronological order,
// which the range filters rely on.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store provides SQLite-backed implementations of the persistence
// repositories. A single Store serves connections, events and sync jobs.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at the given DSN and prepares the
// schema. An empty DSN opens an in-memory database.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", dsn, err)
	}

	// modernc.org/sqlite serialises writes internally; a single connection
	// avoids SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS connections (
			id            TEXT PRIMARY KEY,
			tenant_id     TEXT NOT NULL,
			user_id       TEXT NOT NULL,
			provider_id   TEXT NOT NULL,
			account_email TEXT NOT NULL,
			perm_read     INTEGER NOT NULL,
			perm_write    INTEGER NOT NULL,
			perm_delete   INTEGER NOT NULL,
			perm_manage   INTEGER NOT NULL,
			sync_enabled  INTEGER NOT NULL,
			sync_interval INTEGER NOT NULL,
			last_sync     TEXT,
			next_sync     TEXT,
			status        TEXT NOT NULL,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_connections_user ON connections (tenant_id, user_id)`,
		`CREATE TABLE IF NOT EXISTS events (
			id            TEXT PRIMARY KEY,
			connection_id TEXT NOT NULL,
			tenant_id     TEXT NOT NULL,
			title         TEXT NOT NULL,
			start_at      TEXT NOT NULL,
			end_at        TEXT NOT NULL,
			categories    TEXT NOT NULL,
			attendees     TEXT NOT NULL,
			availability  TEXT NOT NULL,
			status        TEXT NOT NULL,
			external_id   TEXT NOT NULL,
			synced_at     TEXT,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_connection ON events (connection_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_window ON events (start_at, end_at)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_events_external
			ON events (connection_id, external_id) WHERE external_id <> ''`,
		`CREATE TABLE IF NOT EXISTS sync_jobs (
			id            TEXT PRIMARY KEY,
			connection_id TEXT NOT NULL,
			type          TEXT NOT NULL,
			status        TEXT NOT NULL,
			progress      INTEGER NOT NULL,
			processed     INTEGER NOT NULL,
			created       INTEGER NOT NULL,
			updated       INTEGER NOT NULL,
			deleted       INTEGER NOT NULL,
			errors        TEXT NOT NULL,
			started_at    TEXT,
			completed_at  TEXT,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_jobs_connection ON sync_jobs (connection_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w", err)
		}
	}
	return nil
}

// mapError translates driver errors into the persistence sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return persistence.ErrDuplicate
	}
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
