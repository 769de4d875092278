// Package sqlite is the single-node store. One process owns the database file, so every
// statement runs on one connection and the claim compare-and-swap needs no row locks.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS build_requests (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	builder       TEXT    NOT NULL,
	priority      INTEGER NOT NULL DEFAULT 0,
	required_tags TEXT    NOT NULL DEFAULT '[]',
	reason        TEXT    NOT NULL DEFAULT '',
	submitted_at  INTEGER NOT NULL,
	complete      INTEGER NOT NULL DEFAULT 0,
	results       TEXT,
	completed_at  INTEGER
);
CREATE INDEX IF NOT EXISTS idx_build_requests_pending ON build_requests(builder, submitted_at, id) WHERE complete = 0;

CREATE TABLE IF NOT EXISTS buildrequest_claims (
	request_id     INTEGER PRIMARY KEY REFERENCES build_requests(id) ON DELETE CASCADE,
	coordinator_id TEXT    NOT NULL,
	claimed_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_claims_coordinator ON buildrequest_claims(coordinator_id);

CREATE TABLE IF NOT EXISTS workers (
	id                TEXT    PRIMARY KEY,
	name              TEXT    NOT NULL UNIQUE,
	builders          TEXT    NOT NULL DEFAULT '[]',
	tags              TEXT    NOT NULL DEFAULT '[]',
	status            TEXT    NOT NULL DEFAULT 'idle',
	max_builds        INTEGER NOT NULL DEFAULT 1 CHECK (max_builds > 0),
	running_builds    INTEGER NOT NULL DEFAULT 0 CHECK (running_builds >= 0),
	last_heartbeat_at INTEGER,
	created_at        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS builds (
	id             TEXT    PRIMARY KEY,
	request_id     INTEGER NOT NULL REFERENCES build_requests(id),
	builder        TEXT    NOT NULL,
	worker_id      TEXT    NOT NULL REFERENCES workers(id),
	coordinator_id TEXT    NOT NULL,
	started_at     INTEGER NOT NULL,
	finished_at    INTEGER,
	results        TEXT
);
CREATE INDEX IF NOT EXISTS idx_builds_running_worker ON builds(worker_id) WHERE finished_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_builds_running_request ON builds(request_id) WHERE finished_at IS NULL;

CREATE TABLE IF NOT EXISTS coordinators (
	id           TEXT    PRIMARY KEY,
	name         TEXT    NOT NULL,
	active       INTEGER NOT NULL DEFAULT 1,
	last_seen_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS processed_operations (
	idempotency_key TEXT    PRIMARY KEY,
	operation_type  TEXT    NOT NULL,
	result          BLOB    NOT NULL,
	created_at      INTEGER NOT NULL
);
`

// DB is an open SQLite database with the schema applied.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// withTx runs fn inside a transaction, rolling back when fn fails.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ── column codecs ────────────────────────────────────────────────────────────

func unixNano(t time.Time) int64 { return t.UTC().UnixNano() }

func fromUnixNano(n int64) time.Time { return time.Unix(0, n).UTC() }

func nullUnixNano(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: unixNano(*t), Valid: true}
}

func fromNullUnixNano(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromUnixNano(n.Int64)
	return &t
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshal list: %w", err)
	}
	return string(b), nil
}

func decodeList(raw string) ([]string, error) {
	out := []string{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("unmarshal list: %w", err)
	}
	return out, nil
}
