// Package sqlitestore provides the SQLite-backed record store.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"campusforum/internal/database"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	email         TEXT NOT NULL UNIQUE,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_admin      INTEGER NOT NULL DEFAULT 0,
	credit_score  INTEGER NOT NULL DEFAULT 100,
	ban_until     TEXT,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS categories (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS posts (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	category_id  INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
	author_id    INTEGER NOT NULL REFERENCES users(id),
	title        TEXT NOT NULL,
	content      TEXT NOT NULL,
	edit_count   INTEGER NOT NULL DEFAULT 0,
	is_violation INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS comments (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id      INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	author_id    INTEGER NOT NULL REFERENCES users(id),
	content      TEXT NOT NULL,
	edit_count   INTEGER NOT NULL DEFAULT 0,
	is_violation INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS violations (
	id           TEXT PRIMARY KEY,
	content_type TEXT NOT NULL,
	content_id   INTEGER NOT NULL,
	moderator_id INTEGER NOT NULL REFERENCES users(id),
	reason       TEXT NOT NULL,
	points       INTEGER NOT NULL,
	created_at   TEXT NOT NULL,
	UNIQUE (content_type, content_id, moderator_id)
);

CREATE TABLE IF NOT EXISTS inbox_messages (
	id         TEXT PRIMARY KEY,
	user_id    INTEGER NOT NULL REFERENCES users(id),
	type       TEXT NOT NULL,
	body       TEXT NOT NULL,
	post_id    INTEGER,
	comment_id INTEGER,
	is_read    INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_posts_category ON posts(category_id);
CREATE INDEX IF NOT EXISTS idx_comments_post  ON comments(post_id);
CREATE INDEX IF NOT EXISTS idx_inbox_user     ON inbox_messages(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_users_ban      ON users(ban_until) WHERE ban_until IS NOT NULL;
`

// dbtx is the subset of *sql.DB and *sql.Tx the query helpers need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements every database.Tx method against either the
// shared connection or an open transaction.
type queries struct {
	db dbtx
}

// Store implements database.Store on SQLite.
type Store struct {
	queries
	db *sql.DB
}

// txStore implements database.Tx for the duration of one transaction.
type txStore struct {
	queries
}

// Ensure interface conformance at compile time.
var (
	_ database.Store = (*Store)(nil)
	_ database.Tx    = (*txStore)(nil)
)

// Options configures the SQLite store.
type Options struct {
	// Path to the database file. Parent directories are created if
	// needed. ":memory:" opens an in-memory database.
	Path string
}

// Open opens (creating if necessary) the forum database and applies
// the schema.
func Open(opts Options) (*Store, error) {
	if opts.Path == "" {
		opts.Path = "campusforum.db"
	}

	if opts.Path != ":memory:" {
		dir := filepath.Dir(opts.Path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", opts.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc's driver serializes access per connection; a single
	// connection avoids SQLITE_BUSY between the pool's writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{queries: queries{db: db}, db: db}, nil
}

// WithTx runs fn inside a write transaction. The transaction is
// rolled back if fn returns an error, otherwise committed.
func (s *Store) WithTx(ctx context.Context, fn func(tx database.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&txStore{queries{db: tx}}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err is a SQLite uniqueness
// constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// formatTime and parseTime keep all timestamps in UTC text columns
// with a fixed-width fractional part, so lexical ordering matches
// chronological ordering and the ban expiry predicate can compare in
// SQL.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
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
