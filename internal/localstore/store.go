// Package localstore is a single-file SQLite implementation of the session
// store for single-device deployments and tests.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	login        TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL,
	last_seen    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS workout_exercises (
	workout_id   TEXT NOT NULL,
	position     INTEGER NOT NULL,
	exercise_id  TEXT NOT NULL,
	name         TEXT NOT NULL DEFAULT '',
	target_sets  INTEGER NOT NULL,
	target_reps  INTEGER,
	rest_seconds INTEGER NOT NULL DEFAULT 0,
	equipment    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (workout_id, position)
);

CREATE TABLE IF NOT EXISTS workout_sessions (
	id                     TEXT PRIMARY KEY,
	user_id                INTEGER NOT NULL REFERENCES users(id),
	workout_id             TEXT NOT NULL,
	status                 TEXT NOT NULL,
	source                 TEXT NOT NULL DEFAULT 'live',
	started_at             INTEGER,
	completed_at           INTEGER,
	last_checkpoint_at     INTEGER,
	active_ms              INTEGER NOT NULL DEFAULT 0,
	active_since           INTEGER,
	rest_ends_at           INTEGER,
	current_exercise_index INTEGER NOT NULL DEFAULT 0,
	current_set_number     INTEGER NOT NULL DEFAULT 1,
	total_exercises        INTEGER NOT NULL DEFAULT 0,
	rest_periods_skipped   INTEGER NOT NULL DEFAULT 0,
	duration_seconds       INTEGER NOT NULL DEFAULT 0,
	calories_burned        INTEGER NOT NULL DEFAULT 0,
	total_volume_kg        REAL NOT NULL DEFAULT 0,
	completion_percentage  INTEGER NOT NULL DEFAULT 0,
	average_rpe            REAL NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_workout_sessions_one_active
	ON workout_sessions (user_id) WHERE status IN ('in_progress', 'paused');

CREATE UNIQUE INDEX IF NOT EXISTS idx_workout_sessions_import
	ON workout_sessions (user_id, workout_id, started_at) WHERE source = 'alpha';

CREATE TABLE IF NOT EXISTS exercise_logs (
	session_id     TEXT NOT NULL REFERENCES workout_sessions(id) ON DELETE CASCADE,
	exercise_index INTEGER NOT NULL,
	exercise_id    TEXT NOT NULL,
	target_sets    INTEGER NOT NULL DEFAULT 0,
	target_reps    INTEGER,
	skipped        INTEGER NOT NULL DEFAULT 0,
	skip_reason    TEXT,
	PRIMARY KEY (session_id, exercise_index)
);

CREATE TABLE IF NOT EXISTS set_logs (
	session_id     TEXT NOT NULL,
	exercise_index INTEGER NOT NULL,
	set_number     INTEGER NOT NULL,
	reps_completed INTEGER NOT NULL,
	weight_kg      REAL,
	rpe            INTEGER,
	form_quality   INTEGER,
	notes          TEXT,
	completed_at   INTEGER NOT NULL,
	PRIMARY KEY (session_id, exercise_index, set_number),
	FOREIGN KEY (session_id, exercise_index)
		REFERENCES exercise_logs (session_id, exercise_index) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS achievements (
	user_id        INTEGER NOT NULL REFERENCES users(id),
	achievement_id TEXT NOT NULL,
	title          TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	icon           TEXT NOT NULL DEFAULT '',
	rarity         TEXT NOT NULL,
	points         INTEGER NOT NULL DEFAULT 0,
	unlocked_at    INTEGER NOT NULL,
	session_id     TEXT,
	workout_id     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (user_id, achievement_id)
);
`

// Store is a SQLite-backed session store. Timestamps are stored as Unix
// milliseconds in UTC.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// The dev user (id 1, login "local") always exists.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// SQLite allows one writer; a single connection serializes everything.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	now := time.Now().UnixMilli()
	if _, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (id, login, display_name, created_at, last_seen) VALUES (1, 'local', 'Local Dev User', ?, ?)`,
		now, now); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding dev user: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetOrCreateUser finds or creates a user by login and returns its ID.
func (s *Store) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	now := time.Now().UnixMilli()
	var id int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (login, display_name, created_at, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (login) DO UPDATE
			SET last_seen = excluded.last_seen,
			    display_name = COALESCE(NULLIF(excluded.display_name, ''), users.display_name)
		RETURNING id
	`, login, displayName, now, now).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting user %q: %w", login, err)
	}
	return id, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && (se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func millis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func fromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}
