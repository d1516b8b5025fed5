// Package state persists shell preferences and run history in SQLite.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one recorded tool launch.
type Run struct {
	RunID     string
	ToolID    string
	Operation string
	Input     string
	StartedAt time.Time
	Duration  time.Duration
	ExitCode  int
	Error     string
}

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Performance tuning
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-8000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if err := initSchema(db); err != nil {
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS prefs (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			tool_id TEXT NOT NULL,
			operation TEXT DEFAULT '',
			input TEXT DEFAULT '',
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			duration_ms INTEGER DEFAULT 0,
			exit_code INTEGER DEFAULT 0,
			error TEXT DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_runs_tool ON runs(tool_id);
	`
	_, err := db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SetPref stores a preference, replacing any existing value.
func (s *Store) SetPref(_ context.Context, key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO prefs (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// Pref returns a preference value, or "" if unset.
func (s *Store) Pref(_ context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM prefs WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Last-selection helpers over the prefs table.

func (s *Store) SetLastTool(ctx context.Context, toolID string) error {
	return s.SetPref(ctx, "last_tool", toolID)
}

func (s *Store) LastTool(ctx context.Context) (string, error) {
	return s.Pref(ctx, "last_tool")
}

func (s *Store) SetLastInput(ctx context.Context, toolID, path string) error {
	return s.SetPref(ctx, "last_input:"+toolID, path)
}

func (s *Store) LastInput(ctx context.Context, toolID string) (string, error) {
	return s.Pref(ctx, "last_input:"+toolID)
}

// RecordRun appends a finished launch to the history.
func (s *Store) RecordRun(_ context.Context, r Run) error {
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, tool_id, operation, input, started_at, duration_ms, exit_code, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.ToolID, r.Operation, r.Input, r.StartedAt, r.Duration.Milliseconds(), r.ExitCode, r.Error,
	)
	return err
}

// RecentRuns returns the newest runs first.
func (s *Store) RecentRuns(_ context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(`
		SELECT run_id, tool_id, operation, input, started_at, duration_ms, exit_code, error
		FROM runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var r Run
		var durMs int64
		if err := rows.Scan(&r.RunID, &r.ToolID, &r.Operation, &r.Input, &r.StartedAt, &durMs, &r.ExitCode, &r.Error); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(durMs) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
