// Package history keeps a SQLite log of render runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL DEFAULT 0,
	output      TEXT NOT NULL,
	scenes      INTEGER NOT NULL,
	duration    REAL NOT NULL DEFAULT 0,
	public_url  TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS runs_started ON runs(started_at);
`

type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Output     string
	Scenes     int
	Duration   float64
	PublicURL  string
	Status     string
	Error      string
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the store at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("history: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Begin records a running render and returns its UUIDv7 id.
func (s *Store) Begin(ctx context.Context, output string, scenes int) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, output, scenes, status) VALUES (?, ?, ?, ?, ?)`,
		id, s.now().UnixMilli(), output, scenes, StatusRunning)
	if err != nil {
		return "", fmt.Errorf("history: begin: %w", err)
	}
	return id, nil
}

// Finish closes run id. A nil runErr marks it ok.
func (s *Store) Finish(ctx context.Context, id string, duration float64, publicURL string, runErr error) error {
	status, msg := StatusOK, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, duration = ?, public_url = ?, status = ?, error = ? WHERE id = ?`,
		s.now().UnixMilli(), duration, publicURL, status, msg, id)
	if err != nil {
		return fmt.Errorf("history: finish: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("history: finish: unknown run %s", id)
	}
	return nil
}

// Recent returns up to n runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, output, scenes, duration, public_url, status, error
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Output, &r.Scenes, &r.Duration, &r.PublicURL, &r.Status, &r.Error); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		if finished > 0 {
			r.FinishedAt = time.UnixMilli(finished)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
