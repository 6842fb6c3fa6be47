// Package history keeps a local SQLite journal of finished runs. It is an
// output sink only: nothing read from it ever influences a run.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/specialistvlad/recipegrid/internal/scheduler"
)

// ErrRunNotFound is returned by Get for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// Journal stores run results.
type Journal struct {
	db   *sql.DB
	path string
}

// Run is one journaled run.
type Run struct {
	ID       string
	Recipe   string
	Verdict  string
	Started  time.Time
	Finished time.Time
	Modules  []ModuleRecord
}

// ModuleRecord is the journaled outcome of one module.
type ModuleRecord struct {
	ID          string
	Kind        string
	State       string
	FailureKind string
	Message     string
	DurationMS  int64
}

// Open opens or creates the journal at path, creating parent directories.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	j := &Journal{db: db, path: path}
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if err := j.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return j, nil
}

// Path returns the database file location.
func (j *Journal) Path() string { return j.path }

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		recipe TEXT NOT NULL,
		verdict TEXT NOT NULL,
		started TEXT NOT NULL,
		finished TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);

	CREATE TABLE IF NOT EXISTS module_results (
		run_id TEXT NOT NULL REFERENCES runs(id),
		position INTEGER NOT NULL,
		module TEXT NOT NULL,
		kind TEXT NOT NULL,
		state TEXT NOT NULL,
		failure_kind TEXT,
		message TEXT,
		duration_ms INTEGER NOT NULL,
		PRIMARY KEY (run_id, module)
	);
	`
	_, err := j.db.ExecContext(context.Background(), schema)
	return err
}

// Record stores res.
func (j *Journal) Record(ctx context.Context, res *scheduler.Result) (err error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, recipe, verdict, started, finished) VALUES (?, ?, ?, ?, ?)`,
		res.RunID, res.Recipe, string(res.Verdict), formatTime(res.Started), formatTime(res.Finished))
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", res.RunID, err)
	}

	for i, m := range res.Modules {
		var kind, msg sql.NullString
		if m.Failure != nil {
			kind = sql.NullString{String: string(m.Failure.Kind), Valid: true}
			msg = sql.NullString{String: m.Failure.Message, Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO module_results (run_id, position, module, kind, state, failure_kind, message, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, i, m.ID, m.Kind, m.State.String(), kind, msg, m.Duration().Milliseconds())
		if err != nil {
			return fmt.Errorf("failed to insert module %s: %w", m.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", res.RunID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first, with their modules.
func (j *Journal) Recent(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, recipe, verdict, started, finished FROM runs ORDER BY started DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, r := range runs {
		if r.Modules, err = j.modules(ctx, r.ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Get returns the run with the given ID.
func (j *Journal) Get(ctx context.Context, id string) (*Run, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT id, recipe, verdict, started, finished FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if r.Modules, err = j.modules(ctx, id); err != nil {
		return nil, err
	}
	return r, nil
}

func (j *Journal) modules(ctx context.Context, runID string) ([]ModuleRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT module, kind, state, failure_kind, message, duration_ms
		FROM module_results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query modules of run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []ModuleRecord
	for rows.Next() {
		var (
			m         ModuleRecord
			kind, msg sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Kind, &m.State, &kind, &msg, &m.DurationMS); err != nil {
			return nil, err
		}
		m.FailureKind, m.Message = kind.String, msg.String
		out = append(out, m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r                 Run
		started, finished string
	)
	if err := s.Scan(&r.ID, &r.Recipe, &r.Verdict, &started, &finished); err != nil {
		return nil, err
	}
	var err error
	if r.Started, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, fmt.Errorf("run %s: bad start time: %w", r.ID, err)
	}
	if r.Finished, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return nil, fmt.Errorf("run %s: bad finish time: %w", r.ID, err)
	}
	return &r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
