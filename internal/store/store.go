// Package store archives ranking runs in a local SQLite database so results
// from different inputs or parameter choices can be listed and compared
// without re-running the computation.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// ErrRunNotFound is returned when a run id has no archived row.
var ErrRunNotFound = errors.New("run not found")

// schema contains the DDL executed on open. Using IF NOT EXISTS makes it safe
// to run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    input       TEXT NOT NULL,
    output      TEXT NOT NULL DEFAULT '',
    nodes       INTEGER NOT NULL,
    edges       INTEGER NOT NULL,
    restart     REAL NOT NULL,
    iterations  INTEGER NOT NULL,
    workers     INTEGER NOT NULL DEFAULT 1,
    mass        REAL NOT NULL,
    started_at  TEXT NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS scores (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    node   INTEGER NOT NULL,
    score  REAL NOT NULL,
    PRIMARY KEY (run_id, node)
);

CREATE INDEX IF NOT EXISTS scores_by_rank ON scores (run_id, score DESC, node);
`

// tsLayout is a fixed-width UTC layout so started_at sorts lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// Run is the archived summary of a single ranking run.
type Run struct {
	ID         string
	Input      string
	Output     string
	Nodes      int
	Edges      int
	Restart    float64
	Iterations int
	Workers    int
	Mass       float64
	StartedAt  time.Time
	Duration   time.Duration
}

// Score is one archived node score.
type Score struct {
	Node  int
	Value float64
}

// Store is a SQLite-backed run archive.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the archive at path, enables WAL mode and a busy
// timeout, and creates the schema if it does not exist.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// One connection: SQLite has a single writer and per-connection PRAGMAs.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun writes the run row and every node score in one transaction. Saving
// the same run id again replaces the earlier scores.
func (s *Store) SaveRun(ctx context.Context, run Run, scores []float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx for run %s: %w", run.ID, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	const upsertRun = `
		INSERT INTO runs (id, input, output, nodes, edges, restart, iterations, workers, mass, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			input       = excluded.input,
			output      = excluded.output,
			nodes       = excluded.nodes,
			edges       = excluded.edges,
			restart     = excluded.restart,
			iterations  = excluded.iterations,
			workers     = excluded.workers,
			mass        = excluded.mass,
			started_at  = excluded.started_at,
			duration_ms = excluded.duration_ms`

	if _, err := tx.ExecContext(ctx, upsertRun,
		run.ID, run.Input, run.Output, run.Nodes, run.Edges, run.Restart,
		run.Iterations, run.Workers, run.Mass,
		run.StartedAt.UTC().Format(tsLayout), run.Duration.Milliseconds(),
	); err != nil {
		return fmt.Errorf("store: save run %s: %w", run.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM scores WHERE run_id = ?", run.ID); err != nil {
		return fmt.Errorf("store: clear scores for run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO scores (run_id, node, score) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("store: prepare score insert: %w", err)
	}
	defer stmt.Close()

	for node, score := range scores {
		if _, err := stmt.ExecContext(ctx, run.ID, node, score); err != nil {
			return fmt.Errorf("store: insert score %s/%d: %w", run.ID, node, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit run %s: %w", run.ID, err)
	}
	return nil
}

const runColumns = `id, input, output, nodes, edges, restart, iterations, workers, mass, started_at, duration_ms`

// Run returns the archived run with the given id.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("store: %w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("store: get run %s: %w", id, err)
	}
	return r, nil
}

// Runs lists archived runs, most recent first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate runs: %w", err)
	}
	return runs, nil
}

// TopScores returns up to limit scores of a run, highest first, ties broken
// by ascending node id.
func (s *Store) TopScores(ctx context.Context, runID string, limit int) ([]Score, error) {
	if _, err := s.Run(ctx, runID); err != nil {
		return nil, err
	}

	const q = `SELECT node, score FROM scores WHERE run_id = ? ORDER BY score DESC, node LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: top scores for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Score
	for rows.Next() {
		var sc Score
		if err := rows.Scan(&sc.Node, &sc.Value); err != nil {
			return nil, fmt.Errorf("store: scan score: %w", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate scores: %w", err)
	}
	return out, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(rs rowScanner) (Run, error) {
	var (
		r          Run
		startedAt  string
		durationMS int64
	)
	err := rs.Scan(&r.ID, &r.Input, &r.Output, &r.Nodes, &r.Edges, &r.Restart,
		&r.Iterations, &r.Workers, &r.Mass, &startedAt, &durationMS)
	if err != nil {
		return Run{}, err
	}
	t, err := parseTimestamp(startedAt)
	if err != nil {
		return Run{}, err
	}
	r.StartedAt = t
	r.Duration = time.Duration(durationMS) * time.Millisecond
	return r, nil
}

// timestampFormats lists the layouts accepted for stored timestamps. Rows
// written by SaveRun use tsLayout; the others cover rows written by hand.
var timestampFormats = []string{
	tsLayout,
	time.RFC3339Nano,
	time.DateTime,
}

// parseTimestamp attempts to parse a stored timestamp using known formats.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}
