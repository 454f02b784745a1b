// Package runlog keeps a local history of ingestion runs in sqlite,
// backing the stats command. It is observability only: a runlog failure
// must never fail an ingestion run.
package runlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Log is an append-mostly store of run history.
type Log struct {
	db *sql.DB
}

// Entry is one recorded ingestion run.
type Entry struct {
	ID         int64
	RanAt      time.Time
	NewRecords int
	Duration   time.Duration
	DryRun     bool
	Sources    []SourceResult
}

// SourceResult is one source's contribution to a run.
type SourceResult struct {
	Key        string
	Candidates int
	Err        string
}

func Open(dbPath string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating runlog dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening runlog db: %w", err)
	}
	db.SetMaxOpenConns(1)

	l := &Log{db: db}
	if err := l.init(); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

func (l *Log) init() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			ran_at      DATETIME NOT NULL,
			new_records INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			dry_run     INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_runs_ran_at ON runs(ran_at DESC);

		CREATE TABLE IF NOT EXISTS source_results (
			run_id     INTEGER NOT NULL REFERENCES runs(id),
			source     TEXT NOT NULL,
			candidates INTEGER NOT NULL,
			err        TEXT NOT NULL DEFAULT ''
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing runlog schema: %w", err)
	}
	return nil
}

func (l *Log) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Record appends one run and its per-source results.
func (l *Log) Record(e Entry) error {
	tx, err := l.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (ran_at, new_records, duration_ms, dry_run) VALUES (?, ?, ?, ?)`,
		e.RanAt.UTC().Format(time.RFC3339), e.NewRecords, e.Duration.Milliseconds(), e.DryRun,
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO source_results (run_id, source, candidates, err) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range e.Sources {
		if _, err := stmt.Exec(runID, s.Key, s.Candidates, s.Err); err != nil {
			return fmt.Errorf("recording source result %s: %w", s.Key, err)
		}
	}

	return tx.Commit()
}

// Recent returns the latest runs, newest first, with their source results.
func (l *Log) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := l.db.Query(
		`SELECT id, ran_at, new_records, duration_ms, dry_run FROM runs ORDER BY ran_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			ranAt      string
			durationMS int64
		)
		if err := rows.Scan(&e.ID, &ranAt, &e.NewRecords, &durationMS, &e.DryRun); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		e.RanAt, _ = time.Parse(time.RFC3339, ranAt)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range entries {
		sources, err := l.sourceResults(entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Sources = sources
	}
	return entries, nil
}

func (l *Log) sourceResults(runID int64) ([]SourceResult, error) {
	rows, err := l.db.Query(
		`SELECT source, candidates, err FROM source_results WHERE run_id = ? ORDER BY rowid`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying source results: %w", err)
	}
	defer rows.Close()

	var out []SourceResult
	for rows.Next() {
		var s SourceResult
		if err := rows.Scan(&s.Key, &s.Candidates, &s.Err); err != nil {
			return nil, fmt.Errorf("scanning source result: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
