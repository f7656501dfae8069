// Package benchdb records hint benchmark runs in sqlite so that timings can
// be compared across hash modes and code changes.
package benchdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

var ErrUnknownRun = errors.New("unknown run")

type DB struct {
	db *sql.DB
}

type Run struct {
	ID         int64
	StartedAt  time.Time
	LevelsPath string
	HashMode   string
	Workers    int
	Searches   int
	// MeanNanos and P99Nanos are filled in by Finish.
	MeanNanos float64
	P99Nanos  float64
}

// Search is one timed hint search.
type Search struct {
	Level          int
	Result         string
	SolutionSteps  int
	StatesCreated  int
	StatesReplaced int
	Comparisons    int
	Duration       time.Duration
}

func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Debug().Str("path", path).Msg("bench-db-opened")
	return &DB{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at INTEGER NOT NULL,
			levels_path TEXT NOT NULL,
			hash_mode TEXT NOT NULL,
			workers INTEGER NOT NULL,
			searches INTEGER NOT NULL DEFAULT 0,
			mean_nanos REAL NOT NULL DEFAULT 0,
			p99_nanos REAL NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS searches (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			level INTEGER NOT NULL,
			result TEXT NOT NULL,
			solution_steps INTEGER NOT NULL,
			states_created INTEGER NOT NULL,
			states_replaced INTEGER NOT NULL,
			comparisons INTEGER NOT NULL,
			duration_nanos INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS searches_run_level ON searches(run_id, level);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// StartRun inserts a run and returns its id.
func (d *DB) StartRun(ctx context.Context, r Run) (int64, error) {
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO runs(started_at, levels_path, hash_mode, workers) VALUES(?, ?, ?, ?)`,
		r.StartedAt.UnixNano(), r.LevelsPath, r.HashMode, r.Workers)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	return res.LastInsertId()
}

// RecordSearches appends searches to a run in one transaction.
func (d *DB) RecordSearches(ctx context.Context, runID int64, searches []Search) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO searches(run_id, level, result, solution_steps,
		states_created, states_replaced, comparisons, duration_nanos) VALUES(?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, s := range searches {
		if _, err := stmt.ExecContext(ctx, runID, s.Level, s.Result, s.SolutionSteps,
			s.StatesCreated, s.StatesReplaced, s.Comparisons, s.Duration.Nanoseconds()); err != nil {
			return fmt.Errorf("inserting search: %w", err)
		}
	}
	return tx.Commit()
}

// FinishRun stores the run's summary.
func (d *DB) FinishRun(ctx context.Context, runID int64, searches int, mean, p99 float64) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE runs SET searches = ?, mean_nanos = ?, p99_nanos = ? WHERE id = ?`,
		searches, mean, p99, runID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrUnknownRun, runID)
	}
	return nil
}

// Runs lists the most recent runs first.
func (d *DB) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, started_at, levels_path, hash_mode, workers,
		searches, mean_nanos, p99_nanos FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		var r Run
		var started int64
		if err := rows.Scan(&r.ID, &started, &r.LevelsPath, &r.HashMode, &r.Workers,
			&r.Searches, &r.MeanNanos, &r.P99Nanos); err != nil {
			return nil, err
		}
		r.StartedAt = time.Unix(0, started)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LevelSummary is the per-level aggregate of one run.
type LevelSummary struct {
	Level     int
	Searches  int
	MeanNanos float64
	MaxStates int
}

func (d *DB) LevelSummaries(ctx context.Context, runID int64) ([]LevelSummary, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT level, COUNT(*), AVG(duration_nanos), MAX(states_created)
		FROM searches WHERE run_id = ? GROUP BY level ORDER BY level`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LevelSummary
	for rows.Next() {
		var s LevelSummary
		if err := rows.Scan(&s.Level, &s.Searches, &s.MeanNanos, &s.MaxStates); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
