package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document TEXT NOT NULL,
			git_commit TEXT,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL,
			outcome TEXT NOT NULL,
			state TEXT,
			error TEXT,
			summary TEXT,
			added INTEGER NOT NULL DEFAULT 0,
			removed INTEGER NOT NULL DEFAULT 0,
			edited INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS decisions (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			heading TEXT NOT NULL,
			decision TEXT NOT NULL,
			is_new INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_document ON runs(document);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) RecordRun(ctx context.Context, run *RunRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (document, git_commit, started_at, finished_at, outcome, state, error, summary, added, removed, edited)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.Document, run.Commit, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Outcome, run.State, run.Error, run.Summary,
		run.Added, run.Removed, run.Edited)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(run.Decisions) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO decisions (run_id, position, heading, decision, is_new) VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return 0, err
		}
		defer stmt.Close()

		for i, d := range run.Decisions {
			if _, err := stmt.ExecContext(ctx, id, i, d.Heading, d.Decision, d.New); err != nil {
				return 0, fmt.Errorf("insert decision %q: %w", d.Heading, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	run.ID = id
	return id, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT id, document, COALESCE(git_commit, ''), started_at, finished_at, outcome,
			COALESCE(state, ''), COALESCE(error, ''), COALESCE(summary, ''), added, removed, edited
		FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var started, finished time.Time
		if err := rows.Scan(&r.ID, &r.Document, &r.Commit, &started, &finished, &r.Outcome,
			&r.State, &r.Error, &r.Summary, &r.Added, &r.Removed, &r.Edited); err != nil {
			return nil, err
		}
		r.StartedAt = started.Local()
		r.FinishedAt = finished.Local()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Decisions(ctx context.Context, runID int64) ([]DecisionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT heading, decision, is_new FROM decisions WHERE run_id = ? ORDER BY position
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DecisionRecord
	for rows.Next() {
		var d DecisionRecord
		if err := rows.Scan(&d.Heading, &d.Decision, &d.New); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
