package storage

import (
	"context"
	"time"
)

// Store persists the reconciliation run ledger.
type Store interface {
	RunStore
	Close() error
}

// RunStore records reconciliation runs and their per-section decisions.
type RunStore interface {
	// RecordRun inserts the run and its decisions and returns the run ID.
	RecordRun(ctx context.Context, run *RunRecord) (int64, error)

	// ListRuns returns the most recent runs first. limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)

	// Decisions returns the decisions of one run in walk order.
	Decisions(ctx context.Context, runID int64) ([]DecisionRecord, error)
}

// RunRecord is one finished reconciliation run, successful or not.
type RunRecord struct {
	ID         int64
	Document   string
	Commit     string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string // done, failed
	State      string // last state reached
	Error      string
	Summary    string
	Added      int
	Removed    int
	Edited     int
	Decisions  []DecisionRecord
}

// DecisionRecord is the operator's answer for one section.
type DecisionRecord struct {
	Heading  string
	Decision string // accept, reject
	New      bool   // section absent from the previous document
}
