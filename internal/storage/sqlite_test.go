package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RecordAndList(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	first := &RunRecord{
		Document:   "Guide.md",
		Commit:     "abc123",
		StartedAt:  start,
		FinishedAt: start.Add(time.Minute),
		Outcome:    "done",
		State:      "Done",
		Summary:    "Updated Usage.",
		Added:      1,
		Edited:     2,
		Decisions: []DecisionRecord{
			{Heading: "## Usage", Decision: "accept"},
			{Heading: "## FAQ", Decision: "reject", New: true},
		},
	}
	id, err := store.RecordRun(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, id, first.ID)

	_, err = store.RecordRun(ctx, &RunRecord{
		Document:   "Guide.md",
		StartedAt:  start.Add(time.Hour),
		FinishedAt: start.Add(time.Hour),
		Outcome:    "failed",
		State:      "Parsing",
		Error:      "parser failed (exit 1)",
	})
	require.NoError(t, err)

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "failed", runs[0].Outcome, "most recent first")
	assert.Equal(t, "Parsing", runs[0].State)
	assert.Empty(t, runs[0].Commit)

	got := runs[1]
	assert.Equal(t, "abc123", got.Commit)
	assert.Equal(t, 1, got.Added)
	assert.Equal(t, 2, got.Edited)
	assert.True(t, got.StartedAt.Equal(start))

	limited, err := store.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	decisions, err := store.Decisions(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first.Decisions, decisions)
}

func TestSQLiteStore_ReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	now := time.Now()
	_, err = store.RecordRun(context.Background(), &RunRecord{Document: "A.md", StartedAt: now, FinishedAt: now, Outcome: "done"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
