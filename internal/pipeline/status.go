package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"smartdocs/internal/config"
	"smartdocs/internal/differ"
	"smartdocs/internal/git"
	"smartdocs/internal/parser"
	"smartdocs/internal/snapshot"
)

// StatusReport compares the current source tree with the baseline.
type StatusReport struct {
	HasBaseline bool
	Delta       differ.Delta
	Stats       differ.Stats
	// Changed lists uncommitted source changes; empty outside a repository.
	Changed []git.ChangedFile
	Commit  string
}

// Status inspects the tree without changing the baseline or any document.
type Status struct {
	Layout config.Layout
	Parser parser.Parser
	Log    zerolog.Logger
}

func (s *Status) Inspect(ctx context.Context) (*StatusReport, error) {
	store := snapshot.NewStore(s.Layout.Baseline, s.Layout.Backup, s.Log)
	rep := &StatusReport{
		HasBaseline: store.HasBaseline(),
		Commit:      git.HeadCommit(ctx, s.Layout.Root),
	}
	changed, err := git.ChangedFiles(ctx, s.Layout.Root, "HEAD")
	switch {
	case errors.Is(err, git.ErrNotRepository):
		s.Log.Debug().Str("root", s.Layout.Root).Msg("not a git work tree; skipping uncommitted changes")
	case err != nil:
		s.Log.Warn().Err(err).Msg("could not read git changes")
	}
	rep.Changed = changed

	var baseline *snapshot.Node
	if rep.HasBaseline {
		baseline, err = store.LoadBaseline()
		if err != nil && !errors.Is(err, snapshot.ErrNotFound) {
			return nil, fmt.Errorf("read baseline: %w", err)
		}
	}

	backup, err := store.Backup()
	if err != nil {
		return nil, err
	}
	defer store.Discard(backup)
	defer removeQuiet(s.Log, s.Layout.Candidate)

	data, err := stageSnapshot(ctx, s.Parser, store, s.Layout, backup)
	if err != nil {
		switch {
		case backup != nil:
			if rerr := store.Restore(backup); rerr != nil {
				s.Log.Error().Err(rerr).Msg("failed to restore baseline")
			}
		case samePath(s.Layout.ParserOutput, s.Layout.Baseline):
			removeQuiet(s.Log, s.Layout.Baseline)
		}
		return nil, err
	}
	if !rep.HasBaseline {
		return rep, nil
	}
	candidate, err := snapshot.Parse(data)
	if err != nil {
		return nil, err
	}
	rep.Delta = differ.Diff(baseline, candidate)
	rep.Stats = rep.Delta.Stats()
	return rep, nil
}
