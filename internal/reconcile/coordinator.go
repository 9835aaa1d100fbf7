// Package reconcile re-synchronises a generated document with the code it
// describes: it parses the source tree, diffs the snapshot against the
// accepted baseline, has the document regenerated from that delta and merges
// the result back section by section under the operator's decisions.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"smartdocs/internal/config"
	"smartdocs/internal/differ"
	"smartdocs/internal/markdown"
	"smartdocs/internal/params"
	"smartdocs/internal/parser"
	"smartdocs/internal/rewrite"
	"smartdocs/internal/snapshot"
	"smartdocs/internal/storage"
)

// History records finished runs. Failures to record are logged only.
type History interface {
	RecordRun(ctx context.Context, run *storage.RunRecord) (int64, error)
}

// Options configures a Coordinator.
type Options struct {
	Layout    config.Layout
	Parser    parser.Parser
	Rewriter  rewrite.Rewriter
	Presenter Presenter
	// Chooser picks the document when several exist and none was named.
	Chooser Chooser
	History History

	// KeepPreamble re-emits text found before the first heading.
	KeepPreamble bool
	// KeepRejectedStubs keeps rejected new sections as heading-only entries.
	KeepRejectedStubs bool
	// FencedCode keeps '#' lines inside code fences out of the heading scan.
	FencedCode bool

	Logger zerolog.Logger
	// Progress receives operator-facing lines.
	Progress func(line string)
	// OnTransition is called on every state change.
	OnTransition func(from, to State)
	// Commit returns the source revision recorded with each run.
	Commit func(ctx context.Context) string
}

// Coordinator runs reconciliations, one at a time.
type Coordinator struct {
	opts  Options
	store *snapshot.Store
	log   zerolog.Logger
	mu    sync.Mutex
}

// New returns a Coordinator. Parser, Rewriter and Presenter are required.
func New(opts Options) *Coordinator {
	return &Coordinator{
		opts:  opts,
		store: snapshot.NewStore(opts.Layout.Baseline, opts.Layout.Backup, opts.Logger),
		log:   opts.Logger,
	}
}

// Candidates lists the markdown documents in the docs directory.
func (c *Coordinator) Candidates() ([]string, error) {
	entries, err := os.ReadDir(c.opts.Layout.DocsDir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".md") {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Reconcile runs the full flow for docName, or for the single document in
// the docs directory when docName is empty. On failure the baseline snapshot
// and the document are left as they were.
func (c *Coordinator) Reconcile(ctx context.Context, docName string) (*Report, error) {
	if !c.mu.TryLock() {
		return nil, newError(ErrRunInProgress, Idle, "", nil)
	}
	defer c.mu.Unlock()

	release, err := acquireLockFile(c.opts.Layout.LockFile)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(); err != nil {
			c.log.Warn().Err(err).Str("path", c.opts.Layout.LockFile).Msg("failed to remove lock file")
		}
	}()

	r := &run{state: Idle, startedAt: time.Now()}
	report, err := c.execute(ctx, r, docName)
	c.cleanup(r)
	if err != nil {
		c.transition(r, Failed)
		c.progress("Reconciliation failed: %v", err)
	} else {
		c.transition(r, Done)
	}
	c.record(ctx, r, err)
	return report, err
}

func (c *Coordinator) execute(ctx context.Context, r *run, docName string) (_ *Report, err error) {
	defer func() {
		if err == nil || r.backup == nil || r.promoted {
			return
		}
		if rerr := c.store.Restore(r.backup); rerr != nil {
			// Keep the backup for manual recovery.
			c.log.Error().Err(rerr).Str("backup", r.backup.Path()).Msg("baseline restore failed")
			err = newError(ErrIO, r.state, fmt.Sprintf("baseline restore failed; backup kept at %s", r.backup.Path()), errors.Join(err, rerr))
			return
		}
		c.store.Discard(r.backup)
	}()

	if err := c.selectTarget(ctx, r, docName); err != nil {
		return nil, err
	}
	if err := c.parse(ctx, r); err != nil {
		return nil, err
	}
	candidate, err := c.loadCandidate(r)
	if err != nil {
		return nil, err
	}
	if err := c.diff(r, candidate); err != nil {
		return nil, err
	}
	if err := c.rewrite(ctx, r); err != nil {
		return nil, err
	}
	if err := c.segment(r); err != nil {
		return nil, err
	}
	if err := c.walk(ctx, r); err != nil {
		return nil, err
	}
	text := c.assemble(r)
	if err := c.promote(r, text); err != nil {
		return nil, err
	}
	c.store.Discard(r.backup)
	return c.report(r), nil
}

func (c *Coordinator) transition(r *run, to State) {
	from := r.state
	r.state = to
	c.log.Debug().Str("from", from.String()).Str("to", to.String()).Msg("reconcile transition")
	if c.opts.OnTransition != nil {
		c.opts.OnTransition(from, to)
	}
}

func (c *Coordinator) progress(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if c.opts.Progress != nil {
		c.opts.Progress(line)
		return
	}
	c.log.Info().Msg(line)
}

// cancelled maps context cancellation to a UserCancelled failure.
func cancelled(ctx context.Context, state State) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return newError(ErrUserCancelled, state, "", ctx.Err())
	}
	return nil
}

func (c *Coordinator) selectTarget(ctx context.Context, r *run, docName string) error {
	c.transition(r, SelectingTarget)

	if docName == "" {
		names, err := c.Candidates()
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return newError(ErrIO, r.state, "failed to list documents", err)
		}
		switch len(names) {
		case 0:
			return newError(ErrNoTarget, r.state, fmt.Sprintf("no markdown documents found in %s", c.opts.Layout.DocsDir), nil)
		case 1:
			docName = names[0]
		default:
			if c.opts.Chooser == nil {
				return newError(ErrNoTarget, r.state, fmt.Sprintf("%d documents found; name one of: %s", len(names), strings.Join(names, ", ")), nil)
			}
			chosen, err := c.opts.Chooser.Choose(ctx, names)
			if err != nil {
				if errors.Is(err, ErrAbandoned) || ctx.Err() != nil {
					return newError(ErrUserCancelled, r.state, "", err)
				}
				return newError(ErrNoTarget, r.state, "no document selected", err)
			}
			if !slices.Contains(names, chosen) {
				return newError(ErrNoTarget, r.state, fmt.Sprintf("%q is not a candidate document", chosen), nil)
			}
			docName = chosen
		}
	}

	docPath := docName
	if !filepath.IsAbs(docPath) {
		docPath = filepath.Join(c.opts.Layout.DocsDir, docName)
	}
	info, err := os.Stat(docPath)
	if err != nil || !info.Mode().IsRegular() {
		return newError(ErrNoTarget, r.state, fmt.Sprintf("document not found: %s", docName), err)
	}
	r.document = docName
	r.docPath = docPath

	if !c.store.HasBaseline() {
		return newError(ErrMissingBaseline, r.state, "", nil)
	}
	if _, err := os.Stat(c.opts.Layout.Params); err != nil {
		return newError(ErrMissingBaseline, r.state, fmt.Sprintf("missing %s; run generate first", params.FileName), err)
	}
	if _, err := params.Load(c.opts.Layout.Params); err != nil {
		return newError(ErrIO, r.state, "invalid generation parameters", err)
	}

	oldDoc, err := os.ReadFile(docPath)
	if err != nil {
		return newError(ErrIO, r.state, "failed to read document", err)
	}
	r.oldDoc = oldDoc
	c.progress("Reconciling %s", docName)
	return nil
}

func (c *Coordinator) parse(ctx context.Context, r *run) error {
	c.transition(r, Parsing)

	h, err := c.store.Backup()
	if err != nil {
		return newError(ErrIO, r.state, "failed to back up baseline", err)
	}
	r.backup = h

	c.progress("Parsing %s", c.opts.Layout.Root)
	out, err := c.opts.Parser.Parse(ctx, c.opts.Layout.Root)
	if err != nil {
		if cerr := cancelled(ctx, r.state); cerr != nil {
			return cerr
		}
		return newError(ErrParser, r.state, "", err)
	}

	// Stage the parser output as the candidate, then put the baseline back
	// if the parser wrote over it.
	candidate := c.opts.Layout.Candidate
	r.track(candidate)
	if err := snapshot.CopyFile(out, candidate); err != nil {
		return newError(ErrIO, r.state, "failed to stage candidate snapshot", err)
	}
	if samePath(out, c.opts.Layout.Baseline) {
		if err := c.store.Restore(r.backup); err != nil {
			return newError(ErrIO, r.state, "failed to restore baseline after parse", err)
		}
	}
	return nil
}

func (c *Coordinator) loadCandidate(r *run) (*snapshot.Node, error) {
	n, err := snapshot.ReadFile(c.opts.Layout.Candidate)
	if err != nil {
		return nil, newError(ErrParser, r.state, "parser produced an unreadable snapshot", err)
	}
	return n, nil
}

func (c *Coordinator) diff(r *run, candidate *snapshot.Node) error {
	c.transition(r, Diffing)

	baseline, err := c.store.LoadBaseline()
	if errors.Is(err, snapshot.ErrNotFound) {
		return newError(ErrMissingBaseline, r.state, "", err)
	}
	if err != nil {
		return newError(ErrIO, r.state, "failed to read baseline snapshot", err)
	}

	r.delta = differ.Diff(baseline, candidate)
	if err := r.delta.WriteFile(c.opts.Layout.Delta); err != nil {
		return newError(ErrIO, r.state, "failed to write delta", err)
	}
	st := r.delta.Stats()
	c.progress("Computed structural diff (%d added, %d removed, %d edited), saved at %s",
		st.Added, st.Removed, st.Edited, c.opts.Layout.Delta)
	return nil
}

func (c *Coordinator) rewrite(ctx context.Context, r *run) error {
	c.transition(r, Rewriting)

	ext := filepath.Ext(r.docPath)
	base := strings.TrimSuffix(filepath.Base(r.docPath), ext)
	out := filepath.Join(c.opts.Layout.StateDir, base+"_new"+ext)
	r.track(out)

	res, err := c.opts.Rewriter.Rewrite(ctx, rewrite.Request{
		DeltaPath:  c.opts.Layout.Delta,
		ParamsPath: c.opts.Layout.Params,
		OldDocPath: r.docPath,
		OutputPath: out,
	})
	if err != nil {
		if cerr := cancelled(ctx, r.state); cerr != nil {
			return cerr
		}
		return newError(ErrRewrite, r.state, "", err)
	}
	if res == nil {
		res = &rewrite.Result{OutputPath: out}
	}
	if res.OutputPath == "" {
		res.OutputPath = out
	}
	if res.OutputPath != out {
		r.track(res.OutputPath)
	}
	if err := rewrite.CheckOutput(res.OutputPath); err != nil {
		return newError(ErrRewrite, r.state, "", err)
	}
	r.rewrite = res
	if res.Summary != "" {
		c.progress("Summary: %s", res.Summary)
	}
	return nil
}

func (c *Coordinator) segment(r *run) error {
	c.transition(r, Segmenting)

	newDoc, err := os.ReadFile(r.rewrite.OutputPath)
	if err != nil {
		return newError(ErrRewrite, r.state, "failed to read regenerated document", err)
	}
	seg := markdown.Segmenter{FencedCode: c.opts.FencedCode}
	r.oldSections = seg.Segment(string(r.oldDoc))
	r.newSections = seg.Segment(string(newDoc))

	c.progress("Old sections: %s", strings.Join(r.oldSections.Keys(), ", "))
	c.progress("New sections: %s", strings.Join(r.newSections.Keys(), ", "))
	return nil
}

func (c *Coordinator) walk(ctx context.Context, r *run) error {
	c.transition(r, SectionWalk)

	keys := r.newSections.Keys()
	for i, key := range keys {
		if err := cancelled(ctx, r.state); err != nil {
			return err
		}

		newBody, _ := r.newSections.Get(key)
		oldBody, exists := r.oldSections.Get(key)
		cmp := Comparison{
			Key:     key,
			Index:   i,
			Total:   len(keys),
			OldBody: oldBody,
			NewBody: newBody,
			IsNew:   !exists,
		}
		cmp.OldPath, cmp.NewPath = c.writeComparison(r, key, oldBody, newBody)

		d, err := c.opts.Presenter.Present(ctx, cmp)
		c.removeFiles(cmp.OldPath, cmp.NewPath)
		switch {
		case err == nil:
			if d != Accept && d != Reject {
				c.log.Warn().Int("decision", int(d)).Str("section", key).Msg("invalid decision; rejecting section")
				d = Reject
			}
		case errors.Is(err, ErrAbandoned) || ctx.Err() != nil:
			return newError(ErrUserCancelled, r.state, fmt.Sprintf("decision walk abandoned at %q", key), err)
		case errors.Is(err, ErrDismissed):
			d = Reject
		default:
			c.log.Warn().Err(err).Str("section", key).Msg("presenter failed; rejecting section")
			d = Reject
		}

		r.decisions = append(r.decisions, SectionDecision{Key: key, Decision: d, New: !exists})
		if d == Accept {
			c.progress("Accepted section: %s", key)
		} else {
			c.progress("Rejected section: %s", key)
		}
	}
	return nil
}

var nonWord = regexp.MustCompile(`\W+`)

// writeComparison writes both sides of a section as standalone files for
// external diff tools. Failures are logged and yield empty paths.
func (c *Coordinator) writeComparison(r *run, key, oldBody, newBody string) (string, string) {
	dir := c.opts.Layout.CompareDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.log.Warn().Err(err).Str("dir", dir).Msg("failed to create comparison directory")
		return "", ""
	}
	name := "." + nonWord.ReplaceAllString(key, "_")
	oldPath := filepath.Join(dir, name+"_old.md")
	newPath := filepath.Join(dir, name+"_new.md")
	r.track(oldPath, newPath)

	for path, body := range map[string]string{oldPath: oldBody, newPath: newBody} {
		if err := os.WriteFile(path, []byte(key+"\n\n"+body+"\n"), 0o644); err != nil {
			c.log.Warn().Err(err).Str("path", path).Msg("failed to write comparison file")
			return "", ""
		}
	}
	return oldPath, newPath
}

func (c *Coordinator) assemble(r *run) string {
	c.transition(r, Assembling)

	final := r.oldSections.Clone()
	for _, d := range r.decisions {
		switch {
		case d.Decision == Accept:
			body, _ := r.newSections.Get(d.Key)
			final.Set(d.Key, body)
		case d.New && c.opts.KeepRejectedStubs:
			final.Set(d.Key, "")
		}
	}
	r.final = final
	return final.Render(c.opts.KeepPreamble)
}

func (c *Coordinator) promote(r *run, text string) error {
	c.transition(r, Promoting)

	if err := snapshot.WriteFile(r.docPath, []byte(text)); err != nil {
		return newError(ErrIO, r.state, "failed to write document", err)
	}

	if err := c.store.Promote(c.opts.Layout.Candidate); err != nil {
		if rerr := snapshot.WriteFile(r.docPath, r.oldDoc); rerr != nil {
			c.log.Error().Err(rerr).Str("path", r.docPath).Msg("failed to restore document after promote failure")
		}
		return newError(ErrIO, r.state, "failed to promote candidate snapshot", err)
	}
	r.promoted = true
	c.progress("Documentation updated section by section: %s", r.docPath)
	return nil
}

func (c *Coordinator) cleanup(r *run) {
	c.removeFiles(r.artifacts...)
	// Only removes the directory when it is empty.
	_ = os.Remove(c.opts.Layout.CompareDir)
}

func (c *Coordinator) removeFiles(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.log.Warn().Err(err).Str("path", p).Msg("failed to remove transient file")
		}
	}
}

func (c *Coordinator) report(r *run) *Report {
	rep := &Report{
		Document:  r.document,
		Path:      r.docPath,
		Delta:     r.delta.Stats(),
		Decisions: r.decisions,
		Sections:  r.final.Keys(),
	}
	if r.rewrite != nil {
		rep.Summary = r.rewrite.Summary
	}
	for _, key := range r.oldSections.Keys() {
		if !r.newSections.Has(key) {
			rep.Carried = append(rep.Carried, key)
		}
	}
	return rep
}

func (c *Coordinator) record(ctx context.Context, r *run, runErr error) {
	if c.opts.History == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	rec := &storage.RunRecord{
		Document:   r.document,
		StartedAt:  r.startedAt,
		FinishedAt: time.Now(),
		Outcome:    "done",
		State:      r.state.String(),
	}
	if runErr != nil {
		rec.Outcome = "failed"
		var e *Error
		if errors.As(runErr, &e) {
			rec.State = e.State.String()
		}
		rec.Error = runErr.Error()
	}
	if c.opts.Commit != nil {
		rec.Commit = c.opts.Commit(ctx)
	}
	if r.rewrite != nil {
		rec.Summary = r.rewrite.Summary
	}
	st := r.delta.Stats()
	rec.Added, rec.Removed, rec.Edited = st.Added, st.Removed, st.Edited
	for _, d := range r.decisions {
		rec.Decisions = append(rec.Decisions, storage.DecisionRecord{Heading: d.Key, Decision: d.Decision.String(), New: d.New})
	}

	if _, err := c.opts.History.RecordRun(ctx, rec); err != nil {
		c.log.Warn().Err(err).Msg("failed to record run history")
	}
}

func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && aa == bb
}
