// Package pipeline holds the flows around reconciliation: first-time
// generation of a document, the section review that follows it, and a
// read-only status check of the source tree against the baseline.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"smartdocs/internal/config"
	"smartdocs/internal/llm"
	"smartdocs/internal/params"
	"smartdocs/internal/parser"
	"smartdocs/internal/reconcile"
	"smartdocs/internal/runner"
	"smartdocs/internal/snapshot"
)

var (
	// ErrParamsExist means generate.json is already present and the caller
	// did not ask to overwrite it.
	ErrParamsExist = errors.New("generation parameters already exist")

	// ErrNoDocument means the generator finished without producing a document.
	ErrNoDocument = errors.New("generator produced no document")
)

// GenerateRequest describes one generation.
type GenerateRequest struct {
	DocType   string
	Sections  []string
	Overwrite bool
	// Review walks the generated sections through the Presenter afterwards.
	Review bool
}

// GenerateResult reports a finished generation.
type GenerateResult struct {
	Document string
	Path     string
	Sections []string
	// Issues are quality warnings about the generated text.
	Issues []string
	Review *ReviewResult
}

// Generator produces a document from scratch and establishes the baseline
// snapshot that later reconciliations diff against.
type Generator struct {
	Layout config.Layout
	Parser parser.Parser

	// Command is an external generator run with the document directory
	// appended. When empty, LLM writes the document in-process.
	Command []string
	Timeout time.Duration
	LLM     llm.Generator
	Prompts *llm.PromptBuilder

	Presenter reconcile.Presenter
	Log       zerolog.Logger
	Progress  func(line string)
}

func (g *Generator) progress(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if g.Progress != nil {
		g.Progress(line)
		return
	}
	g.Log.Info().Msg(line)
}

func (g *Generator) forward(_ runner.Stream, line string) {
	g.progress("%s", line)
}

// Generate writes generate.json, parses the source tree, writes the document
// and promotes the new snapshot to baseline. The baseline and generate.json
// are left as they were when any step fails.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (_ *GenerateResult, err error) {
	p := &params.Params{
		DocumentationType: strings.TrimSpace(req.DocType),
		Sections:          req.Sections,
	}
	if p.Sections == nil {
		p.Sections = []string{}
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generation parameters: %w", err)
	}
	if _, statErr := os.Stat(g.Layout.Params); statErr == nil && !req.Overwrite {
		return nil, fmt.Errorf("%w at %s: run reconcile to update %s, or pass --overwrite",
			ErrParamsExist, g.Layout.Params, p.DocumentName())
	}
	prevParams, readErr := os.ReadFile(g.Layout.Params)
	if err := params.Save(g.Layout.Params, p); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", g.Layout.Params, err)
	}
	defer func() {
		if err == nil {
			return
		}
		if readErr != nil {
			removeQuiet(g.Log, g.Layout.Params)
			return
		}
		if werr := snapshot.WriteFile(g.Layout.Params, prevParams); werr != nil {
			g.Log.Error().Err(werr).Str("path", g.Layout.Params).Msg("failed to restore generation parameters")
		}
	}()
	g.progress("'%s' written. Starting documentation generation...", params.FileName)

	store := snapshot.NewStore(g.Layout.Baseline, g.Layout.Backup, g.Log)
	hadBaseline := store.HasBaseline()
	backup, err := store.Backup()
	if err != nil {
		return nil, err
	}
	defer func() {
		removeQuiet(g.Log, g.Layout.Candidate)
		if err == nil {
			store.Discard(backup)
			return
		}
		if !hadBaseline {
			removeQuiet(g.Log, g.Layout.Baseline)
			return
		}
		if rerr := store.Restore(backup); rerr != nil {
			g.Log.Error().Err(rerr).Str("backup", backup.Path()).Msg("failed to restore baseline; backup kept")
			return
		}
		store.Discard(backup)
	}()

	snapJSON, err := stageSnapshot(ctx, g.Parser, store, g.Layout, backup)
	if err != nil {
		return nil, err
	}

	docPath := filepath.Join(g.Layout.DocsDir, p.DocumentName())
	doc, err := g.produce(ctx, p, snapJSON, docPath)
	if err != nil {
		return nil, err
	}

	res := &GenerateResult{Document: p.DocumentName(), Path: docPath}
	res.Sections = sectionTitles(doc)
	res.Issues = assessDocument(doc, p.Sections)
	for _, issue := range res.Issues {
		g.Log.Warn().Str("document", res.Document).Str("issue", issue).Msg("generated document quality")
	}

	if err := store.Promote(g.Layout.Candidate); err != nil {
		return nil, err
	}
	g.progress("Documentation generated at %s", docPath)

	if req.Review && g.Presenter != nil {
		rv, rerr := Review(ctx, docPath, g.Presenter)
		if rerr != nil {
			// The document and baseline are already consistent.
			g.Log.Warn().Err(rerr).Msg("review not completed; document kept as generated")
			return res, nil
		}
		res.Review = rv
		g.progress("Review complete. Updated: %s", res.Document)
	}
	return res, nil
}

// produce writes the document at docPath and returns its text.
func (g *Generator) produce(ctx context.Context, p *params.Params, snapJSON []byte, docPath string) (string, error) {
	if len(g.Command) > 0 {
		return g.runCommand(ctx, docPath)
	}
	if g.LLM == nil {
		return "", errors.New("no generator configured")
	}

	pb := g.Prompts
	if pb == nil {
		pb = &llm.PromptBuilder{}
	}
	g.progress("Sending generation prompt to AI...")
	reply, err := g.LLM.Generate(ctx, pb.BuildGeneratePrompt(string(snapJSON), p.DocumentationType, p.Sections))
	if err != nil {
		return "", fmt.Errorf("generate document: %w", err)
	}
	doc := strings.TrimSpace(llm.ExtractMarkdown(reply))
	if doc == "" {
		return "", ErrNoDocument
	}
	if titles := llm.ExtractSectionTitles(reply); len(titles) > 0 {
		g.Log.Debug().Strs("sections", titles).Msg("model reported sections")
	}
	if err := snapshot.WriteFile(docPath, []byte(doc+"\n")); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	return doc, nil
}

func (g *Generator) runCommand(ctx context.Context, docPath string) (string, error) {
	cmd, err := runner.FromArgv(g.Command, g.Layout.DocsDir)
	if err != nil {
		return "", fmt.Errorf("generator command: %w", err)
	}
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	if _, err := runner.Run(ctx, cmd, g.forward); err != nil {
		return "", err
	}
	data, err := os.ReadFile(docPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w at %s", ErrNoDocument, docPath)
		}
		return "", err
	}
	doc := strings.TrimSpace(string(data))
	if doc == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNoDocument, docPath)
	}
	return doc, nil
}

// stageSnapshot runs the parser, copies its output to the candidate path and
// returns the candidate bytes. A parser that writes over the baseline gets
// the baseline put back from backup.
func stageSnapshot(ctx context.Context, p parser.Parser, store *snapshot.Store, layout config.Layout, backup *snapshot.BackupHandle) ([]byte, error) {
	out, err := p.Parse(ctx, layout.Root)
	if err != nil {
		return nil, fmt.Errorf("parser failed: %w", err)
	}
	if err := snapshot.CopyFile(out, layout.Candidate); err != nil {
		return nil, fmt.Errorf("failed to stage candidate snapshot: %w", err)
	}
	if samePath(out, layout.Baseline) {
		if backup != nil {
			if err := store.Restore(backup); err != nil {
				return nil, err
			}
		} else if err := os.Remove(layout.Baseline); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	data, err := os.ReadFile(layout.Candidate)
	if err != nil {
		return nil, err
	}
	if _, err := snapshot.Parse(data); err != nil {
		return nil, fmt.Errorf("parser produced an unreadable snapshot: %w", err)
	}
	return data, nil
}

func removeQuiet(log zerolog.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", path).Msg("failed to remove file")
	}
}

func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && aa == bb
}
