package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartdocs/internal/config"
	"smartdocs/internal/llm"
	"smartdocs/internal/params"
	"smartdocs/internal/reconcile"
)

const (
	baselineJSON  = `{"files":[{"path":"a.go"}]}`
	candidateJSON = `{"files":[{"path":"a.go"},{"path":"b.go"}]}`

	generatedReply = "```markdown\n# API Reference\n\n## Overview\n\nWhat it does.\n\n## Usage\n\nRun it.\n```\n\n" +
		"```json\n[\"Overview\", \"Usage\"]\n```\n"
)

// fakeParser writes a fixed snapshot to out.
type fakeParser struct {
	out   string
	data  string
	err   error
	calls int
}

func (p *fakeParser) Parse(_ context.Context, _ string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	if err := os.MkdirAll(filepath.Dir(p.out), 0o755); err != nil {
		return "", err
	}
	return p.out, os.WriteFile(p.out, []byte(p.data), 0o644)
}

type presenterFunc func(ctx context.Context, cmp reconcile.Comparison) (reconcile.Decision, error)

func (f presenterFunc) Present(ctx context.Context, cmp reconcile.Comparison) (reconcile.Decision, error) {
	return f(ctx, cmp)
}

func decideBy(decisions map[string]reconcile.Decision) presenterFunc {
	return func(_ context.Context, cmp reconcile.Comparison) (reconcile.Decision, error) {
		return decisions[cmp.Key], nil
	}
}

func testLayout(t *testing.T) config.Layout {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Project.Root = dir
	cfg.Project.DocsDir = dir
	cfg.State.Dir = filepath.Join(dir, ".smartdocs")
	return cfg.Layout()
}

func reply(text string, err error) llm.GeneratorFunc {
	return func(context.Context, string) (string, error) { return text, err }
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestGenerate_LLM(t *testing.T) {
	layout := testLayout(t)
	p := &fakeParser{out: layout.ParserOutput, data: candidateJSON}
	var prompt string
	g := &Generator{
		Layout: layout,
		Parser: p,
		LLM: llm.GeneratorFunc(func(_ context.Context, in string) (string, error) {
			prompt = in
			return generatedReply, nil
		}),
		Log: zerolog.Nop(),
	}

	res, err := g.Generate(context.Background(), GenerateRequest{
		DocType:  "API Reference",
		Sections: []string{"Overview", "Usage"},
	})
	require.NoError(t, err)

	assert.Equal(t, "API_Reference.md", res.Document)
	assert.Equal(t, filepath.Join(layout.DocsDir, "API_Reference.md"), res.Path)
	assert.Equal(t, []string{"Overview", "Usage"}, res.Sections)
	assert.Empty(t, res.Issues)
	assert.Nil(t, res.Review)

	assert.Equal(t, "# API Reference\n\n## Overview\n\nWhat it does.\n\n## Usage\n\nRun it.\n", readFile(t, res.Path))
	assert.JSONEq(t, candidateJSON, readFile(t, layout.Baseline))
	assert.NoFileExists(t, layout.Candidate)
	assert.NoFileExists(t, layout.Backup)
	assert.Contains(t, prompt, `"b.go"`)
	assert.Contains(t, prompt, "API Reference")

	saved, err := params.Load(layout.Params)
	require.NoError(t, err)
	assert.Equal(t, "API Reference", saved.DocumentationType)
	assert.Equal(t, []string{"Overview", "Usage"}, saved.Sections)
}

func TestGenerate_ParamsExist(t *testing.T) {
	layout := testLayout(t)
	require.NoError(t, params.Save(layout.Params, &params.Params{DocumentationType: "Guide", Sections: []string{}}))

	p := &fakeParser{out: layout.ParserOutput, data: candidateJSON}
	g := &Generator{Layout: layout, Parser: p, LLM: reply(generatedReply, nil), Log: zerolog.Nop()}

	_, err := g.Generate(context.Background(), GenerateRequest{DocType: "API Reference"})
	require.ErrorIs(t, err, ErrParamsExist)
	assert.Contains(t, err.Error(), "run reconcile")
	assert.Zero(t, p.calls)

	res, err := g.Generate(context.Background(), GenerateRequest{DocType: "API Reference", Overwrite: true})
	require.NoError(t, err)
	assert.FileExists(t, res.Path)
}

func TestGenerate_InvalidParams(t *testing.T) {
	layout := testLayout(t)
	g := &Generator{Layout: layout, Parser: &fakeParser{}, LLM: reply(generatedReply, nil), Log: zerolog.Nop()}

	_, err := g.Generate(context.Background(), GenerateRequest{DocType: "   "})
	require.Error(t, err)
	assert.NoFileExists(t, layout.Params)
}

func TestGenerate_FailureKeepsBaseline(t *testing.T) {
	boom := errors.New("model unavailable")

	t.Run("existing baseline is restored", func(t *testing.T) {
		layout := testLayout(t)
		require.NoError(t, os.MkdirAll(layout.StateDir, 0o755))
		require.NoError(t, os.WriteFile(layout.Baseline, []byte(baselineJSON), 0o644))

		g := &Generator{
			Layout: layout,
			Parser: &fakeParser{out: layout.ParserOutput, data: candidateJSON},
			LLM:    reply("", boom),
			Log:    zerolog.Nop(),
		}
		_, err := g.Generate(context.Background(), GenerateRequest{DocType: "Guide"})
		require.ErrorIs(t, err, boom)

		assert.JSONEq(t, baselineJSON, readFile(t, layout.Baseline))
		assert.NoFileExists(t, layout.Candidate)
		assert.NoFileExists(t, layout.Backup)
		assert.NoFileExists(t, filepath.Join(layout.DocsDir, "Guide.md"))
	})

	t.Run("no baseline stays absent", func(t *testing.T) {
		layout := testLayout(t)
		g := &Generator{
			Layout: layout,
			Parser: &fakeParser{out: layout.ParserOutput, data: candidateJSON},
			LLM:    reply("", boom),
			Log:    zerolog.Nop(),
		}
		_, err := g.Generate(context.Background(), GenerateRequest{DocType: "Guide"})
		require.ErrorIs(t, err, boom)
		assert.NoFileExists(t, layout.Baseline)
	})

	t.Run("unreadable snapshot", func(t *testing.T) {
		layout := testLayout(t)
		g := &Generator{
			Layout: layout,
			Parser: &fakeParser{out: layout.ParserOutput, data: "{not json"},
			LLM:    reply(generatedReply, nil),
			Log:    zerolog.Nop(),
		}
		_, err := g.Generate(context.Background(), GenerateRequest{DocType: "Guide"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unreadable snapshot")
		assert.NoFileExists(t, layout.Baseline)
	})

	t.Run("empty reply", func(t *testing.T) {
		layout := testLayout(t)
		g := &Generator{
			Layout: layout,
			Parser: &fakeParser{out: layout.ParserOutput, data: candidateJSON},
			LLM:    reply("   ", nil),
			Log:    zerolog.Nop(),
		}
		_, err := g.Generate(context.Background(), GenerateRequest{DocType: "Guide"})
		require.ErrorIs(t, err, ErrNoDocument)
	})
}

func TestGenerate_FailureRollsBackParams(t *testing.T) {
	boom := errors.New("model unavailable")

	t.Run("first run can be retried", func(t *testing.T) {
		layout := testLayout(t)
		g := &Generator{
			Layout: layout,
			Parser: &fakeParser{out: layout.ParserOutput, data: candidateJSON},
			LLM:    reply("", boom),
			Log:    zerolog.Nop(),
		}
		_, err := g.Generate(context.Background(), GenerateRequest{DocType: "Guide"})
		require.ErrorIs(t, err, boom)
		assert.NoFileExists(t, layout.Params)

		g.LLM = reply(generatedReply, nil)
		res, err := g.Generate(context.Background(), GenerateRequest{DocType: "Guide"})
		require.NoError(t, err)
		assert.FileExists(t, res.Path)
		assert.FileExists(t, layout.Params)
	})

	t.Run("overwrite keeps previous params", func(t *testing.T) {
		layout := testLayout(t)
		require.NoError(t, params.Save(layout.Params, &params.Params{DocumentationType: "Guide", Sections: []string{"Setup"}}))
		before := readFile(t, layout.Params)

		g := &Generator{
			Layout: layout,
			Parser: &fakeParser{out: layout.ParserOutput, data: candidateJSON},
			LLM:    reply("", boom),
			Log:    zerolog.Nop(),
		}
		_, err := g.Generate(context.Background(), GenerateRequest{DocType: "Reference", Overwrite: true})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, before, readFile(t, layout.Params))
	})
}

func TestGenerate_Command(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	t.Run("writes document", func(t *testing.T) {
		layout := testLayout(t)
		g := &Generator{
			Layout:  layout,
			Parser:  &fakeParser{out: layout.ParserOutput, data: candidateJSON},
			Command: []string{"sh", "-c", `echo "generating in $0"; printf '# Guide\n\n## Setup\n\nSteps.\n' > "$0/Guide.md"`},
			Log:     zerolog.Nop(),
		}
		var lines []string
		g.Progress = func(line string) { lines = append(lines, line) }

		res, err := g.Generate(context.Background(), GenerateRequest{DocType: "Guide"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Setup"}, res.Sections)
		assert.Contains(t, lines, "generating in "+layout.DocsDir)
		assert.JSONEq(t, candidateJSON, readFile(t, layout.Baseline))
	})

	t.Run("no document", func(t *testing.T) {
		layout := testLayout(t)
		g := &Generator{
			Layout:  layout,
			Parser:  &fakeParser{out: layout.ParserOutput, data: candidateJSON},
			Command: []string{"sh", "-c", "true"},
			Log:     zerolog.Nop(),
		}
		_, err := g.Generate(context.Background(), GenerateRequest{DocType: "Guide"})
		require.ErrorIs(t, err, ErrNoDocument)
		assert.NoFileExists(t, layout.Baseline)
	})
}

func TestGenerate_WithReview(t *testing.T) {
	layout := testLayout(t)
	g := &Generator{
		Layout: layout,
		Parser: &fakeParser{out: layout.ParserOutput, data: candidateJSON},
		LLM:    reply(generatedReply, nil),
		Presenter: decideBy(map[string]reconcile.Decision{
			"# API Reference": reconcile.Accept,
			"## Overview":     reconcile.Accept,
			"## Usage":        reconcile.Reject,
		}),
		Log: zerolog.Nop(),
	}

	res, err := g.Generate(context.Background(), GenerateRequest{DocType: "API Reference", Review: true})
	require.NoError(t, err)
	require.NotNil(t, res.Review)
	assert.Equal(t, []string{"# API Reference", "## Overview"}, res.Review.Accepted)
	assert.Equal(t, []string{"## Usage"}, res.Review.Rejected)
	assert.Equal(t, "# API Reference\n\n## Overview\n\nWhat it does.\n\n## Usage\n", readFile(t, res.Path))
}

func TestReview(t *testing.T) {
	const doc = "Intro line.\n\n## A\n\nbody a\n\n```json\n{\"k\": 1}\n```\n\n## B\n\nbody b\n"

	t.Run("accept and reject", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "Guide.md")
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

		var seen []reconcile.Comparison
		p := presenterFunc(func(_ context.Context, cmp reconcile.Comparison) (reconcile.Decision, error) {
			seen = append(seen, cmp)
			if cmp.Key == "## A" {
				return reconcile.Accept, nil
			}
			return reconcile.Reject, nil
		})

		res, err := Review(context.Background(), path, p)
		require.NoError(t, err)
		assert.Equal(t, []string{"## A"}, res.Accepted)
		assert.Equal(t, []string{"## B"}, res.Rejected)
		assert.Equal(t, "Intro line.\n\n## A\n\nbody a\n\n## B\n", readFile(t, path))

		require.Len(t, seen, 2)
		assert.True(t, seen[0].IsNew)
		assert.Equal(t, 2, seen[1].Total)
		assert.Equal(t, "body b", seen[1].NewBody)
	})

	t.Run("dismissed rejects", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "Guide.md")
		require.NoError(t, os.WriteFile(path, []byte("## A\n\nbody a\n"), 0o644))

		p := presenterFunc(func(context.Context, reconcile.Comparison) (reconcile.Decision, error) {
			return reconcile.Accept, reconcile.ErrDismissed
		})
		res, err := Review(context.Background(), path, p)
		require.NoError(t, err)
		assert.Equal(t, []string{"## A"}, res.Rejected)
		assert.Equal(t, "## A\n", readFile(t, path))
	})

	t.Run("abandon leaves file untouched", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "Guide.md")
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

		p := presenterFunc(func(context.Context, reconcile.Comparison) (reconcile.Decision, error) {
			return reconcile.Reject, reconcile.ErrAbandoned
		})
		_, err := Review(context.Background(), path, p)
		require.ErrorIs(t, err, reconcile.ErrAbandoned)
		assert.Equal(t, doc, readFile(t, path))
	})
}

func TestAssessDocument(t *testing.T) {
	assert.Equal(t, []string{"empty_document"}, assessDocument("  \n", nil))
	assert.Empty(t, assessDocument("# T\n\n## Usage\n\nRun it.\n", []string{"usage"}))

	issues := assessDocument("# T\n\n## Usage\n\n## FAQ\n\nTBD\n", []string{"Usage", "Install"})
	assert.Contains(t, issues, "empty_section: ## Usage")
	assert.Contains(t, issues, "missing_section: Install")
	assert.Contains(t, issues, "placeholder_text")
	assert.NotContains(t, issues, "empty_section: # T")

	issues = assessDocument("## List\n\n- a\n- b\n- c\n- d\n- e\nok\n", nil)
	assert.Contains(t, issues, "list_heavy")
}

func TestStatus_Inspect(t *testing.T) {
	t.Run("changes against baseline", func(t *testing.T) {
		layout := testLayout(t)
		require.NoError(t, os.MkdirAll(layout.StateDir, 0o755))
		require.NoError(t, os.WriteFile(layout.Baseline, []byte(baselineJSON), 0o644))

		s := &Status{
			Layout: layout,
			Parser: &fakeParser{out: layout.ParserOutput, data: candidateJSON},
			Log:    zerolog.Nop(),
		}
		rep, err := s.Inspect(context.Background())
		require.NoError(t, err)

		assert.True(t, rep.HasBaseline)
		assert.Equal(t, 1, rep.Stats.Added)
		assert.Equal(t, 1, rep.Stats.Total())
		require.Len(t, rep.Delta, 1)
		assert.Equal(t, `files[1]`, rep.Delta[0].Path.String())

		assert.JSONEq(t, baselineJSON, readFile(t, layout.Baseline))
		assert.NoFileExists(t, layout.Candidate)
		assert.NoFileExists(t, layout.Backup)
	})

	t.Run("no baseline", func(t *testing.T) {
		layout := testLayout(t)
		s := &Status{
			Layout: layout,
			Parser: &fakeParser{out: layout.ParserOutput, data: candidateJSON},
			Log:    zerolog.Nop(),
		}
		rep, err := s.Inspect(context.Background())
		require.NoError(t, err)
		assert.False(t, rep.HasBaseline)
		assert.Empty(t, rep.Delta)
		assert.NoFileExists(t, layout.Baseline)
	})

	t.Run("parser failure", func(t *testing.T) {
		layout := testLayout(t)
		require.NoError(t, os.MkdirAll(layout.StateDir, 0o755))
		require.NoError(t, os.WriteFile(layout.Baseline, []byte(baselineJSON), 0o644))

		s := &Status{
			Layout: layout,
			Parser: &fakeParser{err: errors.New("boom")},
			Log:    zerolog.Nop(),
		}
		_, err := s.Inspect(context.Background())
		require.Error(t, err)
		assert.JSONEq(t, baselineJSON, readFile(t, layout.Baseline))
	})

	t.Run("git failure is a warning", func(t *testing.T) {
		if _, err := exec.LookPath("git"); err != nil {
			t.Skip("git not installed")
		}
		layout := testLayout(t)
		// A repository without commits has no HEAD to diff against.
		require.NoError(t, exec.Command("git", "-C", layout.Root, "init", "-q").Run())

		var logs bytes.Buffer
		s := &Status{
			Layout: layout,
			Parser: &fakeParser{out: layout.ParserOutput, data: candidateJSON},
			Log:    zerolog.New(&logs),
		}
		rep, err := s.Inspect(context.Background())
		require.NoError(t, err)
		assert.Empty(t, rep.Changed)
		assert.Contains(t, logs.String(), "could not read git changes")
	})
}
