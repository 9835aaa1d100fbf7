package rewrite

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartdocs/internal/llm"
	"smartdocs/internal/params"
	"smartdocs/internal/runner"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExtractSummary(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"present", "progress\n===SUMMARY_START===\n Updated the Usage section. \n===SUMMARY_END===\n", "Updated the Usage section."},
		{"absent", "just progress\n", ""},
		{"no end marker", "===SUMMARY_START===\ndangling", ""},
		{"first pair wins", "===SUMMARY_START===a===SUMMARY_END======SUMMARY_START===b===SUMMARY_END===", "a"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractSummary(tc.in))
		})
	}
}

func workspace(t *testing.T) Request {
	t.Helper()
	dir := t.TempDir()
	req := Request{
		DeltaPath:  filepath.Join(dir, "diff.json"),
		ParamsPath: filepath.Join(dir, params.FileName),
		OldDocPath: filepath.Join(dir, "Guide.md"),
		OutputPath: filepath.Join(dir, ".Guide_new.md"),
	}
	require.NoError(t, os.WriteFile(req.DeltaPath, []byte(`[{"kind":"added","path":["files",0]}]`), 0o644))
	require.NoError(t, params.Save(req.ParamsPath, &params.Params{DocumentationType: "Guide", Sections: []string{"Usage"}}))
	require.NoError(t, os.WriteFile(req.OldDocPath, []byte("# Guide\n\n## Usage\n\nv1\n"), 0o644))
	return req
}

func TestProcess_Rewrite(t *testing.T) {
	requireShell(t)
	req := workspace(t)

	script := `cp "$3" "$4"; echo "## FAQ" >> "$4"; echo working; echo ===SUMMARY_START===; echo "Added FAQ."; echo ===SUMMARY_END===`
	var lines []string
	p := &Process{
		Argv:   []string{"sh", "-c", script, "rewriter"},
		OnLine: func(_ runner.Stream, l string) { lines = append(lines, l) },
	}

	res, err := p.Rewrite(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, req.OutputPath, res.OutputPath)
	assert.Equal(t, "Added FAQ.", res.Summary)
	assert.Contains(t, lines, "working")

	out, err := os.ReadFile(req.OutputPath)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(out), "## FAQ\n"))
}

func TestProcess_Failures(t *testing.T) {
	requireShell(t)

	t.Run("non-zero exit", func(t *testing.T) {
		req := workspace(t)
		_, err := (&Process{Argv: []string{"sh", "-c", `cp "$3" "$4"; exit 1`, "rw"}}).Rewrite(context.Background(), req)
		var exitErr *runner.ExitError
		assert.True(t, errors.As(err, &exitErr))
	})

	t.Run("no output", func(t *testing.T) {
		req := workspace(t)
		_, err := (&Process{Argv: []string{"sh", "-c", "true"}}).Rewrite(context.Background(), req)
		assert.ErrorIs(t, err, ErrNoOutput)
	})

	t.Run("stale output is not reused", func(t *testing.T) {
		req := workspace(t)
		require.NoError(t, os.WriteFile(req.OutputPath, []byte("# stale\n"), 0o644))
		_, err := (&Process{Argv: []string{"sh", "-c", "true"}}).Rewrite(context.Background(), req)
		assert.ErrorIs(t, err, ErrNoOutput)
	})

	t.Run("invalid utf-8", func(t *testing.T) {
		req := workspace(t)
		_, err := (&Process{Argv: []string{"sh", "-c", `printf '\377\376' > "$4"`, "rw"}}).Rewrite(context.Background(), req)
		assert.ErrorIs(t, err, ErrNoOutput)
	})
}

func TestLLM_Rewrite(t *testing.T) {
	req := workspace(t)

	var prompts []string
	gen := llm.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		if len(prompts) == 1 {
			return "```markdown\n# Guide\n\n## Usage\n\nv2\n```\n\n```json\n[\"Usage\"]\n```", nil
		}
		return " Updated the Usage section. ", nil
	})

	var progress []string
	r := &LLM{Generator: gen, Log: zerolog.Nop(), Progress: func(l string) { progress = append(progress, l) }}
	res, err := r.Rewrite(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Updated the Usage section.", res.Summary)

	out, err := os.ReadFile(req.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "# Guide\n\n## Usage\n\nv2\n", string(out))

	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[0], `"kind":"added"`)
	assert.Contains(t, prompts[0], "## Usage\n\nv1")
	assert.NotEmpty(t, progress)
}

func TestLLM_SummaryFailureIsNotFatal(t *testing.T) {
	req := workspace(t)
	calls := 0
	gen := llm.GeneratorFunc(func(context.Context, string) (string, error) {
		calls++
		if calls == 1 {
			return "# Guide\n\n## Usage\n\nv2", nil
		}
		return "", errors.New("rate limited")
	})

	res, err := (&LLM{Generator: gen, Log: zerolog.Nop()}).Rewrite(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, res.Summary)
}

func TestLLM_GenerationFailure(t *testing.T) {
	req := workspace(t)
	gen := llm.GeneratorFunc(func(context.Context, string) (string, error) {
		return "", llm.ErrEmptyResponse
	})

	_, err := (&LLM{Generator: gen, Log: zerolog.Nop()}).Rewrite(context.Background(), req)
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
	_, statErr := os.Stat(req.OutputPath)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}
