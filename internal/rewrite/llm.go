package rewrite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"smartdocs/internal/llm"
	"smartdocs/internal/params"
)

// LLM rewrites documents in-process with a text generator.
type LLM struct {
	Generator llm.Generator
	Prompts   *llm.PromptBuilder
	Log       zerolog.Logger
	// Progress receives operator-facing lines, like a process's output.
	Progress func(line string)
}

func (r *LLM) progress(format string, args ...any) {
	if r.Progress != nil {
		r.Progress(fmt.Sprintf(format, args...))
	}
}

func (r *LLM) Rewrite(ctx context.Context, req Request) (*Result, error) {
	delta, err := os.ReadFile(req.DeltaPath)
	if err != nil {
		return nil, fmt.Errorf("read delta: %w", err)
	}
	p, err := params.Load(req.ParamsPath)
	if err != nil {
		return nil, fmt.Errorf("read generation parameters: %w", err)
	}
	oldDoc, err := os.ReadFile(req.OldDocPath)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if strings.TrimSpace(string(oldDoc)) == "" {
		return nil, fmt.Errorf("document %s is empty", req.OldDocPath)
	}

	pb := r.Prompts
	if pb == nil {
		pb = &llm.PromptBuilder{}
	}

	r.progress("Sending update prompt to AI...")
	reply, err := r.Generator.Generate(ctx, pb.BuildUpdatePrompt(string(oldDoc), string(delta), p.DocumentationType, p.Sections))
	if err != nil {
		return nil, fmt.Errorf("generate updated document: %w", err)
	}
	newDoc := llm.ExtractMarkdown(reply)
	if newDoc == "" {
		return nil, ErrNoOutput
	}

	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(req.OutputPath, []byte(newDoc+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("write updated document: %w", err)
	}
	r.progress("Generated updated documentation at %s", req.OutputPath)

	res := &Result{OutputPath: req.OutputPath}
	summary, err := r.Generator.Generate(ctx, pb.BuildSummaryPrompt(string(oldDoc), newDoc))
	if err != nil {
		r.Log.Warn().Err(err).Msg("could not summarise document changes")
		return res, nil
	}
	res.Summary = strings.TrimSpace(summary)
	return res, nil
}
