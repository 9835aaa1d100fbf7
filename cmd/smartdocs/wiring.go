package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"smartdocs/internal/llm"
	"smartdocs/internal/logging"
	"smartdocs/internal/parser"
	"smartdocs/internal/presenter"
	"smartdocs/internal/reconcile"
	"smartdocs/internal/rewrite"
	"smartdocs/internal/runner"
)

// progressTo returns the operator output channel for cmd.
func progressTo(cmd *cobra.Command) func(string) {
	out := cmd.OutOrStdout()
	return func(line string) { fmt.Fprintln(out, line) }
}

func forwardTo(progress func(string)) runner.LineFunc {
	return func(_ runner.Stream, line string) { progress(line) }
}

func newParser(progress func(string)) parser.Parser {
	layout := cfg.Layout()
	if len(cfg.Parser.Command) > 0 {
		return &parser.Process{
			Argv:    cfg.Parser.Command,
			Output:  layout.ParserOutput,
			Timeout: cfg.Parser.Timeout,
			OnLine:  forwardTo(progress),
		}
	}
	return &parser.Builtin{
		Output:   layout.ParserOutput,
		Language: "go",
		Log:      *logging.Default(),
	}
}

func newLLM(ctx context.Context) (llm.Generator, error) {
	g, err := llm.New(ctx, llm.Options{
		Provider: cfg.AI.Provider,
		APIKey:   cfg.AI.APIKey,
		Model:    cfg.AI.Model,
		BaseURL:  cfg.AI.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.AI.Provider, err)
	}
	return g, nil
}

func newRewriter(ctx context.Context, progress func(string)) (rewrite.Rewriter, error) {
	if len(cfg.Rewriter.Command) > 0 {
		return &rewrite.Process{
			Argv:    cfg.Rewriter.Command,
			Timeout: cfg.Rewriter.Timeout,
			OnLine:  forwardTo(progress),
		}, nil
	}
	g, err := newLLM(ctx)
	if err != nil {
		return nil, err
	}
	return &rewrite.LLM{
		Generator: g,
		Prompts:   &llm.PromptBuilder{},
		Log:       *logging.Default(),
		Progress:  progress,
	}, nil
}

type decisionFlags struct {
	acceptAll bool
	rejectAll bool
	noTUI     bool
}

// newPresenter picks how sections are put to the operator.
func newPresenter(cmd *cobra.Command, f decisionFlags) (reconcile.Presenter, reconcile.Chooser) {
	in, out := cmd.InOrStdin(), cmd.OutOrStdout()
	prompt := presenter.NewPrompt(in, out)

	switch {
	case f.acceptAll:
		return &presenter.Scripted{Default: reconcile.Accept}, prompt
	case f.rejectAll:
		return &presenter.Scripted{Default: reconcile.Reject}, prompt
	}

	mode := cfg.Reconcile.Presenter
	if f.noTUI {
		mode = "prompt"
	}
	if mode == "tui" || (mode == "auto" && isTTY(in) && isTTY(out)) {
		tui := presenter.NewTUI(in, out)
		return tui, tui
	}
	return prompt, prompt
}

// isTTY reports whether v is an interactive terminal.
func isTTY(v any) bool {
	file, ok := v.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
