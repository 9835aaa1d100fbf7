package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"smartdocs/internal/llm"
	"smartdocs/internal/logging"
	"smartdocs/internal/pipeline"
)

var (
	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Generate a document from scratch and record the baseline snapshot",
		Args:  cobra.NoArgs,
		RunE:  runGenerate,
	}
	genType      string
	genSections  []string
	genOverwrite bool
	genReview    bool
	genNoTUI     bool
)

func init() {
	generateCmd.Flags().StringVarP(&genType, "type", "t", "", "Documentation type, e.g. \"API Reference\"")
	generateCmd.Flags().StringSliceVarP(&genSections, "section", "s", nil, "Section to include (repeatable)")
	generateCmd.Flags().BoolVar(&genOverwrite, "overwrite", false, "Replace an existing generate.json")
	generateCmd.Flags().BoolVar(&genReview, "review", false, "Review each generated section before saving")
	generateCmd.Flags().BoolVar(&genNoTUI, "no-tui", false, "Use line prompts instead of the full-screen review")
	_ = generateCmd.MarkFlagRequired("type")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	progress := progressTo(cmd)
	log := logging.Default()

	g := &pipeline.Generator{
		Layout:   cfg.Layout(),
		Parser:   newParser(progress),
		Command:  cfg.Generator.Command,
		Timeout:  cfg.Generator.Timeout,
		Prompts:  &llm.PromptBuilder{},
		Log:      *log,
		Progress: progress,
	}
	if len(g.Command) == 0 {
		gen, err := newLLM(ctx)
		if err != nil {
			return err
		}
		g.LLM = gen
	}
	if genReview {
		g.Presenter, _ = newPresenter(cmd, decisionFlags{noTUI: genNoTUI})
	}

	res, err := g.Generate(ctx, pipeline.GenerateRequest{
		DocType:   genType,
		Sections:  genSections,
		Overwrite: genOverwrite,
		Review:    genReview,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Generated %s with %d sections: %s\n", res.Path, len(res.Sections), strings.Join(res.Sections, ", "))
	for _, issue := range res.Issues {
		fmt.Fprintf(out, "  warning: %s\n", issue)
	}
	if res.Review != nil {
		fmt.Fprintf(out, "Review: %d kept, %d reduced to headings\n", len(res.Review.Accepted), len(res.Review.Rejected))
	}
	return nil
}
