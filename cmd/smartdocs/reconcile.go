package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"smartdocs/internal/git"
	"smartdocs/internal/logging"
	"smartdocs/internal/reconcile"
	"smartdocs/internal/storage"
)

var (
	reconcileCmd = &cobra.Command{
		Use:   "reconcile [document]",
		Short: "Update a document from code changes, one section decision at a time",
		Long: `Parses the source tree, diffs it against the baseline snapshot, asks the
rewriter for an updated document and walks every section of it. Accepted
sections replace the current text; rejected ones keep it. The baseline is only
advanced when the document is written.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runReconcile,
	}
	recFlags decisionFlags
)

func init() {
	reconcileCmd.Flags().BoolVar(&recFlags.acceptAll, "accept-all", false, "Accept every proposed section")
	reconcileCmd.Flags().BoolVar(&recFlags.rejectAll, "reject-all", false, "Reject every proposed section")
	reconcileCmd.Flags().BoolVar(&recFlags.noTUI, "no-tui", false, "Use line prompts instead of the full-screen view")
	reconcileCmd.MarkFlagsMutuallyExclusive("accept-all", "reject-all")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	progress := progressTo(cmd)
	log := logging.Default()
	layout := cfg.Layout()

	rw, err := newRewriter(ctx, progress)
	if err != nil {
		return err
	}
	pres, chooser := newPresenter(cmd, recFlags)

	opts := reconcile.Options{
		Layout:            layout,
		Parser:            newParser(progress),
		Rewriter:          rw,
		Presenter:         pres,
		Chooser:           chooser,
		KeepPreamble:      cfg.Reconcile.KeepPreamble,
		KeepRejectedStubs: cfg.Reconcile.KeepRejectedStubs,
		FencedCode:        cfg.Reconcile.FencedCode,
		Logger:            *log,
		Progress:          progress,
		Commit: func(ctx context.Context) string {
			return git.HeadCommit(ctx, layout.Root)
		},
	}

	history, err := storage.NewSQLiteStore(layout.HistoryDB)
	if err != nil {
		log.Warn().Err(err).Msg("run history unavailable")
	} else {
		defer history.Close()
		opts.History = history
	}

	var doc string
	if len(args) > 0 {
		doc = args[0]
	}
	report, err := reconcile.New(opts).Reconcile(ctx, doc)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Documentation updated section by section: %s\n", report.Path)
	fmt.Fprintf(out, "  code changes: %d added, %d removed, %d edited\n",
		report.Delta.Added, report.Delta.Removed, report.Delta.Edited)
	fmt.Fprintf(out, "  sections: %d accepted, %d rejected, %d carried over\n",
		len(report.Accepted()), len(report.Rejected()), len(report.Carried))
	if report.Summary != "" {
		fmt.Fprintf(out, "  summary: %s\n", report.Summary)
	}
	return nil
}
