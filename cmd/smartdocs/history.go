package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"smartdocs/internal/storage"
)

var (
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List past reconciliation runs",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	historyLimit     int
	historyDecisions bool
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyDecisions, "decisions", false, "Also list section decisions of each run")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	store, err := storage.NewSQLiteStore(cfg.Layout().HistoryDB)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No reconciliation runs recorded.")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Started", "Document", "Commit", "Outcome", "Changes", "Accepted", "Error"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	decisions := make(map[int64][]storage.DecisionRecord, len(runs))
	for _, r := range runs {
		ds, err := store.Decisions(ctx, r.ID)
		if err != nil {
			return err
		}
		decisions[r.ID] = ds
	}

	for _, r := range runs {
		accepted := 0
		for _, d := range decisions[r.ID] {
			if d.Decision == "accept" {
				accepted++
			}
		}
		table.Append([]string{
			strconv.FormatInt(r.ID, 10),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Document,
			r.Commit,
			r.Outcome,
			fmt.Sprintf("+%d -%d ~%d", r.Added, r.Removed, r.Edited),
			fmt.Sprintf("%d/%d", accepted, len(decisions[r.ID])),
			r.Error,
		})
	}
	table.Render()

	if !historyDecisions {
		return nil
	}
	for _, r := range runs {
		if len(decisions[r.ID]) == 0 {
			continue
		}
		fmt.Fprintf(out, "\nRun %d (%s):\n", r.ID, r.Document)
		for _, d := range decisions[r.ID] {
			tag := ""
			if d.New {
				tag = " (new)"
			}
			fmt.Fprintf(out, "  %-6s %s%s\n", d.Decision, d.Heading, tag)
		}
	}
	return nil
}
