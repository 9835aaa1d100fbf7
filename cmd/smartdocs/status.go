package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"smartdocs/internal/logging"
	"smartdocs/internal/pipeline"
)

var (
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show how the source tree differs from the baseline snapshot",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
	statusLimit int
)

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 20, "Maximum number of changes to list (0 for all)")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	progress := progressTo(cmd)
	s := &pipeline.Status{
		Layout: cfg.Layout(),
		Parser: newParser(progress),
		Log:    *logging.Default(),
	}
	rep, err := s.Inspect(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if rep.Commit != "" {
		fmt.Fprintf(out, "Commit: %s\n", rep.Commit)
	}
	if !rep.HasBaseline {
		fmt.Fprintln(out, "No baseline snapshot. Run `smartdocs generate` first.")
		return nil
	}
	if rep.Stats.Total() == 0 {
		fmt.Fprintln(out, "Documentation baseline is up to date.")
	} else {
		fmt.Fprintf(out, "Code changes since baseline: %d added, %d removed, %d edited\n\n",
			rep.Stats.Added, rep.Stats.Removed, rep.Stats.Edited)

		table := tablewriter.NewWriter(out)
		table.SetHeader([]string{"Change", "Path"})
		table.SetBorder(false)
		table.SetCenterSeparator("")
		table.SetAutoWrapText(false)
		for i, c := range rep.Delta {
			if statusLimit > 0 && i == statusLimit {
				table.SetFooter([]string{"", "... " + strconv.Itoa(len(rep.Delta)-statusLimit) + " more"})
				break
			}
			table.Append([]string{string(c.Kind), c.Path.String()})
		}
		table.Render()
	}

	if len(rep.Changed) > 0 {
		fmt.Fprintf(out, "\nUncommitted source changes:\n")
		table := tablewriter.NewWriter(out)
		table.SetHeader([]string{"File", "Changed lines"})
		table.SetBorder(false)
		table.SetCenterSeparator("")
		for _, f := range rep.Changed {
			table.Append([]string{f.Path, strconv.Itoa(len(f.ChangedLines))})
		}
		table.Render()
	}
	return nil
}
