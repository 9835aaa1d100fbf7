// Package presenter implements the interactive side of a reconciliation:
// showing one section comparison at a time and collecting the operator's
// decision.
package presenter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pmezard/go-difflib/difflib"

	"smartdocs/internal/reconcile"
)

var (
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6")).Bold(true)
)

// UnifiedDiff returns a unified diff of the two sides of cmp, or "" when they
// are identical.
func UnifiedDiff(cmp reconcile.Comparison) string {
	from := "current"
	if cmp.IsNew {
		from = "(none)"
	}
	d := difflib.UnifiedDiff{
		A:        splitLines(cmp.OldBody),
		B:        splitLines(cmp.NewBody),
		FromFile: from,
		ToFile:   "proposed",
		Context:  3,
	}
	out, err := difflib.GetUnifiedDiffString(d)
	if err != nil {
		return ""
	}
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return difflib.SplitLines(s)
}

// colorize styles each diff line by its prefix.
func colorize(diff string) string {
	lines := strings.Split(strings.TrimRight(diff, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = mutedStyle.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = hunkStyle.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = addedStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = removedStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

// header is the one-line title of a comparison.
func header(cmp reconcile.Comparison) string {
	tag := ""
	switch {
	case cmp.IsNew:
		tag = " (new section)"
	case cmp.Unchanged():
		tag = " (unchanged)"
	}
	return fmt.Sprintf("[%d/%d] %s%s", cmp.Index+1, cmp.Total, cmp.Key, tag)
}

// body is the diff shown for a comparison, or a note when there is none.
func body(cmp reconcile.Comparison) string {
	diff := UnifiedDiff(cmp)
	if diff == "" {
		return mutedStyle.Render("No textual changes.")
	}
	return colorize(diff)
}
