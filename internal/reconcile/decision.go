package reconcile

import (
	"context"
	"errors"
)

// Decision is the operator's answer for one section.
type Decision int

const (
	Reject Decision = iota
	Accept
)

func (d Decision) String() string {
	if d == Accept {
		return "accept"
	}
	return "reject"
}

var (
	// ErrDismissed is returned by a Presenter whose prompt was closed
	// without an answer. The section is rejected.
	ErrDismissed = errors.New("decision dismissed")

	// ErrAbandoned is returned by a Presenter or Chooser when the operator
	// abandons the whole run.
	ErrAbandoned = errors.New("decision walk abandoned")
)

// Comparison is one section put to the operator.
type Comparison struct {
	Key     string // heading marker and title, e.g. "## Usage"
	Index   int    // zero-based position in the walk
	Total   int
	OldBody string // empty when the section is new
	NewBody string
	IsNew   bool

	// Files holding each side as a standalone document, for external diff
	// tools. Empty when they could not be written.
	OldPath string
	NewPath string
}

// Unchanged reports whether both sides are identical.
func (c Comparison) Unchanged() bool { return c.OldBody == c.NewBody && !c.IsNew }

// Presenter shows a comparison and returns exactly one decision. It blocks
// until the operator answers; ErrDismissed rejects the section and
// ErrAbandoned or context cancellation cancels the run.
type Presenter interface {
	Present(ctx context.Context, cmp Comparison) (Decision, error)
}

// Chooser picks one document among several candidates.
type Chooser interface {
	Choose(ctx context.Context, candidates []string) (string, error)
}

// SectionDecision is a recorded decision.
type SectionDecision struct {
	Key      string
	Decision Decision
	New      bool
}
