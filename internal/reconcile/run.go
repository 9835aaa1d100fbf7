package reconcile

import (
	"time"

	"smartdocs/internal/differ"
	"smartdocs/internal/markdown"
	"smartdocs/internal/rewrite"
	"smartdocs/internal/snapshot"
)

// run is the state of one reconciliation. It is created by Reconcile, handed
// from stage to stage and dropped when the run ends.
type run struct {
	state     State
	startedAt time.Time

	document string // name relative to the docs dir
	docPath  string
	oldDoc   []byte

	backup   *snapshot.BackupHandle
	promoted bool

	delta   differ.Delta
	rewrite *rewrite.Result

	oldSections *markdown.Sections
	newSections *markdown.Sections
	decisions   []SectionDecision
	final       *markdown.Sections

	// transient files removed when the run ends
	artifacts []string
}

func (r *run) track(paths ...string) {
	r.artifacts = append(r.artifacts, paths...)
}

// Report describes a completed run.
type Report struct {
	Document  string
	Path      string
	Summary   string
	Delta     differ.Stats
	Decisions []SectionDecision
	// Carried lists sections only in the previous document, kept unchanged.
	Carried []string
	// Sections lists the headings of the written document in order.
	Sections []string
}

// Accepted returns the keys of accepted sections in walk order.
func (r *Report) Accepted() []string { return r.keys(Accept) }

// Rejected returns the keys of rejected sections in walk order.
func (r *Report) Rejected() []string { return r.keys(Reject) }

func (r *Report) keys(d Decision) []string {
	var out []string
	for _, sd := range r.Decisions {
		if sd.Decision == d {
			out = append(out, sd.Key)
		}
	}
	return out
}
