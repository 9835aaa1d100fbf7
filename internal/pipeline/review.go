package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"smartdocs/internal/markdown"
	"smartdocs/internal/reconcile"
	"smartdocs/internal/snapshot"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// ReviewResult lists the section keys kept and cut by a review.
type ReviewResult struct {
	Accepted []string
	Rejected []string
}

// Review puts every section of a freshly generated document to p. Accepted
// sections are kept whole, rejected ones keep only their heading line. JSON
// fenced blocks are removed before the document is saved. An abandoned or
// cancelled review leaves the file untouched.
func Review(ctx context.Context, docPath string, p reconcile.Presenter) (*ReviewResult, error) {
	data, err := os.ReadFile(docPath)
	if err != nil {
		return nil, err
	}
	sections := markdown.Segment(string(data))
	reviewed := sections.Clone()
	keys := sections.Keys()

	res := &ReviewResult{}
	for i, key := range keys {
		body, _ := sections.Get(key)
		d, err := p.Present(ctx, reconcile.Comparison{
			Key:     key,
			Index:   i,
			Total:   len(keys),
			NewBody: body,
			IsNew:   true,
		})
		if err != nil {
			if errors.Is(err, reconcile.ErrAbandoned) || ctx.Err() != nil {
				return nil, fmt.Errorf("review of %s stopped: %w", docPath, err)
			}
			d = reconcile.Reject
		}
		if d == reconcile.Accept {
			res.Accepted = append(res.Accepted, key)
			continue
		}
		res.Rejected = append(res.Rejected, key)
		reviewed.Set(key, "")
	}

	text := markdown.StripFencedBlocks(reviewed.Render(true), "json")
	text = strings.TrimSpace(blankRuns.ReplaceAllString(text, "\n\n")) + "\n"
	if err := snapshot.WriteFile(docPath, []byte(text)); err != nil {
		return nil, fmt.Errorf("write reviewed document: %w", err)
	}
	return res, nil
}
