package presenter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"smartdocs/internal/reconcile"
)

// Prompt is a line-oriented Presenter and Chooser for plain terminals and
// pipes. End of input dismisses the current comparison.
type Prompt struct {
	in  io.Reader
	out io.Writer

	once  sync.Once
	lines chan string
}

// NewPrompt reads answers from in and writes comparisons to out.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: in, out: out}
}

// start feeds input lines to p.lines from a single goroutine so a blocked
// read never holds up cancellation.
func (p *Prompt) start() {
	p.once.Do(func() {
		p.lines = make(chan string)
		go func() {
			defer close(p.lines)
			sc := bufio.NewScanner(p.in)
			for sc.Scan() {
				p.lines <- sc.Text()
			}
		}()
	})
}

func (p *Prompt) readLine(ctx context.Context) (string, bool, error) {
	p.start()
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case line, ok := <-p.lines:
		return strings.TrimSpace(line), ok, nil
	}
}

func (p *Prompt) Present(ctx context.Context, cmp reconcile.Comparison) (reconcile.Decision, error) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, titleStyle.Render(header(cmp)))
	if cmp.OldPath != "" || cmp.NewPath != "" {
		fmt.Fprintln(p.out, mutedStyle.Render(fmt.Sprintf("compare: %s %s", cmp.OldPath, cmp.NewPath)))
	}
	fmt.Fprintln(p.out, body(cmp))

	for {
		fmt.Fprint(p.out, "Apply this section? [a]ccept / [r]eject / [s]kip / [q]uit: ")
		line, ok, err := p.readLine(ctx)
		if err != nil {
			fmt.Fprintln(p.out)
			return reconcile.Reject, err
		}
		if !ok {
			fmt.Fprintln(p.out)
			return reconcile.Reject, reconcile.ErrDismissed
		}
		switch strings.ToLower(line) {
		case "a", "accept", "y", "yes":
			return reconcile.Accept, nil
		case "r", "reject", "n", "no":
			return reconcile.Reject, nil
		case "s", "skip":
			return reconcile.Reject, reconcile.ErrDismissed
		case "q", "quit":
			return reconcile.Reject, reconcile.ErrAbandoned
		}
		fmt.Fprintf(p.out, "unrecognised answer %q\n", line)
	}
}

// Choose lists candidates and reads a number or a file name.
func (p *Prompt) Choose(ctx context.Context, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", reconcile.ErrAbandoned
	}
	fmt.Fprintln(p.out, titleStyle.Render("Several documents found:"))
	for i, c := range candidates {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, c)
	}
	for {
		fmt.Fprintf(p.out, "Document to update [1-%d]: ", len(candidates))
		line, ok, err := p.readLine(ctx)
		if err != nil {
			fmt.Fprintln(p.out)
			return "", err
		}
		if !ok {
			fmt.Fprintln(p.out)
			return "", reconcile.ErrAbandoned
		}
		if line == "q" || line == "quit" {
			return "", reconcile.ErrAbandoned
		}
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(candidates) {
			return candidates[n-1], nil
		}
		for _, c := range candidates {
			if c == line {
				return c, nil
			}
		}
		fmt.Fprintf(p.out, "unrecognised choice %q\n", line)
	}
}
