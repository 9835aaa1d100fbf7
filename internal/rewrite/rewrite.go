// Package rewrite hands a structural delta and generation parameters to a
// rewriter and collects the regenerated document.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"smartdocs/internal/runner"
)

// Summary markers delimiting the optional change summary in rewriter output.
const (
	SummaryStart = "===SUMMARY_START==="
	SummaryEnd   = "===SUMMARY_END==="
)

// Request references every input by path.
type Request struct {
	DeltaPath  string
	ParamsPath string
	OldDocPath string
	OutputPath string
}

// Result is a successful rewrite.
type Result struct {
	OutputPath string
	Summary    string
}

// Rewriter produces a regenerated document at Request.OutputPath.
type Rewriter interface {
	Rewrite(ctx context.Context, req Request) (*Result, error)
}

// ErrNoOutput is returned when the rewriter did not leave a usable document.
var ErrNoOutput = errors.New("rewriter produced no output document")

// Process runs an external rewriter with the four request paths appended to
// Argv in the order delta, params, old document, output.
type Process struct {
	Argv    []string
	Dir     string
	Timeout time.Duration
	OnLine  runner.LineFunc
}

func (p *Process) Rewrite(ctx context.Context, req Request) (*Result, error) {
	cmd, err := runner.FromArgv(p.Argv, req.DeltaPath, req.ParamsPath, req.OldDocPath, req.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("rewriter command: %w", err)
	}
	cmd.Dir = p.Dir

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	// A leftover output from an earlier run must not pass for this one.
	if err := os.Remove(req.OutputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("clear previous output: %w", err)
	}

	stdout, err := runner.Run(ctx, cmd, p.OnLine)
	if err != nil {
		return nil, err
	}
	if err := CheckOutput(req.OutputPath); err != nil {
		return nil, err
	}
	return &Result{OutputPath: req.OutputPath, Summary: ExtractSummary(stdout)}, nil
}

// CheckOutput verifies that path exists and holds valid UTF-8 text.
func CheckOutput(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoOutput, err)
	}
	if !utf8.Valid(data) {
		return fmt.Errorf("%w: %s is not valid UTF-8", ErrNoOutput, path)
	}
	return nil
}

// ExtractSummary returns the trimmed text between the summary markers, or ""
// when they are absent or unbalanced.
func ExtractSummary(output string) string {
	start := strings.Index(output, SummaryStart)
	if start == -1 {
		return ""
	}
	rest := output[start+len(SummaryStart):]
	end := strings.Index(rest, SummaryEnd)
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}
