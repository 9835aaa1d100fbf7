// Package parser produces the candidate structural snapshot of a source tree,
// either by running a configured external command or with the built-in
// tree-sitter extractor.
package parser

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"smartdocs/internal/crawler"
	"smartdocs/internal/extractor"
	"smartdocs/internal/runner"
	"smartdocs/internal/snapshot"
)

// Parser turns a source tree into a snapshot file and returns its path.
type Parser interface {
	Parse(ctx context.Context, root string) (string, error)
}

// Process runs an external parser. The source root is appended to Argv and
// the process is expected to write its snapshot to Output.
type Process struct {
	Argv    []string
	Output  string
	Dir     string
	Timeout time.Duration
	OnLine  runner.LineFunc
}

func (p *Process) Parse(ctx context.Context, root string) (string, error) {
	cmd, err := runner.FromArgv(p.Argv, root)
	if err != nil {
		return "", fmt.Errorf("parser command: %w", err)
	}
	cmd.Dir = p.Dir

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	if _, err := runner.Run(ctx, cmd, p.OnLine); err != nil {
		return "", err
	}
	if _, err := os.Stat(p.Output); err != nil {
		return "", fmt.Errorf("parser produced no snapshot at %s: %w", p.Output, err)
	}
	return p.Output, nil
}

// Builtin extracts Go declarations in-process and writes the snapshot to
// Output as {"files": [...]} sorted by path.
type Builtin struct {
	Output   string
	Language string
	Ignore   []string
	Log      zerolog.Logger
}

// Document is the snapshot layout written by Builtin.
type Document struct {
	Files []*extractor.File `json:"files"`
}

func (b *Builtin) Parse(ctx context.Context, root string) (string, error) {
	if b.Output == "" {
		return "", errors.New("builtin parser: no output path")
	}
	lang := b.Language
	if lang == "" {
		lang = "go"
	}
	ext, err := extractor.NewExtractor(lang)
	if err != nil {
		return "", err
	}
	c := crawler.NewCrawler(ext, b.Log)
	c.Ignore(b.Ignore...)

	doc := Document{Files: []*extractor.File{}}
	err = c.ScanProject(ctx, root, func(f *extractor.File) error {
		doc.Files = append(doc.Files, f)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan %s: %w", root, err)
	}
	slices.SortFunc(doc.Files, func(a, b *extractor.File) int { return cmp.Compare(a.Path, b.Path) })

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := snapshot.WriteFile(b.Output, append(data, '\n')); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	b.Log.Debug().Int("files", len(doc.Files)).Str("output", b.Output).Msg("snapshot written")
	return b.Output, nil
}
