package crawler

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"smartdocs/internal/extractor"
)

// Crawler scans a directory for source files.
type Crawler struct {
	extractor *extractor.Extractor
	ignored   []string
	log       zerolog.Logger
}

// NewCrawler creates a new crawler instance.
func NewCrawler(ext *extractor.Extractor, log zerolog.Logger) *Crawler {
	return &Crawler{
		extractor: ext,
		ignored:   []string{".git", ".smartdocs", "vendor", "node_modules", "testdata"},
		log:       log,
	}
}

// Ignore adds directory names that are skipped during the walk.
func (c *Crawler) Ignore(names ...string) {
	c.ignored = append(c.ignored, names...)
}

// ScanProject walks root in lexical order and streams one summary per source
// file. Paths handed to onFile are slash-separated and relative to root.
// Files that fail to parse are logged and skipped.
func (c *Crawler) ScanProject(ctx context.Context, root string, onFile func(*extractor.File) error) error {
	ext := c.extractor.Extension()
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			for _, ign := range c.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			if strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_") {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), ext) || strings.HasSuffix(d.Name(), "_test"+ext) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		file, err := c.extractor.ExtractFromFile(ctx, path, rel)
		if err != nil {
			c.log.Warn().Err(err).Str("file", rel).Msg("skipping unparsable file")
			return nil
		}
		return onFile(file)
	})
}
