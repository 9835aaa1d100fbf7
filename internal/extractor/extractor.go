package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	sitter "github.com/smacker/go-tree-sitter"
)

// Extractor orchestrates the extraction process using language-specific extractors.
type Extractor struct {
	langExtractor LanguageExtractor
	langName      string
}

// NewExtractor creates a new extractor for a given language.
func NewExtractor(lang string) (*Extractor, error) {
	var langExt LanguageExtractor
	switch lang {
	case "go":
		langExt = &GoExtractor{}
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
	return &Extractor{langExtractor: langExt, langName: lang}, nil
}

// Language returns the language name this extractor handles.
func (e *Extractor) Language() string { return e.langName }

// Extension returns the file extension this extractor handles.
func (e *Extractor) Extension() string { return e.langExtractor.Extension() }

// ExtractFromFile parses a single source file and summarises its declarations.
// relPath is recorded as the file's path in the snapshot.
func (e *Extractor) ExtractFromFile(ctx context.Context, path, relPath string) (*File, error) {
	sourceCode, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return e.Extract(ctx, sourceCode, relPath)
}

// Extract summarises the declarations in sourceCode.
func (e *Extractor) Extract(ctx context.Context, sourceCode []byte, relPath string) (*File, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(e.langExtractor.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, sourceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", relPath, err)
	}
	defer tree.Close()

	file := &File{
		File:      filepath.Base(relPath),
		Path:      filepath.ToSlash(relPath),
		Language:  e.langName,
		Imports:   []string{},
		Functions: []Function{},
		Types:     []Type{},
		Constants: []Value{},
		Variables: []Value{},
	}

	query, err := sitter.NewQuery([]byte(e.langExtractor.GetQuery()), e.langExtractor.GetLanguage())
	if err != nil {
		return nil, fmt.Errorf("failed to create query: %w", err)
	}
	defer query.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, tree.RootNode())

	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			e.langExtractor.Collect(query.CaptureNameForId(c.Index), c.Node, sourceCode, file)
		}
	}

	return file, nil
}
