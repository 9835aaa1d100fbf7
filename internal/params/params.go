// Package params reads and writes generate.json, the record of which
// document type and sections were requested for a document tree.
package params

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// FileName is the parameters file kept at the document-tree root.
const FileName = "generate.json"

//go:embed generate.schema.json
var schemaText string

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString(FileName+".schema.json", schemaText)
})

type Params struct {
	DocumentationType string   `json:"documentationType"`
	Sections          []string `json:"sections"`
}

var whitespace = regexp.MustCompile(`\s+`)

// DocumentName is the markdown file generated for this document type.
func (p *Params) DocumentName() string {
	return whitespace.ReplaceAllString(strings.TrimSpace(p.DocumentationType), "_") + ".md"
}

// Validate checks p against the embedded schema.
func (p *Params) Validate() error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return validateRaw(raw)
}

func validateRaw(raw []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile %s schema: %w", FileName, err)
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("invalid %s: %w", FileName, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%s schema validation failed: %w", FileName, err)
	}
	return nil
}

// Load reads and validates the parameters file at path.
func Load(path string) (*Params, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := validateRaw(raw); err != nil {
		return nil, err
	}
	var p Params
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	if p.Sections == nil {
		p.Sections = []string{}
	}
	return &p, nil
}

// Save validates p and writes it to path.
func Save(path string, p *Params) error {
	if p.Sections == nil {
		p.Sections = []string{}
	}
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
