package extractor

import sitter "github.com/smacker/go-tree-sitter"

// File is the structural summary of one source file. It carries signatures
// and doc comments but no line numbers or bodies, so moving code around does
// not show up as a structural change.
type File struct {
	File      string     `json:"file"`
	Path      string     `json:"path"`
	Language  string     `json:"language"`
	Package   string     `json:"package"`
	Imports   []string   `json:"imports"`
	Functions []Function `json:"functions"`
	Types     []Type     `json:"types"`
	Constants []Value    `json:"constants"`
	Variables []Value    `json:"variables"`
}

// Function is a function or method declaration.
type Function struct {
	Name       string   `json:"name"`
	Receiver   string   `json:"receiver,omitempty"`
	Signature  string   `json:"signature"`
	Parameters []Param  `json:"parameters"`
	Returns    []Return `json:"returns"`
	Doc        string   `json:"doc,omitempty"`
}

// Type is a named type declaration.
type Type struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"` // struct, interface, type
	Fields  []Field  `json:"fields,omitempty"`
	Methods []string `json:"methods,omitempty"`
	Doc     string   `json:"doc,omitempty"`
}

// Value is a constant or variable.
type Value struct {
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"`
	Value string `json:"value,omitempty"`
	Doc   string `json:"doc,omitempty"`
}

type Param struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
}

type Return struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
}

type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Tag  string `json:"tag,omitempty"`
}

// LanguageExtractor defines the interface that each language parser must implement.
type LanguageExtractor interface {
	GetLanguage() *sitter.Language
	GetQuery() string
	Extension() string
	Collect(captureName string, node *sitter.Node, sourceCode []byte, file *File)
}
