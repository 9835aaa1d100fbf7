package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when no --config flag is given.
const DefaultPath = "smartdocs.yaml"

type Config struct {
	Project struct {
		Root    string `yaml:"root"`     // source tree handed to the parser
		DocsDir string `yaml:"docs_dir"` // document tree root (generate.json, *.md)
	} `yaml:"project"`
	State struct {
		Dir string `yaml:"dir"` // baseline snapshot, delta artifact, backups
	} `yaml:"state"`
	Parser struct {
		Command []string      `yaml:"command"` // empty: built-in tree-sitter parser
		Output  string        `yaml:"output"`  // where the external parser writes its snapshot
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"parser"`
	Rewriter struct {
		Command []string      `yaml:"command"` // empty: built-in LLM rewriter
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"rewriter"`
	Generator struct {
		Command []string      `yaml:"command"` // empty: built-in LLM generator
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"generator"`
	AI struct {
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"`
		APIKey   string `yaml:"api_key"`
		BaseURL  string `yaml:"base_url"`
	} `yaml:"ai"`
	Reconcile struct {
		KeepPreamble      bool   `yaml:"keep_preamble"`
		KeepRejectedStubs bool   `yaml:"keep_rejected_stubs"`
		FencedCode        bool   `yaml:"fenced_code"` // headings inside code fences stay body text
		Presenter         string `yaml:"presenter"`   // auto, tui, prompt
	} `yaml:"reconcile"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Layout is the persisted state layout derived from a Config.
type Layout struct {
	Root         string
	DocsDir      string
	StateDir     string
	Baseline     string
	Candidate    string
	Backup       string
	Delta        string
	ParserOutput string
	Params       string
	CompareDir   string
	LockFile     string
	HistoryDB    string
}

// Default returns a Config with every field set to its default.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// LoadConfig reads path (if it exists), then .env, then environment overrides.
// A missing config file is not an error.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	if apiKey := os.Getenv("SMARTDOCS_API_KEY"); apiKey != "" {
		cfg.AI.APIKey = apiKey
	}
	if provider := os.Getenv("SMARTDOCS_AI_PROVIDER"); provider != "" {
		cfg.AI.Provider = provider
	}
	if model := os.Getenv("SMARTDOCS_AI_MODEL"); model != "" {
		cfg.AI.Model = model
	}
	if cfg.AI.APIKey == "" {
		switch cfg.AI.Provider {
		case "openai":
			cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
		case "", "gemini":
			cfg.AI.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Project.Root == "" {
		cfg.Project.Root = "."
	}
	if cfg.Project.DocsDir == "" {
		cfg.Project.DocsDir = cfg.Project.Root
	}
	if cfg.State.Dir == "" {
		cfg.State.Dir = filepath.Join(cfg.Project.Root, ".smartdocs")
	}
	if cfg.Parser.Timeout <= 0 {
		cfg.Parser.Timeout = 5 * time.Minute
	}
	if cfg.Rewriter.Timeout <= 0 {
		cfg.Rewriter.Timeout = 10 * time.Minute
	}
	if cfg.Generator.Timeout <= 0 {
		cfg.Generator.Timeout = 10 * time.Minute
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "gemini"
	}
	if cfg.AI.Model == "" {
		switch cfg.AI.Provider {
		case "openai":
			cfg.AI.Model = "gpt-4o-mini"
		default:
			cfg.AI.Model = "gemini-2.5-flash"
		}
	}
	if cfg.Reconcile.Presenter == "" {
		cfg.Reconcile.Presenter = "auto"
	}
}

// Layout resolves every persisted path.
func (c *Config) Layout() Layout {
	state := c.State.Dir
	l := Layout{
		Root:       c.Project.Root,
		DocsDir:    c.Project.DocsDir,
		StateDir:   state,
		Baseline:   filepath.Join(state, "parsed_code.json"),
		Candidate:  filepath.Join(state, "new_parsed_code.json"),
		Backup:     filepath.Join(state, "parsed_code.backup.json"),
		Delta:      filepath.Join(state, "diff.json"),
		Params:     filepath.Join(c.Project.DocsDir, "generate.json"),
		CompareDir: filepath.Join(state, "compare"),
		LockFile:   filepath.Join(state, "reconcile.lock"),
		HistoryDB:  filepath.Join(state, "history.db"),
	}
	l.ParserOutput = c.Parser.Output
	if l.ParserOutput == "" {
		l.ParserOutput = l.Baseline
	}
	return l
}
