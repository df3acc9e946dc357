// Package config provides configuration management for arbor.
// It supports multi-layer configuration with precedence:
//  1. Built-in defaults (lowest priority)
//  2. Global user config (~/.config/arbor/config.toml)
//  3. Project config (.arbor/config.toml or arbor.toml)
//  4. Environment variables (ARBOR_*)
//  5. CLI flags (highest priority)
package config

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
)

// Config is the main configuration struct for arbor.
type Config struct {
	// Parser configures backend selection and parse limits.
	Parser ParserConfig `toml:"parser"`

	// Log configures verbosity and output format.
	Log LogConfig `toml:"log"`

	// Languages maps files to grammars.
	Languages LanguagesConfig `toml:"languages"`

	// Sources lists the files that were merged in, lowest precedence first.
	Sources []string `toml:"-"`
}

// ParserConfig holds parse settings shared by every command.
type ParserConfig struct {
	// Backend is "auto", "native" or "cgo".
	Backend string `toml:"backend"`

	// TimeoutMicros bounds each parse call. Zero means no limit.
	TimeoutMicros *uint64 `toml:"timeout_micros"`

	// ChunkSize, when positive, makes commands stream files through the
	// parser in chunks of this many bytes instead of reading them whole.
	ChunkSize *int `toml:"chunk_size"`

	// Jobs is how many files are parsed concurrently.
	Jobs int `toml:"jobs"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Verbosity is the -v level (0-4).
	Verbosity *int `toml:"verbosity"`

	// Format is "text" or "json".
	Format string `toml:"format"`
}

// LanguagesConfig specifies how files map to languages.
type LanguagesConfig struct {
	// Extensions maps a file extension (with dot) to a language name.
	// Entries are added to the built-in table.
	Extensions map[string]string `toml:"extensions"`

	// Disabled is the list of languages never to parse.
	Disabled []string `toml:"disabled"`
}

// NewConfig creates a new Config with built-in defaults.
func NewConfig() *Config {
	var timeout uint64
	chunk := 0
	verbosity := 1
	return &Config{
		Parser: ParserConfig{
			Backend:       "auto",
			TimeoutMicros: &timeout,
			ChunkSize:     &chunk,
			Jobs:          4,
		},
		Log: LogConfig{
			Verbosity: &verbosity,
			Format:    "text",
		},
		Languages: LanguagesConfig{
			Extensions: defaultExtensions(),
			Disabled:   []string{},
		},
	}
}

func defaultExtensions() map[string]string {
	return map[string]string{
		".scm":  "sexp",
		".sexp": "sexp",
		".lisp": "sexp",
		".el":   "sexp",
		".go":   "go",
		".java": "java",
		".kt":   "kotlin",
		".py":   "python",
		".rs":   "rust",
		".js":   "javascript",
		".ts":   "typescript",
		".c":    "c",
		".h":    "c",
		".cc":   "cpp",
		".cpp":  "cpp",
		".hpp":  "cpp",
		".sh":   "bash",
		".lua":  "lua",
		".rb":   "ruby",
		".yaml": "yaml",
		".yml":  "yaml",
		".toml": "toml",
		".hcl":  "hcl",
		".tf":   "hcl",
	}
}

// IsLanguageEnabled checks if a language is enabled in the configuration.
func (c *Config) IsLanguageEnabled(lang string) bool {
	return !slices.Contains(c.Languages.Disabled, lang)
}

// LanguageForPath returns the language configured for path's extension.
func (c *Config) LanguageForPath(path string) (string, bool) {
	lang, ok := c.Languages.Extensions[strings.ToLower(filepath.Ext(path))]
	if !ok || !c.IsLanguageEnabled(lang) {
		return "", false
	}
	return lang, true
}

// Timeout returns the parse timeout in microseconds.
func (c *Config) Timeout() uint64 {
	if c.Parser.TimeoutMicros == nil {
		return 0
	}
	return *c.Parser.TimeoutMicros
}

// ChunkSize returns the streaming chunk size, zero when streaming is off.
func (c *Config) ChunkSize() int {
	if c.Parser.ChunkSize == nil {
		return 0
	}
	return *c.Parser.ChunkSize
}

// Verbosity returns the configured -v level.
func (c *Config) Verbosity() int {
	if c.Log.Verbosity == nil {
		return 1
	}
	return *c.Log.Verbosity
}

// Validate reports settings that no command can honour.
func (c *Config) Validate() error {
	var errs []error
	switch c.Parser.Backend {
	case "", "auto", "native", "cgo":
	default:
		errs = append(errs, fmt.Errorf("parser.backend: unknown backend %q", c.Parser.Backend))
	}
	if c.ChunkSize() < 0 {
		errs = append(errs, fmt.Errorf("parser.chunk_size: must not be negative, got %d", c.ChunkSize()))
	}
	if c.Parser.Jobs < 0 {
		errs = append(errs, fmt.Errorf("parser.jobs: must not be negative, got %d", c.Parser.Jobs))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	for ext := range c.Languages.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("languages.extensions: %q must start with a dot", ext))
		}
	}
	return errors.Join(errs...)
}

// Merge merges another config into this one (other takes precedence).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Merge parser config
	if other.Parser.Backend != "" {
		c.Parser.Backend = other.Parser.Backend
	}
	if other.Parser.TimeoutMicros != nil {
		c.Parser.TimeoutMicros = other.Parser.TimeoutMicros
	}
	if other.Parser.ChunkSize != nil {
		c.Parser.ChunkSize = other.Parser.ChunkSize
	}
	if other.Parser.Jobs != 0 {
		c.Parser.Jobs = other.Parser.Jobs
	}

	// Merge log config
	if other.Log.Verbosity != nil {
		c.Log.Verbosity = other.Log.Verbosity
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}

	// Merge languages config
	if len(other.Languages.Extensions) > 0 {
		if c.Languages.Extensions == nil {
			c.Languages.Extensions = make(map[string]string, len(other.Languages.Extensions))
		}
		maps.Copy(c.Languages.Extensions, other.Languages.Extensions)
	}
	if len(other.Languages.Disabled) > 0 {
		c.Languages.Disabled = append(c.Languages.Disabled, other.Languages.Disabled...)
	}
}
