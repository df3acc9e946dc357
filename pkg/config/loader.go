package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	// ConfigFileName is the project config file at a directory's top level.
	ConfigFileName = "arbor.toml"

	// ConfigDirName holds config.toml; it wins over ConfigFileName in the
	// same directory.
	ConfigDirName = ".arbor"

	// GlobalConfigDir is arbor's directory inside os.UserConfigDir.
	GlobalConfigDir = "arbor"
)

// rootMarkers end the upward search for a project config.
var rootMarkers = []string{".git", ".hg", "go.mod"}

// Load is LoadFrom the working directory.
func Load() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return LoadFrom(wd)
}

// LoadFrom builds the configuration for a run in dir from, lowest
// precedence first: built-in defaults, the global config file, the nearest
// project config at or above dir, and ARBOR_* environment variables.
// CLI flags are applied by the caller.
//
// Missing files are skipped. A file that exists but does not decode is an
// error rather than being ignored.
func LoadFrom(dir string) (*Config, error) {
	cfg := NewConfig()
	for _, path := range []string{GlobalConfigPath(), FindProjectConfig(dir)} {
		if path == "" {
			continue
		}
		layer, err := LoadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		cfg.Merge(layer)
		cfg.Sources = append(cfg.Sources, path)
	}
	applyEnv(cfg, os.Getenv)
	return cfg, nil
}

// GlobalConfigPath returns ~/.config/arbor/config.toml or its platform
// equivalent, or "" when there is no user config directory.
func GlobalConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, GlobalConfigDir, "config.toml")
}

// ProjectConfigPaths returns the candidate project config files in dir, in
// order of preference.
func ProjectConfigPaths(dir string) []string {
	return []string{
		filepath.Join(dir, ConfigDirName, "config.toml"),
		filepath.Join(dir, ConfigFileName),
	}
}

// FindProjectConfig walks up from dir and returns the first project config
// file it finds. The walk stops after a repository root (see rootMarkers)
// or the filesystem root; "" means there is none.
func FindProjectConfig(dir string) string {
	current := dir
	for {
		for _, path := range ProjectConfigPaths(current) {
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				return path
			}
		}
		parent := filepath.Dir(current)
		if isWorkspaceRoot(current) || parent == current {
			return ""
		}
		current = parent
	}
}

func isWorkspaceRoot(dir string) bool {
	for _, marker := range rootMarkers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// LoadFile decodes one TOML file. Unknown keys are an error so that typos
// in settings do not pass silently.
func LoadFile(path string) (*Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	return &cfg, nil
}

// applyEnv applies ARBOR_* variables read through getenv. Numbers that do
// not parse are ignored.
func applyEnv(cfg *Config, getenv func(string) string) {
	lookup := func(key string) (string, bool) {
		v := strings.TrimSpace(getenv(key))
		return v, v != ""
	}

	// ARBOR_TREESITTER_BACKEND is shared with the treesitter package;
	// ARBOR_PARSER_BACKEND wins when both are set.
	for _, key := range []string{"ARBOR_TREESITTER_BACKEND", "ARBOR_PARSER_BACKEND"} {
		if v, ok := lookup(key); ok {
			cfg.Parser.Backend = strings.ToLower(v)
		}
	}
	if v, ok := lookup("ARBOR_PARSER_TIMEOUT_MICROS"); ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Parser.TimeoutMicros = &n
		}
	}
	if v, ok := lookup("ARBOR_PARSER_CHUNK_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Parser.ChunkSize = &n
		}
	}
	if v, ok := lookup("ARBOR_PARSER_JOBS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Parser.Jobs = n
		}
	}
	if v, ok := lookup("ARBOR_LOG_VERBOSITY"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Log.Verbosity = &n
		}
	}
	if v, ok := lookup("ARBOR_LOG_FORMAT"); ok {
		cfg.Log.Format = v
	}
	if v, ok := lookup("ARBOR_LANGUAGES_DISABLED"); ok {
		cfg.Languages.Disabled = splitList(v)
	}
}

// splitList splits a comma-separated list, dropping empty items.
func splitList(s string) []string {
	var items []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
