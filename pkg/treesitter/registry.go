package treesitter

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
)

// BackendType identifies a specific tree-sitter backend implementation.
type BackendType string

const (
	// BackendAuto combines every available backend. Parsers come from the
	// native backend when it has the grammar and from CGO otherwise.
	BackendAuto BackendType = "auto"

	// BackendNative uses the pure-Go engine in package syntax.
	BackendNative BackendType = "native"

	// BackendCGO uses the CGO-based backend (smacker/go-tree-sitter).
	BackendCGO BackendType = "cgo"
)

// EnvVarBackend is the environment variable used to select the backend.
const EnvVarBackend = "ARBOR_TREESITTER_BACKEND"

// cgoLanguages is what the CGO backend can parse when it is compiled in.
var cgoLanguages = []Language{
	Go, Java, Kotlin, Python, Rust, JavaScript, TypeScript,
	C, Cpp, Bash, Lua, Ruby, YAML, TOML, HCL,
}

// ParseBackendType converts a user supplied name into a BackendType.
// The empty string selects BackendAuto.
func ParseBackendType(s string) (BackendType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return BackendAuto, nil
	}
	typ := BackendType(s)
	switch typ {
	case BackendAuto, BackendNative, BackendCGO:
		return typ, nil
	default:
		return "", fmt.Errorf("invalid backend %q: must be one of auto, native, cgo", s)
	}
}

// NewBackend creates a backend of the specified type.
func NewBackend(typ BackendType) (Backend, error) {
	return NewBackendWithLogger(typ, nil)
}

// NewBackendWithLogger is like NewBackend but sends native parse events to
// logger.
func NewBackendWithLogger(typ BackendType, logger *slog.Logger) (Backend, error) {
	switch typ {
	case BackendNative:
		return NewNativeBackend(logger)
	case BackendCGO:
		return NewCGOBackend()
	case BackendAuto:
		native, err := NewNativeBackend(logger)
		if err != nil {
			return nil, err
		}
		backends := []Backend{native}
		if b, err := NewCGOBackend(); err == nil {
			backends = append(backends, b)
		}
		return &autoBackend{backends: backends}, nil
	default:
		return nil, fmt.Errorf("unknown backend type: %s", typ)
	}
}

// NewBackendFromEnv creates a backend based on the ARBOR_TREESITTER_BACKEND
// environment variable. If the variable is not set or empty, it defaults to
// BackendAuto.
//
// Valid values are:
//   - "auto" (default): native grammars first, CGO for the rest
//   - "native": Use the pure-Go backend
//   - "cgo": Use the CGO backend
func NewBackendFromEnv() (Backend, error) {
	typ, err := ParseBackendType(os.Getenv(EnvVarBackend))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EnvVarBackend, err)
	}
	return NewBackend(typ)
}

// MustNewBackend is like NewBackend but panics on error.
func MustNewBackend(typ BackendType) Backend {
	b, err := NewBackend(typ)
	if err != nil {
		panic(fmt.Sprintf("failed to create tree-sitter backend %s: %v", typ, err))
	}
	return b
}

// AvailableBackends returns a list of backend types that can be created
// successfully in the current environment.
func AvailableBackends() []BackendType {
	available := []BackendType{BackendNative}

	if b, err := NewCGOBackend(); err == nil {
		_ = b.Close()
		available = append(available, BackendCGO)
	}

	return available
}

// BackendInfo provides information about a backend type.
type BackendInfo struct {
	// Type is the backend type identifier.
	Type BackendType

	// Name is the human-readable name.
	Name string

	// Description provides details about the backend.
	Description string

	// IsExperimental indicates if the backend is production-ready.
	IsExperimental bool

	// SupportedLanguages lists languages the backend can parse.
	SupportedLanguages []Language
}

// GetBackendInfo returns information about a backend type without creating it.
func GetBackendInfo(typ BackendType) BackendInfo {
	switch typ {
	case BackendNative:
		return BackendInfo{
			Type:               BackendNative,
			Name:               "Native",
			Description:        "Pure-Go incremental parser with resumable timeouts and streaming input",
			SupportedLanguages: []Language{SExp},
		}
	case BackendCGO:
		return BackendInfo{
			Type:               BackendCGO,
			Name:               "CGO",
			Description:        "Backend using smacker/go-tree-sitter with CGO bindings",
			SupportedLanguages: slices.Clone(cgoLanguages),
		}
	case BackendAuto:
		return BackendInfo{
			Type:               BackendAuto,
			Name:               "Auto",
			Description:        "Native grammars first, CGO grammars when CGO is available",
			SupportedLanguages: append([]Language{SExp}, cgoLanguages...),
		}
	default:
		return BackendInfo{
			Type:        typ,
			Name:        string(typ),
			Description: "Unknown backend type",
		}
	}
}

// autoBackend hands each language to the first backend that supports it.
type autoBackend struct {
	backends []Backend
}

func (b *autoBackend) Name() string {
	return string(BackendAuto)
}

func (b *autoBackend) IsExperimental() bool {
	return false
}

func (b *autoBackend) SupportedLanguages() []Language {
	var langs []Language
	for _, backend := range b.backends {
		for _, lang := range backend.SupportedLanguages() {
			if !slices.Contains(langs, lang) {
				langs = append(langs, lang)
			}
		}
	}
	slices.Sort(langs)
	return langs
}

func (b *autoBackend) SupportsLanguage(lang Language) bool {
	return b.backendFor(lang) != nil
}

func (b *autoBackend) NewParser(lang Language) (Parser, error) {
	backend := b.backendFor(lang)
	if backend == nil {
		return nil, ErrLanguageNotSupported{Language: lang, Backend: b.Name()}
	}
	return backend.NewParser(lang)
}

func (b *autoBackend) backendFor(lang Language) Backend {
	for _, backend := range b.backends {
		if backend.SupportsLanguage(lang) {
			return backend
		}
	}
	return nil
}

func (b *autoBackend) Close() error {
	var errs []error
	for _, backend := range b.backends {
		errs = append(errs, backend.Close())
	}
	return errors.Join(errs...)
}
