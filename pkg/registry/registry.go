// Package registry maps language names to the grammars the native engine
// can load. Grammars compiled into arbor register here, and other packages
// can add their own with RegisterGrammar before creating a backend.
package registry

import (
	"maps"
	"slices"
	"sync"

	"github.com/albertocavalcante/arbor/pkg/grammars/sexp"
	"github.com/albertocavalcante/arbor/pkg/syntax"
)

// GrammarFactory returns the parse tables for one language.
type GrammarFactory func() *syntax.Language

var (
	mu sync.RWMutex

	// factories maps language names to their factory functions.
	factories = map[string]GrammarFactory{
		"sexp": sexp.Language,
	}
)

// Lookup returns the factory registered for name.
func Lookup(name string) (GrammarFactory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	factory, ok := factories[name]
	return factory, ok
}

// LoadGrammar builds the grammar registered for name and checks its tables.
func LoadGrammar(name string) (*syntax.Language, error) {
	factory, ok := Lookup(name)
	if !ok {
		return nil, &UnknownGrammarError{Name: name}
	}
	lang := factory()
	if err := lang.Validate(); err != nil {
		return nil, err
	}
	return lang, nil
}

// AvailableGrammars returns the registered language names, sorted.
func AvailableGrammars() []string {
	mu.RLock()
	defer mu.RUnlock()
	return slices.Sorted(maps.Keys(factories))
}

// IsGrammarAvailable checks if a grammar is registered for name.
func IsGrammarAvailable(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// RegisterGrammar registers a grammar factory, replacing any previous
// factory for the same name.
func RegisterGrammar(name string, factory GrammarFactory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// UnknownGrammarError is returned by LoadGrammar for unregistered names.
type UnknownGrammarError struct {
	Name string
}

func (e *UnknownGrammarError) Error() string {
	return "no grammar registered for " + e.Name
}
