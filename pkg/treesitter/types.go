// Package treesitter puts parsing backends behind one interface. The native
// backend runs the pure-Go engine in package syntax; the CGO backend wraps
// smacker/go-tree-sitter and its grammar collection.
//
// Both backends honour the same parse contract: an optional old tree for
// incremental reparsing, streaming input, a timeout in microseconds, a
// shared cancellation flag, and Reset to drop a halted parse.
//
// # Quick Start
//
//	backend, err := treesitter.NewBackendFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	parser, err := backend.NewParser(treesitter.SExp)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer parser.Close()
//
//	tree, err := parser.ParseString(context.Background(), "(add 1 2)")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tree.Close()
//
//	fmt.Println(tree.RootNode().Type()) // Output: source_file
//
// # Backend Selection
//
// The backend can be selected via environment variable:
//
//	export ARBOR_TREESITTER_BACKEND=native # Pure-Go engine
//	export ARBOR_TREESITTER_BACKEND=cgo    # smacker/go-tree-sitter
//	export ARBOR_TREESITTER_BACKEND=auto   # Native where it has a grammar, CGO otherwise
//
// # Thread Safety
//
// Backends are safe for concurrent use. Parsers must not be used from
// several goroutines at once; create one parser per goroutine instead.
// Trees and Nodes are safe to read concurrently as long as nobody edits the
// tree. Cursors belong to a single goroutine.
package treesitter

import (
	"context"

	"github.com/albertocavalcante/arbor/pkg/syntax"
)

// Language names a grammar that a backend may be able to parse.
type Language string

// Languages known to at least one backend. SExp is the only one the native
// backend ships a grammar for; the rest come from the CGO grammar packages.
const (
	SExp       Language = "sexp"
	Go         Language = "go"
	Java       Language = "java"
	Kotlin     Language = "kotlin"
	Python     Language = "python"
	Rust       Language = "rust"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	C          Language = "c"
	Cpp        Language = "cpp"
	Bash       Language = "bash"
	Lua        Language = "lua"
	Ruby       Language = "ruby"
	YAML       Language = "yaml"
	TOML       Language = "toml"
	HCL        Language = "hcl"
)

// AllLanguages returns every Language constant.
func AllLanguages() []Language {
	return []Language{
		SExp, Go, Java, Kotlin, Python, Rust, JavaScript, TypeScript,
		C, Cpp, Bash, Lua, Ruby, YAML, TOML, HCL,
	}
}

// Point is a (row, column) position; both are 0-indexed and columns count bytes.
type Point = syntax.Point

// InputEdit describes a change to the text a tree was parsed from.
type InputEdit = syntax.InputEdit

// Backend creates parsers for the languages it supports.
type Backend interface {
	// Name is "native", "cgo" or "auto".
	Name() string
	IsExperimental() bool
	SupportedLanguages() []Language
	SupportsLanguage(lang Language) bool

	// NewParser fails with ErrLanguageNotSupported for a language the
	// backend has no grammar for.
	NewParser(lang Language) (Parser, error)

	// Close makes later NewParser calls fail with ErrBackendClosed.
	Close() error
}

// Parser parses source code into a concrete syntax tree.
//
// A halted parse (timeout, cancellation flag, or ctx) returns an error that
// wraps syntax.ErrTimeout, syntax.ErrCancelled or the context error.
type Parser interface {
	Language() Language

	// SetTimeoutMicros bounds each parse call; zero means no limit.
	SetTimeoutMicros(timeout uint64)
	TimeoutMicros() uint64

	// SetCancellationFlag makes the parser poll flag; nil restores the
	// parser's own flag.
	SetCancellationFlag(flag *syntax.CancellationFlag)
	CancellationFlag() *syntax.CancellationFlag

	// Parse parses source. A non-nil oldTree must come from the same
	// backend and must have been edited to match source.
	Parse(ctx context.Context, source []byte, oldTree Tree) (Tree, error)

	// ParseString parses source with no old tree.
	ParseString(ctx context.Context, source string) (Tree, error)

	// ParseInput parses text read from input.
	ParseInput(ctx context.Context, input syntax.Input, oldTree Tree) (Tree, error)

	// Reset discards the state of a halted parse.
	Reset()

	Close() error
}

// Tree represents a parsed syntax tree.
type Tree interface {
	RootNode() Node

	// Source returns the text that was parsed, or nil for trees built from
	// streaming input.
	Source() []byte

	// HasError reports whether any node is an error or missing node.
	HasError() bool

	// Edit records a change to the text so the tree can be passed to a
	// later parse as the old tree.
	Edit(edit InputEdit)

	// Walk returns a cursor positioned at the root node.
	Walk() TreeCursor

	Close() error
}

// Node represents a node in the syntax tree.
type Node interface {
	// Type is the grammar symbol name, e.g. "list".
	Type() string

	StartByte() uint32
	EndByte() uint32
	StartPoint() Point
	EndPoint() Point

	// Content slices source by the node's byte range.
	Content(source []byte) string

	// ChildCount counts anonymous children too. Child and NamedChild return
	// nil past the end.
	ChildCount() uint32
	Child(index uint32) Node
	NamedChildCount() uint32
	NamedChild(index uint32) Node

	IsNamed() bool
	IsError() bool
	IsMissing() bool
	IsNull() bool

	// String renders the subtree as an S-expression of named nodes.
	String() string
}

// TreeCursor walks a syntax tree without materializing every node.
type TreeCursor interface {
	// Reset makes node the cursor's new root. Nodes from another backend
	// are ignored.
	Reset(node Node)
	CurrentNode() Node

	// The Goto methods report whether the cursor moved; a failed move
	// leaves it where it was.
	GotoParent() bool
	GotoFirstChild() bool
	GotoNextSibling() bool

	// Depth returns how many levels below its root the cursor is.
	Depth() int

	Close()
}

// ErrLanguageNotSupported is returned by NewParser for a language the
// backend cannot parse.
type ErrLanguageNotSupported struct {
	Language Language
	Backend  string
}

func (e ErrLanguageNotSupported) Error() string {
	return "language " + string(e.Language) + " is not supported by backend " + e.Backend
}

// ErrBackendClosed is returned by NewParser after Close.
type ErrBackendClosed struct {
	Backend string
}

func (e ErrBackendClosed) Error() string {
	return "backend " + e.Backend + " has been closed"
}

// ErrParserClosed is returned by the parse methods after Close.
type ErrParserClosed struct{}

func (e ErrParserClosed) Error() string {
	return "parser has been closed"
}

// ErrForeignTree is returned when an old tree from another backend is passed
// to a parser.
type ErrForeignTree struct {
	Backend string
}

func (e ErrForeignTree) Error() string {
	return "old tree was not produced by backend " + e.Backend
}

// Children returns every child of n, anonymous ones included.
func Children(n Node) []Node {
	if n == nil || n.IsNull() {
		return nil
	}
	children := make([]Node, 0, n.ChildCount())
	for i := range n.ChildCount() {
		if child := n.Child(i); child != nil {
			children = append(children, child)
		}
	}
	return children
}

// Walk visits n and its descendants in depth-first order using a cursor.
// The visitor returns false to skip the children of a node. Walk stops early
// if the visitor returns false for the root.
func Walk(t Tree, visitor func(n Node, depth int) bool) {
	c := t.Walk()
	defer c.Close()
	for {
		if visitor(c.CurrentNode(), c.Depth()) && c.GotoFirstChild() {
			continue
		}
		for !c.GotoNextSibling() {
			if !c.GotoParent() {
				return
			}
		}
	}
}

// FindByType returns all nodes of the given type in document order.
func FindByType(t Tree, nodeType string) []Node {
	var found []Node
	Walk(t, func(n Node, _ int) bool {
		if n.Type() == nodeType {
			found = append(found, n)
		}
		return true
	})
	return found
}

// HasErrors walks the tree and reports whether any error or missing nodes
// are present. Prefer Tree.HasError, which does not walk.
func HasErrors(t Tree) bool {
	found := false
	Walk(t, func(n Node, _ int) bool {
		if n.IsError() || n.IsMissing() {
			found = true
		}
		return !found
	})
	return found
}
