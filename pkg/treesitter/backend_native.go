package treesitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/albertocavalcante/arbor/pkg/registry"
	"github.com/albertocavalcante/arbor/pkg/syntax"
)

// nativeBackend implements Backend with the pure-Go engine in package syntax.
type nativeBackend struct {
	mu     sync.RWMutex
	closed bool
	logger *slog.Logger
}

// NewNativeBackend creates a backend that needs no CGO. It parses every
// language with a grammar in package registry.
// Parse events are logged to logger at debug level; nil discards them.
func NewNativeBackend(logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &nativeBackend{logger: logger}, nil
}

func (b *nativeBackend) Name() string {
	return "native"
}

func (b *nativeBackend) IsExperimental() bool {
	return false
}

func (b *nativeBackend) SupportedLanguages() []Language {
	names := registry.AvailableGrammars()
	langs := make([]Language, len(names))
	for i, name := range names {
		langs[i] = Language(name)
	}
	return langs
}

func (b *nativeBackend) SupportsLanguage(lang Language) bool {
	return registry.IsGrammarAvailable(string(lang))
}

func (b *nativeBackend) NewParser(lang Language) (Parser, error) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()

	if closed {
		return nil, ErrBackendClosed{Backend: b.Name()}
	}

	grammar, err := registry.LoadGrammar(string(lang))
	if err != nil {
		var unknown *registry.UnknownGrammarError
		if errors.As(err, &unknown) {
			return nil, ErrLanguageNotSupported{Language: lang, Backend: b.Name()}
		}
		return nil, fmt.Errorf("load %s grammar: %w", lang, err)
	}

	parser := syntax.NewParser()
	if err := parser.SetLanguage(grammar); err != nil {
		return nil, fmt.Errorf("load %s grammar: %w", lang, err)
	}
	parser.SetLogger(b.logger.With("language", string(lang)))

	return &nativeParser{
		parser: parser,
		lang:   lang,
	}, nil
}

func (b *nativeBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// nativeParser implements Parser using the native backend.
type nativeParser struct {
	mu     sync.Mutex
	parser *syntax.Parser
	lang   Language
	closed bool
}

func (p *nativeParser) Language() Language {
	return p.lang
}

func (p *nativeParser) SetTimeoutMicros(timeout uint64) {
	p.parser.SetTimeoutMicros(timeout)
}

func (p *nativeParser) TimeoutMicros() uint64 {
	return p.parser.TimeoutMicros()
}

func (p *nativeParser) SetCancellationFlag(flag *syntax.CancellationFlag) {
	p.parser.SetCancellationFlag(flag)
}

func (p *nativeParser) CancellationFlag() *syntax.CancellationFlag {
	return p.parser.CancellationFlag()
}

// PrintDotGraphs forwards to syntax.Parser.PrintDotGraphs.
func (p *nativeParser) PrintDotGraphs(w io.Writer) {
	p.parser.PrintDotGraphs(w)
}

// Stats returns the counters of the most recent parse.
func (p *nativeParser) Stats() syntax.Stats {
	return p.parser.Stats()
}

func (p *nativeParser) Parse(ctx context.Context, source []byte, oldTree Tree) (Tree, error) {
	return p.parse(oldTree, source, func(old *syntax.Tree) (*syntax.Tree, error) {
		return p.parser.ParseCtx(ctx, source, old)
	})
}

func (p *nativeParser) ParseString(ctx context.Context, source string) (Tree, error) {
	return p.Parse(ctx, []byte(source), nil)
}

func (p *nativeParser) ParseInput(ctx context.Context, input syntax.Input, oldTree Tree) (Tree, error) {
	return p.parse(oldTree, nil, func(old *syntax.Tree) (*syntax.Tree, error) {
		return p.parser.ParseInputCtx(ctx, input, old)
	})
}

func (p *nativeParser) parse(oldTree Tree, source []byte, run func(*syntax.Tree) (*syntax.Tree, error)) (Tree, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrParserClosed{}
	}

	var old *syntax.Tree
	if oldTree != nil {
		nt, ok := oldTree.(*nativeTree)
		if !ok {
			return nil, ErrForeignTree{Backend: "native"}
		}
		old = nt.tree
	}

	tree, err := run(old)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return &nativeTree{tree: tree, source: source}, nil
}

func (p *nativeParser) Reset() {
	p.parser.Reset()
}

func (p *nativeParser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// nativeTree implements Tree using the native backend.
type nativeTree struct {
	tree   *syntax.Tree
	source []byte
}

func (t *nativeTree) RootNode() Node {
	return &nativeNode{node: t.tree.RootNode()}
}

func (t *nativeTree) Source() []byte {
	return t.source
}

func (t *nativeTree) HasError() bool {
	return t.tree.HasError()
}

func (t *nativeTree) Edit(edit InputEdit) {
	t.tree.Edit(edit)
}

func (t *nativeTree) Walk() TreeCursor {
	return &nativeTreeCursor{cursor: t.tree.Walk()}
}

// PrintDotGraph writes the tree as a DOT graph.
func (t *nativeTree) PrintDotGraph(w io.Writer) error {
	return t.tree.PrintDotGraph(w)
}

// Fingerprint returns a structural hash of the tree.
func (t *nativeTree) Fingerprint() uint64 {
	return t.tree.Fingerprint()
}

func (t *nativeTree) Close() error {
	return nil
}

// nativeNode implements Node using the native backend.
type nativeNode struct {
	node syntax.Node
}

func (n *nativeNode) Type() string {
	if n.node.IsNull() {
		return ""
	}
	return n.node.Type()
}

func (n *nativeNode) StartByte() uint32 {
	if n.node.IsNull() {
		return 0
	}
	return n.node.StartByte()
}

func (n *nativeNode) EndByte() uint32 {
	if n.node.IsNull() {
		return 0
	}
	return n.node.EndByte()
}

func (n *nativeNode) StartPoint() Point {
	if n.node.IsNull() {
		return Point{}
	}
	return n.node.StartPoint()
}

func (n *nativeNode) EndPoint() Point {
	if n.node.IsNull() {
		return Point{}
	}
	return n.node.EndPoint()
}

func (n *nativeNode) Content(source []byte) string {
	if n.node.IsNull() {
		return ""
	}
	return n.node.Content(source)
}

func (n *nativeNode) ChildCount() uint32 {
	if n.node.IsNull() {
		return 0
	}
	return n.node.ChildCount()
}

func (n *nativeNode) Child(index uint32) Node {
	if n.node.IsNull() {
		return nil
	}
	child := n.node.Child(int(index))
	if child.IsNull() {
		return nil
	}
	return &nativeNode{node: child}
}

func (n *nativeNode) NamedChildCount() uint32 {
	if n.node.IsNull() {
		return 0
	}
	return n.node.NamedChildCount()
}

func (n *nativeNode) NamedChild(index uint32) Node {
	if n.node.IsNull() {
		return nil
	}
	child := n.node.NamedChild(int(index))
	if child.IsNull() {
		return nil
	}
	return &nativeNode{node: child}
}

func (n *nativeNode) IsNamed() bool   { return !n.node.IsNull() && n.node.IsNamed() }
func (n *nativeNode) IsError() bool   { return !n.node.IsNull() && n.node.IsError() }
func (n *nativeNode) IsMissing() bool { return !n.node.IsNull() && n.node.IsMissing() }
func (n *nativeNode) IsNull() bool    { return n.node.IsNull() }

func (n *nativeNode) String() string {
	if n.node.IsNull() {
		return "(null)"
	}
	return n.node.String()
}

// nativeTreeCursor implements TreeCursor using the native backend.
type nativeTreeCursor struct {
	cursor *syntax.TreeCursor
}

func (c *nativeTreeCursor) Reset(node Node) {
	nn, ok := node.(*nativeNode)
	if !ok {
		return
	}
	c.cursor.Reset(nn.node)
}

func (c *nativeTreeCursor) CurrentNode() Node {
	return &nativeNode{node: c.cursor.CurrentNode()}
}

func (c *nativeTreeCursor) GotoParent() bool      { return c.cursor.GotoParent() }
func (c *nativeTreeCursor) GotoFirstChild() bool  { return c.cursor.GotoFirstChild() }
func (c *nativeTreeCursor) GotoNextSibling() bool { return c.cursor.GotoNextSibling() }
func (c *nativeTreeCursor) Depth() int            { return c.cursor.Depth() }
func (c *nativeTreeCursor) Close()                {}
