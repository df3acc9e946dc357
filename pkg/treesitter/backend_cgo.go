//go:build cgo

package treesitter

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/albertocavalcante/arbor/pkg/syntax"

	// Language grammars
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/hcl"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/lua"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/toml"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"
)

// flagPollInterval is how often a CGO parse checks its cancellation flag.
// The C parse loop cannot call back into Go, so a helper goroutine polls.
const flagPollInterval = time.Millisecond

var cgoGrammars = map[Language]func() *sitter.Language{
	Go:         golang.GetLanguage,
	Java:       java.GetLanguage,
	Kotlin:     kotlin.GetLanguage,
	Python:     python.GetLanguage,
	Rust:       rust.GetLanguage,
	JavaScript: javascript.GetLanguage,
	TypeScript: typescript.GetLanguage,
	C:          c.GetLanguage,
	Cpp:        cpp.GetLanguage,
	Bash:       bash.GetLanguage,
	Lua:        lua.GetLanguage,
	Ruby:       ruby.GetLanguage,
	YAML:       yaml.GetLanguage,
	TOML:       toml.GetLanguage,
	HCL:        hcl.GetLanguage,
}

// cgoBackend implements Backend using the CGO-based smacker/go-tree-sitter library.
type cgoBackend struct {
	mu     sync.RWMutex
	closed bool
}

// NewCGOBackend creates a new CGO-based tree-sitter backend.
// This backend uses smacker/go-tree-sitter which requires CGO.
func NewCGOBackend() (Backend, error) {
	return &cgoBackend{}, nil
}

func (b *cgoBackend) Name() string {
	return "cgo"
}

func (b *cgoBackend) IsExperimental() bool {
	return false
}

func (b *cgoBackend) SupportedLanguages() []Language {
	langs := make([]Language, 0, len(cgoGrammars))
	for lang := range cgoGrammars {
		langs = append(langs, lang)
	}
	slices.Sort(langs)
	return langs
}

func (b *cgoBackend) SupportsLanguage(lang Language) bool {
	_, ok := cgoGrammars[lang]
	return ok
}

func (b *cgoBackend) NewParser(lang Language) (Parser, error) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()

	if closed {
		return nil, ErrBackendClosed{Backend: b.Name()}
	}

	grammar, ok := cgoGrammars[lang]
	if !ok {
		return nil, ErrLanguageNotSupported{Language: lang, Backend: b.Name()}
	}

	parser := sitter.NewParser()
	parser.SetLanguage(grammar())

	flag := &syntax.CancellationFlag{}
	return &cgoParser{
		parser:    parser,
		lang:      lang,
		flag:      flag,
		ownFlag:   flag,
		timeoutUS: 0,
	}, nil
}

func (b *cgoBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// cgoParser implements Parser using the CGO backend.
type cgoParser struct {
	mu        sync.Mutex
	parser    *sitter.Parser
	lang      Language
	closed    bool
	flag      *syntax.CancellationFlag
	ownFlag   *syntax.CancellationFlag
	timeoutUS uint64
}

func (p *cgoParser) Language() Language {
	return p.lang
}

func (p *cgoParser) SetTimeoutMicros(timeout uint64) {
	p.timeoutUS = timeout
}

func (p *cgoParser) TimeoutMicros() uint64 {
	return p.timeoutUS
}

func (p *cgoParser) SetCancellationFlag(flag *syntax.CancellationFlag) {
	if flag == nil {
		flag = p.ownFlag
	}
	p.flag = flag
}

func (p *cgoParser) CancellationFlag() *syntax.CancellationFlag {
	return p.flag
}

func (p *cgoParser) Parse(ctx context.Context, source []byte, oldTree Tree) (Tree, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrParserClosed{}
	}
	old, err := p.oldSitterTree(oldTree)
	if err != nil {
		return nil, err
	}

	ctx, cancel := p.bound(ctx)
	defer cancel(nil)

	tree, err := p.parser.ParseCtx(ctx, old, source)
	if cause := context.Cause(ctx); cause != nil {
		return nil, fmt.Errorf("parse error: %w", cause)
	}
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if tree == nil {
		return nil, fmt.Errorf("parse error: no tree for %d bytes of %s", len(source), p.lang)
	}

	return &cgoTree{
		tree:   tree,
		source: source,
	}, nil
}

func (p *cgoParser) ParseString(ctx context.Context, source string) (Tree, error) {
	return p.Parse(ctx, []byte(source), nil)
}

// ParseInput streams input into the C parser. The flag, the timeout and ctx
// are checked before every read; once one of them halts the parse, reads
// report end of input and the truncated tree is dropped. The C parser also
// enforces the timeout between reads.
func (p *cgoParser) ParseInput(ctx context.Context, input syntax.Input, oldTree Tree) (Tree, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrParserClosed{}
	}
	old, err := p.oldSitterTree(oldTree)
	if err != nil {
		return nil, err
	}

	var deadline time.Time
	if p.timeoutUS > 0 {
		deadline = time.Now().Add(time.Duration(p.timeoutUS) * time.Microsecond)
		p.parser.SetOperationLimit(int(p.timeoutUS))
		defer p.parser.SetOperationLimit(0)
	}

	var halt error
	read := func(offset uint32, pos sitter.Point) []byte {
		if halt == nil {
			halt = p.halted(ctx, deadline)
		}
		if halt != nil {
			return nil
		}
		return input.Read(offset, syntax.Point{Row: pos.Row, Column: pos.Column})
	}

	tree, err := p.parser.ParseInputCtx(ctx, old, sitter.Input{
		Read:     read,
		Encoding: sitter.InputEncodingUTF8,
	})
	switch {
	case halt != nil:
		return nil, fmt.Errorf("parse error: %w", halt)
	case errors.Is(err, sitter.ErrOperationLimit):
		return nil, fmt.Errorf("parse error: %w", syntax.ErrTimeout)
	case err != nil:
		return nil, fmt.Errorf("parse error: %w", err)
	case tree == nil:
		return nil, fmt.Errorf("parse error: no tree for %s input", p.lang)
	}
	return &cgoTree{tree: tree}, nil
}

// halted reports why a streaming parse must stop, or nil.
func (p *cgoParser) halted(ctx context.Context, deadline time.Time) error {
	switch {
	case p.flag.IsSet():
		return syntax.ErrCancelled
	case !deadline.IsZero() && time.Now().After(deadline):
		return syntax.ErrTimeout
	default:
		return ctx.Err()
	}
}

func (p *cgoParser) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.parser.Reset()
	}
}

func (p *cgoParser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.parser.Close()
	return nil
}

func (p *cgoParser) oldSitterTree(oldTree Tree) (*sitter.Tree, error) {
	if oldTree == nil {
		return nil, nil
	}
	ct, ok := oldTree.(*cgoTree)
	if !ok {
		return nil, ErrForeignTree{Backend: "cgo"}
	}
	return ct.tree, nil
}

// bound derives a context that ends with syntax.ErrTimeout when the timeout
// elapses and with syntax.ErrCancelled when the flag is set.
func (p *cgoParser) bound(parent context.Context) (context.Context, context.CancelCauseFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	if p.flag.IsSet() {
		cancel(syntax.ErrCancelled)
		return ctx, cancel
	}

	var timer *time.Timer
	if p.timeoutUS > 0 {
		timer = time.AfterFunc(time.Duration(p.timeoutUS)*time.Microsecond, func() {
			cancel(syntax.ErrTimeout)
		})
	}

	flag := p.flag
	go func() {
		ticker := time.NewTicker(flagPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if flag.IsSet() {
					cancel(syntax.ErrCancelled)
					return
				}
			}
		}
	}()

	return ctx, func(cause error) {
		if timer != nil {
			timer.Stop()
		}
		cancel(cause)
	}
}

// cgoTree implements Tree using the CGO backend.
type cgoTree struct {
	tree   *sitter.Tree
	source []byte
}

func (t *cgoTree) RootNode() Node {
	return &cgoNode{node: t.tree.RootNode()}
}

func (t *cgoTree) Source() []byte {
	return t.source
}

func (t *cgoTree) HasError() bool {
	root := t.tree.RootNode()
	if root == nil {
		return false
	}
	return root.HasError()
}

func (t *cgoTree) Edit(edit InputEdit) {
	t.tree.Edit(sitter.EditInput{
		StartIndex:  edit.StartByte,
		OldEndIndex: edit.OldEndByte,
		NewEndIndex: edit.NewEndByte,
		StartPoint:  sitter.Point{Row: edit.StartPoint.Row, Column: edit.StartPoint.Column},
		OldEndPoint: sitter.Point{Row: edit.OldEndPoint.Row, Column: edit.OldEndPoint.Column},
		NewEndPoint: sitter.Point{Row: edit.NewEndPoint.Row, Column: edit.NewEndPoint.Column},
	})
}

func (t *cgoTree) Walk() TreeCursor {
	return &cgoTreeCursor{cursor: sitter.NewTreeCursor(t.tree.RootNode())}
}

// Fingerprint hashes the type and span of every node.
func (t *cgoTree) Fingerprint() uint64 {
	h := xxhash.New()
	var buf [12]byte
	Walk(t, func(n Node, depth int) bool {
		_, _ = h.WriteString(n.Type())
		binary.LittleEndian.PutUint32(buf[0:], uint32(depth))
		binary.LittleEndian.PutUint32(buf[4:], n.StartByte())
		binary.LittleEndian.PutUint32(buf[8:], n.EndByte())
		_, _ = h.Write(buf[:])
		return true
	})
	return h.Sum64()
}

func (t *cgoTree) Close() error {
	t.tree.Close()
	return nil
}

// cgoNode adapts *sitter.Node. A nil node behaves as the null node.
type cgoNode struct {
	node *sitter.Node
}

// wrapNode returns nil for a missing child instead of a null wrapper.
func wrapNode(n *sitter.Node) Node {
	if n == nil {
		return nil
	}
	return &cgoNode{node: n}
}

func toPoint(p sitter.Point) Point { return Point{Row: p.Row, Column: p.Column} }

func (n *cgoNode) ok() bool { return n.node != nil }

func (n *cgoNode) Type() string {
	if !n.ok() {
		return ""
	}
	return n.node.Type()
}

func (n *cgoNode) StartByte() uint32 {
	if !n.ok() {
		return 0
	}
	return n.node.StartByte()
}

func (n *cgoNode) EndByte() uint32 {
	if !n.ok() {
		return 0
	}
	return n.node.EndByte()
}

func (n *cgoNode) StartPoint() Point {
	if !n.ok() {
		return Point{}
	}
	return toPoint(n.node.StartPoint())
}

func (n *cgoNode) EndPoint() Point {
	if !n.ok() {
		return Point{}
	}
	return toPoint(n.node.EndPoint())
}

func (n *cgoNode) Content(source []byte) string {
	if !n.ok() || n.node.EndByte() > uint32(len(source)) {
		return ""
	}
	return n.node.Content(source)
}

func (n *cgoNode) ChildCount() uint32 {
	if !n.ok() {
		return 0
	}
	return n.node.ChildCount()
}

func (n *cgoNode) Child(index uint32) Node {
	if !n.ok() || index >= n.node.ChildCount() {
		return nil
	}
	return wrapNode(n.node.Child(int(index)))
}

func (n *cgoNode) NamedChildCount() uint32 {
	if !n.ok() {
		return 0
	}
	return n.node.NamedChildCount()
}

func (n *cgoNode) NamedChild(index uint32) Node {
	if !n.ok() || index >= n.node.NamedChildCount() {
		return nil
	}
	return wrapNode(n.node.NamedChild(int(index)))
}

func (n *cgoNode) IsNamed() bool   { return n.ok() && n.node.IsNamed() }
func (n *cgoNode) IsError() bool   { return n.ok() && n.node.IsError() }
func (n *cgoNode) IsMissing() bool { return n.ok() && n.node.IsMissing() }
func (n *cgoNode) IsNull() bool    { return !n.ok() || n.node.IsNull() }

func (n *cgoNode) String() string {
	if !n.ok() {
		return "(null)"
	}
	return n.node.String()
}

// cgoTreeCursor implements TreeCursor using the CGO backend.
type cgoTreeCursor struct {
	cursor *sitter.TreeCursor
	depth  int
}

func (c *cgoTreeCursor) Reset(node Node) {
	cn, ok := node.(*cgoNode)
	if !ok {
		return
	}
	c.cursor.Reset(cn.node)
	c.depth = 0
}

func (c *cgoTreeCursor) CurrentNode() Node {
	return wrapNode(c.cursor.CurrentNode())
}

func (c *cgoTreeCursor) GotoParent() bool {
	if c.cursor.GoToParent() {
		c.depth--
		return true
	}
	return false
}

func (c *cgoTreeCursor) GotoFirstChild() bool {
	if c.cursor.GoToFirstChild() {
		c.depth++
		return true
	}
	return false
}

func (c *cgoTreeCursor) GotoNextSibling() bool { return c.cursor.GoToNextSibling() }
func (c *cgoTreeCursor) Depth() int            { return c.depth }
func (c *cgoTreeCursor) Close()                { c.cursor.Close() }
