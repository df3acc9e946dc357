package syntax

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

var (
	// ErrNoLanguage is returned when parsing without a language.
	ErrNoLanguage = errors.New("parser has no language")

	// ErrTimeout is returned when a parse exceeds its timeout.
	ErrTimeout = errors.New("parse timed out")

	// ErrCancelled is returned when a parse observes its cancellation flag.
	ErrCancelled = errors.New("parse cancelled")
)

// operationsPerCheck bounds the parse work done between halt checks.
const operationsPerCheck = 100

// Parser produces Trees from source text.
//
// A Parser is not safe for concurrent use. A parse halted by a timeout or
// cancellation leaves paused state behind; the next call with the same old
// tree resumes it, any other call discards it.
type Parser struct {
	language      *Language
	timeoutMicros uint64
	cancel        *CancellationFlag
	ownCancel     *CancellationFlag
	paused        *pausedParse
	dot           io.Writer
	logger        *slog.Logger
	stats         Stats
}

type stackFrame struct {
	symbol     Symbol
	state      StateID
	startState StateID
	children   []*subtree
	errored    bool
}

type pausedParse struct {
	language *Language
	oldTree  *Tree
	stack    []stackFrame
	pos      Length
	reuse    *reuseIterator
}

// NewParser returns a parser with no language and no timeout.
func NewParser() *Parser {
	flag := &CancellationFlag{}
	return &Parser{
		cancel:    flag,
		ownCancel: flag,
		logger:    slog.New(slog.DiscardHandler),
	}
}

// SetLanguage assigns the language used by subsequent parses. A nil
// language unsets it. Paused state is discarded.
func (p *Parser) SetLanguage(l *Language) error {
	if l != nil && (l.Version < MinCompatibleLanguageVersion || l.Version > LanguageVersion) {
		return &LanguageError{Version: l.Version}
	}
	p.language = l
	p.paused = nil
	return nil
}

// Language returns the assigned language, or nil.
func (p *Parser) Language() *Language {
	return p.language
}

// SetTimeoutMicros bounds the wall-clock time of each parse call.
// Zero means no limit.
func (p *Parser) SetTimeoutMicros(t uint64) {
	p.timeoutMicros = t
}

// TimeoutMicros returns the current timeout.
func (p *Parser) TimeoutMicros() uint64 {
	return p.timeoutMicros
}

// SetCancellationFlag makes the parser poll flag. A nil flag restores the
// parser's own flag.
func (p *Parser) SetCancellationFlag(flag *CancellationFlag) {
	if flag == nil {
		flag = p.ownCancel
	}
	p.cancel = flag
}

// CancellationFlag returns the flag the parser polls.
func (p *Parser) CancellationFlag() *CancellationFlag {
	return p.cancel
}

// SetLogger sets the logger that receives lexing and parsing events at
// debug level. A nil logger disables them.
func (p *Parser) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	p.logger = l
}

// Stats returns counters for the most recent parse call.
func (p *Parser) Stats() Stats {
	return p.stats
}

// Reset discards paused state so the next parse starts from the beginning.
func (p *Parser) Reset() {
	p.paused = nil
}

// Parse parses text, reusing unchanged parts of oldTree if it is not nil.
// oldTree must have been edited to match text. Parse returns nil if the
// parser has no language, times out, or is cancelled.
func (p *Parser) Parse(text []byte, oldTree *Tree) *Tree {
	t, _ := p.ParseCtx(context.Background(), text, oldTree)
	return t
}

// ParseInput is like Parse but reads the text from input on demand.
func (p *Parser) ParseInput(input Input, oldTree *Tree) *Tree {
	t, _ := p.ParseInputCtx(context.Background(), input, oldTree)
	return t
}

// ParseCtx is like Parse but also stops when ctx is done, and reports why
// no tree was produced.
func (p *Parser) ParseCtx(ctx context.Context, text []byte, oldTree *Tree) (*Tree, error) {
	return p.run(ctx, newTextSource(text, &p.stats), oldTree)
}

// ParseInputCtx is like ParseInput but also stops when ctx is done, and
// reports why no tree was produced.
func (p *Parser) ParseInputCtx(ctx context.Context, input Input, oldTree *Tree) (*Tree, error) {
	if input == nil {
		return p.ParseCtx(ctx, nil, oldTree)
	}
	return p.run(ctx, newInputSource(input, &p.stats), oldTree)
}

func (p *Parser) run(ctx context.Context, src *source, oldTree *Tree) (*Tree, error) {
	p.stats = Stats{}
	lang := p.language
	if lang == nil {
		return nil, ErrNoLanguage
	}

	r := &parseRun{
		p:       p,
		ctx:     ctx,
		lang:    lang,
		src:     src,
		lexer:   lexer{language: lang, src: src},
		tracing: p.logger.Enabled(ctx, slog.LevelDebug),
	}
	if p.timeoutMicros > 0 {
		r.deadline = time.Now().Add(time.Duration(p.timeoutMicros) * time.Microsecond)
	}
	src.afterRead = r.shouldHalt
	defer src.releaseAll()

	if pp := p.paused; pp != nil && pp.language == lang && pp.oldTree == oldTree {
		r.stack, r.pos, r.reuse = pp.stack, pp.pos, pp.reuse
		p.stats.Resumed = true
	} else {
		r.stack = []stackFrame{{symbol: lang.RootSymbol, state: lang.InitialState, startState: lang.InitialState}}
		r.reuse = newReuseIterator(oldTree)
	}
	p.paused = nil

	root, err := r.loop()
	if err != nil {
		p.paused = &pausedParse{
			language: lang,
			oldTree:  oldTree,
			stack:    r.stack,
			pos:      r.pos,
			reuse:    r.reuse,
		}
		p.stats.Halt = r.halt
		p.logger.DebugContext(ctx, "parse halted", "reason", r.halt, "offset", r.pos.Bytes)
		return nil, err
	}
	return &Tree{root: root, language: lang}, nil
}

// parseRun is the state of one parse call.
type parseRun struct {
	p        *Parser
	ctx      context.Context
	lang     *Language
	src      *source
	lexer    lexer
	deadline time.Time
	tracing  bool

	stack []stackFrame
	pos   Length
	reuse *reuseIterator
	ops   int
	halt  HaltReason
}

func (r *parseRun) shouldHalt() bool {
	switch {
	case r.p.cancel.IsSet():
		r.halt = HaltCancelled
	case !r.deadline.IsZero() && time.Now().After(r.deadline):
		r.halt = HaltTimeout
	case r.ctx.Err() != nil:
		r.halt = HaltContext
	default:
		return false
	}
	return true
}

func (r *parseRun) haltErr() error {
	switch r.halt {
	case HaltTimeout:
		return ErrTimeout
	case HaltCancelled:
		return ErrCancelled
	default:
		return r.ctx.Err()
	}
}

func (r *parseRun) loop() (*subtree, error) {
	for {
		if r.ops%operationsPerCheck == 0 && r.shouldHalt() {
			return nil, r.haltErr()
		}
		r.ops++
		if r.tryReuse() {
			continue
		}
		top := &r.stack[len(r.stack)-1]
		tok, ok := r.lexer.lex(r.pos, r.lang.lexMode(top.state))
		if !ok {
			return nil, r.haltErr()
		}
		r.p.stats.Tokens++
		if root := r.apply(tok); root != nil {
			return root, nil
		}
	}
}

// tryReuse appends the next reusable subtree of the old tree, if any.
func (r *parseRun) tryReuse() bool {
	for st := r.reuse.candidate(r.pos); st != nil; st = r.reuse.candidate(r.pos) {
		f := &r.stack[len(r.stack)-1]
		if st.parseState == f.state {
			a := r.lang.action(f.state, st.symbol)
			reusable := true
			switch {
			case len(st.children) > 0:
				if a.Type == ActionShift {
					f.state = a.State
				}
			case a.Type == ActionShift && !st.extra:
				f.state = a.State
			case a.Type == ActionExtra && st.extra:
			default:
				reusable = false
			}
			if reusable {
				f.children = append(f.children, st)
				r.pos = r.pos.add(st.total())
				r.reuse.accept()
				r.p.stats.ReusedSubtrees++
				if r.tracing {
					r.p.logger.DebugContext(r.ctx, "reuse", "symbol", r.lang.SymbolName(st.symbol), "offset", r.pos.Bytes)
				}
				r.printStack("reuse", st.symbol)
				return true
			}
		}
		r.reuse.reject()
	}
	return false
}

// apply performs the parse action for tok. It returns the root once the
// document is complete.
func (r *parseRun) apply(tok token) *subtree {
	f := &r.stack[len(r.stack)-1]
	a := r.lang.action(f.state, tok.symbol)
	if tok.symbol == SymbolError {
		a = ParseAction{}
	}
	if r.tracing {
		r.p.logger.DebugContext(r.ctx, "lex",
			"symbol", r.lang.SymbolName(tok.symbol),
			"start", r.pos.add(tok.padding).Bytes,
			"size", tok.size.Bytes,
			"state", f.state,
			"action", a.Type)
	}

	switch a.Type {
	case ActionShift:
		f.children = append(f.children, newLeaf(r.lang, tok, f.state))
		f.state = a.State
		r.pos = tok.end(r.pos)

	case ActionExtra:
		leaf := newLeaf(r.lang, tok, f.state)
		leaf.extra = true
		f.children = append(f.children, leaf)
		r.pos = tok.end(r.pos)

	case ActionOpen:
		leaf := newLeaf(r.lang, tok, f.state)
		r.stack = append(r.stack, stackFrame{
			symbol:     a.Symbol,
			state:      a.State,
			startState: f.state,
			children:   []*subtree{leaf},
		})
		r.pos = tok.end(r.pos)

	case ActionClose:
		if len(r.stack) == 1 {
			return r.recover(tok)
		}
		if tok.symbol == SymbolEnd {
			// Leave the end token for the enclosing frame.
			if a.Symbol != SymbolEnd {
				f.children = append(f.children, newMissingLeaf(r.lang, a.Symbol, f.state))
			}
			f.errored = true
		} else {
			f.children = append(f.children, newLeaf(r.lang, tok, f.state))
			r.pos = tok.end(r.pos)
		}
		r.closeFrame()

	case ActionAccept:
		if len(r.stack) == 1 && tok.symbol == SymbolEnd {
			return r.finish(tok)
		}
		return r.recover(tok)

	default:
		return r.recover(tok)
	}
	r.printStack(a.Type.String(), tok.symbol)
	return nil
}

// recover handles a token with no valid action. Unexpected tokens are
// wrapped in ERROR nodes; an unexpected end of input closes open nodes.
func (r *parseRun) recover(tok token) *subtree {
	f := &r.stack[len(r.stack)-1]
	if tok.symbol == SymbolEnd {
		f.errored = true
		if len(r.stack) == 1 {
			return r.finish(tok)
		}
		r.closeFrame()
		r.printStack("recover", SymbolEnd)
		return nil
	}
	leaf := newLeaf(r.lang, tok, f.state)
	if tok.symbol != SymbolError {
		leaf = newNode(r.lang, SymbolError, []*subtree{leaf}, f.state)
	}
	f.children = append(f.children, leaf)
	r.pos = tok.end(r.pos)
	r.printStack("recover", tok.symbol)
	return nil
}

func (r *parseRun) closeFrame() {
	f := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	node := newNode(r.lang, f.symbol, f.children, f.startState)
	if f.errored {
		node.hasError = true
	}
	parent := &r.stack[len(r.stack)-1]
	parent.children = append(parent.children, node)
	if g := r.lang.action(parent.state, node.symbol); g.Type == ActionShift {
		parent.state = g.State
	}
}

// finish builds the root from the base frame. The root starts at offset zero
// and ends at the end of the input, so trailing whitespace belongs to it.
func (r *parseRun) finish(tok token) *subtree {
	f := r.stack[0]
	r.pos = r.pos.add(tok.padding)
	root := newNode(r.lang, f.symbol, f.children, f.startState)
	root.padding = Length{}
	root.size = r.pos
	root.lookahead = tok.lookahead
	if f.errored {
		root.hasError = true
	}
	r.stack = r.stack[:0]
	r.printStack("accept", SymbolEnd)
	return root
}
