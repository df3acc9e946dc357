package syntax

// subtree is the immutable storage behind Nodes. Positions are relative:
// padding is the text between the end of the previous sibling and the start
// of this subtree, so a subtree can be shared by trees that place it at
// different offsets.
type subtree struct {
	symbol     Symbol
	padding    Length
	size       Length
	lookahead  uint32
	parseState StateID

	children        []*subtree
	namedChildCount uint32

	named      bool
	extra      bool
	missing    bool
	hasError   bool
	hasChanges bool
}

func (s *subtree) total() Length {
	return s.padding.add(s.size)
}

func (s *subtree) isError() bool {
	return s.symbol == SymbolError
}

func newLeaf(lang *Language, tok token, state StateID) *subtree {
	return &subtree{
		symbol:     tok.symbol,
		padding:    tok.padding,
		size:       tok.size,
		lookahead:  tok.lookahead,
		parseState: state,
		named:      lang.IsNamed(tok.symbol),
		hasError:   tok.symbol == SymbolError,
	}
}

func newMissingLeaf(lang *Language, sym Symbol, state StateID) *subtree {
	return &subtree{
		symbol:     sym,
		parseState: state,
		named:      lang.IsNamed(sym),
		missing:    true,
		hasError:   true,
	}
}

// newNode builds an internal node spanning children. Its padding is the
// padding of the first child.
func newNode(lang *Language, sym Symbol, children []*subtree, state StateID) *subtree {
	n := &subtree{
		symbol:     sym,
		parseState: state,
		children:   children,
		named:      lang.IsNamed(sym),
		hasError:   sym == SymbolError,
	}
	n.summarize()
	return n
}

// summarize recomputes the fields derived from children.
func (s *subtree) summarize() {
	var total Length
	var reach uint32
	s.namedChildCount = 0
	for i, c := range s.children {
		if i == 0 {
			s.padding = c.padding
		}
		total = total.add(c.total())
		if r := total.Bytes + c.lookahead; r > reach {
			reach = r
		}
		if c.named {
			s.namedChildCount++
		}
		if c.hasError {
			s.hasError = true
		}
	}
	s.size = total.sub(s.padding)
	s.lookahead = 0
	if reach > total.Bytes {
		s.lookahead = reach - total.Bytes
	}
}

// clone returns a shallow copy with its own children slice.
func (s *subtree) clone() *subtree {
	c := *s
	if s.children != nil {
		c.children = append([]*subtree(nil), s.children...)
	}
	return &c
}
