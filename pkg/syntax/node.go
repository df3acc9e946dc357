package syntax

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Node is a read-only view of one position in a Tree.
// The zero Node is null; check IsNull before use when a lookup may fail.
type Node struct {
	tree   *Tree
	st     *subtree
	offset Length // start of the subtree's padding
}

// IsNull reports whether n refers to nothing.
func (n Node) IsNull() bool { return n.st == nil }

// Tree returns the tree n belongs to.
func (n Node) Tree() *Tree { return n.tree }

// Symbol returns the grammar symbol of the node.
func (n Node) Symbol() Symbol { return n.st.symbol }

// Type returns the symbol name of the node.
func (n Node) Type() string { return n.tree.language.SymbolName(n.st.symbol) }

// IsNamed reports whether the node's symbol is named in the grammar.
func (n Node) IsNamed() bool { return n.st.named }

// IsExtra reports whether the node is an extra, such as a comment.
func (n Node) IsExtra() bool { return n.st.extra }

// IsError reports whether the node wraps text the grammar could not place.
func (n Node) IsError() bool { return n.st.isError() }

// IsMissing reports whether the node was inserted to complete the tree.
func (n Node) IsMissing() bool { return n.st.missing }

// HasError reports whether the node or a descendant is an error or missing.
func (n Node) HasError() bool { return n.st.hasError }

// HasChanges reports whether an edit touched the node since it was parsed.
func (n Node) HasChanges() bool { return n.st.hasChanges }

func (n Node) start() Length { return n.offset.add(n.st.padding) }
func (n Node) end() Length   { return n.start().add(n.st.size) }

// StartByte is the offset of the node's first byte, after its padding.
func (n Node) StartByte() uint32 { return n.start().Bytes }

// EndByte is the offset just past the node's last byte.
func (n Node) EndByte() uint32 { return n.end().Bytes }

// StartPoint is the row and column of StartByte.
func (n Node) StartPoint() Point { return n.start().Extent }

// EndPoint is the row and column of EndByte.
func (n Node) EndPoint() Point { return n.end().Extent }

// ChildCount counts all children, anonymous ones included.
func (n Node) ChildCount() uint32 { return uint32(len(n.st.children)) }

// NamedChildCount returns the number of named children.
func (n Node) NamedChildCount() uint32 { return n.st.namedChildCount }

// Child returns the i-th child, or a null Node when i is out of range.
func (n Node) Child(i int) Node {
	if i < 0 || i >= len(n.st.children) {
		return Node{}
	}
	off := n.offset
	for _, c := range n.st.children[:i] {
		off = off.add(c.total())
	}
	return Node{tree: n.tree, st: n.st.children[i], offset: off}
}

// NamedChild returns the i-th named child, or a null Node.
func (n Node) NamedChild(i int) Node {
	if i < 0 {
		return Node{}
	}
	off := n.offset
	for _, c := range n.st.children {
		if c.named {
			if i == 0 {
				return Node{tree: n.tree, st: c, offset: off}
			}
			i--
		}
		off = off.add(c.total())
	}
	return Node{}
}

// Content returns the text of the node within source.
func (n Node) Content(source []byte) string {
	start, end := n.StartByte(), n.EndByte()
	if end > uint32(len(source)) || start > end {
		return ""
	}
	return string(source[start:end])
}

// Fingerprint returns a structural hash of the subtree rooted at n.
func (n Node) Fingerprint() uint64 {
	h := xxhash.New()
	fingerprint(h, n.st)
	return h.Sum64()
}

// String returns an S-expression of the named nodes under n.
func (n Node) String() string {
	if n.IsNull() {
		return ""
	}
	var b strings.Builder
	writeSExp(&b, n.tree.language, n.st)
	return b.String()
}

func writeSExp(b *strings.Builder, lang *Language, s *subtree) {
	b.WriteByte('(')
	switch {
	case s.missing:
		b.WriteString("MISSING ")
		if s.named {
			b.WriteString(lang.SymbolName(s.symbol))
		} else {
			b.WriteString(strconv.Quote(lang.SymbolName(s.symbol)))
		}
	default:
		b.WriteString(lang.SymbolName(s.symbol))
	}
	for _, c := range s.children {
		if !c.named && !c.missing {
			continue
		}
		b.WriteByte(' ')
		writeSExp(b, lang, c)
	}
	b.WriteByte(')')
}
