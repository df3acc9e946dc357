package syntax

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Tree is the result of a parse.
//
// A Tree is safe for concurrent reads. Edit must not run concurrently with
// anything else using the tree. Nodes and cursors keep their tree alive.
type Tree struct {
	root     *subtree
	language *Language
	edits    []InputEdit
}

// InputEdit describes a change to the text a tree was parsed from.
type InputEdit struct {
	StartByte   uint32
	OldEndByte  uint32
	NewEndByte  uint32
	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

// RootNode returns the node spanning the whole document.
func (t *Tree) RootNode() Node {
	return Node{tree: t, st: t.root}
}

// Language returns the language that produced the tree.
func (t *Tree) Language() *Language {
	return t.language
}

// Walk returns a cursor positioned at the root node.
func (t *Tree) Walk() *TreeCursor {
	return NewTreeCursor(t.RootNode())
}

// Copy returns a tree that shares structure with t but can be edited
// independently.
func (t *Tree) Copy() *Tree {
	return &Tree{
		root:     t.root,
		language: t.language,
		edits:    append([]InputEdit(nil), t.edits...),
	}
}

// Edits returns the edits applied since the tree was parsed.
func (t *Tree) Edits() []InputEdit {
	return append([]InputEdit(nil), t.edits...)
}

// HasError reports whether the tree contains syntax errors.
func (t *Tree) HasError() bool {
	return t.root.hasError
}

// Fingerprint returns a structural hash of the tree.
// Two trees share a fingerprint when they have the same shape, symbols,
// and spans.
func (t *Tree) Fingerprint() uint64 {
	return t.RootNode().Fingerprint()
}

func (t *Tree) String() string {
	return t.RootNode().String()
}

func fingerprint(h *xxhash.Digest, s *subtree) {
	var buf [15]byte
	binary.LittleEndian.PutUint16(buf[0:], uint16(s.symbol))
	binary.LittleEndian.PutUint32(buf[2:], s.padding.Bytes)
	binary.LittleEndian.PutUint32(buf[6:], s.size.Bytes)
	binary.LittleEndian.PutUint32(buf[10:], uint32(len(s.children)))
	var flags byte
	if s.extra {
		flags |= 1
	}
	if s.missing {
		flags |= 2
	}
	if s.hasError {
		flags |= 4
	}
	buf[14] = flags
	_, _ = h.Write(buf[:])
	for _, c := range s.children {
		fingerprint(h, c)
	}
}
