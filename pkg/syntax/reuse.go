package syntax

type reuseEntry struct {
	st     *subtree
	offset Length
	index  int
}

// reuseIterator walks an edited old tree in document order, offering the
// largest unchanged subtree that starts at the parser's position.
type reuseIterator struct {
	stack []reuseEntry
}

func newReuseIterator(t *Tree) *reuseIterator {
	it := &reuseIterator{}
	if t != nil && t.root != nil {
		it.stack = append(it.stack, reuseEntry{st: t.root})
		it.descend()
	}
	return it
}

func (it *reuseIterator) done() bool {
	return len(it.stack) < 2
}

// descend moves to the first child of the current entry, or past the entry
// if it is a leaf.
func (it *reuseIterator) descend() {
	top := it.stack[len(it.stack)-1]
	if len(top.st.children) == 0 {
		it.advance()
		return
	}
	it.stack = append(it.stack, reuseEntry{st: top.st.children[0], offset: top.offset})
}

// advance moves past the current entry to the next subtree in document order.
func (it *reuseIterator) advance() {
	for len(it.stack) > 1 {
		top := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]
		parent := it.stack[len(it.stack)-1]
		if next := top.index + 1; next < len(parent.st.children) {
			it.stack = append(it.stack, reuseEntry{
				st:     parent.st.children[next],
				offset: top.offset.add(top.st.total()),
				index:  next,
			})
			return
		}
	}
	it.stack = it.stack[:0]
}

// candidate returns the next subtree starting exactly at pos that has no
// changes and no errors, or nil.
func (it *reuseIterator) candidate(pos Length) *subtree {
	for !it.done() {
		top := it.stack[len(it.stack)-1]
		start := top.offset.Bytes
		end := start + top.st.total().Bytes
		switch {
		case start > pos.Bytes:
			return nil
		case start < pos.Bytes:
			if end <= pos.Bytes {
				it.advance()
			} else {
				it.descend()
			}
		case top.st.hasChanges || top.st.hasError || top.st.missing || end == start:
			it.descend()
		default:
			return top.st
		}
	}
	return nil
}

// reject skips the current candidate in favour of its first child.
func (it *reuseIterator) reject() {
	if !it.done() {
		it.descend()
	}
}

// accept moves past the current candidate.
func (it *reuseIterator) accept() {
	if !it.done() {
		it.advance()
	}
}
