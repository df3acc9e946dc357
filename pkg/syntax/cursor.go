package syntax

type cursorEntry struct {
	st     *subtree
	offset Length
	index  int
}

// TreeCursor walks a tree without allocating Nodes for every step.
//
// A cursor belongs to one goroutine. Any number of cursors may walk the same
// tree concurrently.
type TreeCursor struct {
	tree  *Tree
	stack []cursorEntry
}

// NewTreeCursor returns a cursor whose root is n.
func NewTreeCursor(n Node) *TreeCursor {
	c := &TreeCursor{}
	c.Reset(n)
	return c
}

// Reset moves the cursor to n and makes n its root.
func (c *TreeCursor) Reset(n Node) {
	c.tree = n.tree
	c.stack = append(c.stack[:0], cursorEntry{st: n.st, offset: n.offset})
}

// CurrentNode returns the node at the cursor.
func (c *TreeCursor) CurrentNode() Node {
	top := c.stack[len(c.stack)-1]
	return Node{tree: c.tree, st: top.st, offset: top.offset}
}

// Depth returns how many levels below its root the cursor is.
func (c *TreeCursor) Depth() int {
	return len(c.stack) - 1
}

// GotoParent moves to the parent of the current node.
// It returns false at the cursor's root.
func (c *TreeCursor) GotoParent() bool {
	if len(c.stack) < 2 {
		return false
	}
	c.stack = c.stack[:len(c.stack)-1]
	return true
}

// GotoFirstChild moves to the first child of the current node.
// It returns false if the node has no children.
func (c *TreeCursor) GotoFirstChild() bool {
	top := c.stack[len(c.stack)-1]
	if top.st == nil || len(top.st.children) == 0 {
		return false
	}
	c.stack = append(c.stack, cursorEntry{st: top.st.children[0], offset: top.offset})
	return true
}

// GotoNextSibling moves to the next sibling of the current node.
// It returns false on the last child and at the cursor's root.
func (c *TreeCursor) GotoNextSibling() bool {
	if len(c.stack) < 2 {
		return false
	}
	top := &c.stack[len(c.stack)-1]
	parent := c.stack[len(c.stack)-2]
	next := top.index + 1
	if next >= len(parent.st.children) {
		return false
	}
	top.offset = top.offset.add(top.st.total())
	top.st = parent.st.children[next]
	top.index = next
	return true
}
