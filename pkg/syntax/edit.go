package syntax

// Edit adjusts the tree to describe text that changed as e states.
//
// Subtrees along the edited path are copied, shifted and marked as changed;
// subtrees shared with other trees are never modified. Edits must be applied
// in the order they were made to the text and must match it exactly. Offsets
// past the end of the tree are clamped to it.
func (t *Tree) Edit(e InputEdit) {
	total := t.root.total()
	r := editRange{
		start:  lengthAt(e.StartByte, e.StartPoint),
		oldEnd: lengthAt(e.OldEndByte, e.OldEndPoint),
		newEnd: lengthAt(e.NewEndByte, e.NewEndPoint),
	}
	if r.start.Bytes > total.Bytes {
		r.newEnd = total.add(r.newEnd.sub(r.start))
		r.start = total
	}
	if r.oldEnd.Bytes > total.Bytes {
		r.oldEnd = total
	}
	if r.oldEnd.Bytes < r.start.Bytes {
		r.oldEnd = r.start
	}
	if r.newEnd.Bytes < r.start.Bytes {
		r.newEnd = r.start
	}
	t.root = editSubtree(t.root, r, true)
	t.edits = append(t.edits, e)
}

type editRange struct {
	start, oldEnd, newEnd Length
}

// editSubtree returns a changed copy of s with r applied. r is relative to
// the start of s's padding.
func editSubtree(s *subtree, r editRange, root bool) *subtree {
	n := s.clone()
	n.hasChanges = true

	pureInsertion := r.oldEnd.Bytes == r.start.Bytes
	padding := n.padding
	total := n.total()
	switch {
	case root:
		n.padding = Length{}
		n.size = r.newEnd.add(total.sub(r.oldEnd))
	case r.oldEnd.Bytes <= padding.Bytes:
		n.padding = r.newEnd.add(padding.sub(r.oldEnd))
	case r.start.Bytes < padding.Bytes:
		n.size = n.size.sub(r.oldEnd.sub(padding))
		n.padding = r.newEnd
	case r.start.Bytes < total.Bytes || (r.start.Bytes == total.Bytes && pureInsertion):
		n.size = r.newEnd.sub(padding).add(total.sub(r.oldEnd))
	}

	var left, right Length
	for i, c := range n.children {
		size := c.total()
		left = right
		right = left.add(size)

		if right.Bytes+c.lookahead < r.start.Bytes {
			continue
		}
		if left.Bytes > r.oldEnd.Bytes || (left.Bytes == r.oldEnd.Bytes && size.Bytes > 0 && i > 0) {
			break
		}

		cr := editRange{
			start:  r.start.sub(left),
			oldEnd: r.oldEnd.sub(left),
			newEnd: r.newEnd.sub(left),
		}
		// Inserted text belongs to the first child touching the edit; later
		// children only shrink.
		if right.Bytes > r.start.Bytes || (right.Bytes == r.start.Bytes && pureInsertion) {
			r.newEnd = r.start
			pureInsertion = false
		} else {
			cr.oldEnd = cr.start
			cr.newEnd = cr.start
		}
		n.children[i] = editSubtree(c, cr, false)
	}
	return n
}
