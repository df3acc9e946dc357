package watch

import (
	"github.com/albertocavalcante/arbor/pkg/syntax"
	"github.com/albertocavalcante/arbor/pkg/treesitter"
)

// Diff describes the change from old to new as a single edit covering
// everything between their common prefix and common suffix. It reports
// false when the texts are equal.
func Diff(old, new []byte) (treesitter.InputEdit, bool) {
	prefix := 0
	for prefix < len(old) && prefix < len(new) && old[prefix] == new[prefix] {
		prefix++
	}
	if prefix == len(old) && prefix == len(new) {
		return treesitter.InputEdit{}, false
	}

	suffix := 0
	for suffix < len(old)-prefix && suffix < len(new)-prefix &&
		old[len(old)-1-suffix] == new[len(new)-1-suffix] {
		suffix++
	}

	oldEnd := len(old) - suffix
	newEnd := len(new) - suffix
	start := pointOf(old, prefix)
	return treesitter.InputEdit{
		StartByte:   uint32(prefix),
		OldEndByte:  uint32(oldEnd),
		NewEndByte:  uint32(newEnd),
		StartPoint:  start,
		OldEndPoint: advance(start, old[prefix:oldEnd]),
		NewEndPoint: advance(start, new[prefix:newEnd]),
	}, true
}

func pointOf(text []byte, offset int) syntax.Point {
	return advance(syntax.Point{}, text[:offset])
}

func advance(p syntax.Point, text []byte) syntax.Point {
	for _, b := range text {
		if b == '\n' {
			p.Row++
			p.Column = 0
		} else {
			p.Column++
		}
	}
	return p
}
