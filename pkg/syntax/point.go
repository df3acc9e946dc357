package syntax

import "fmt"

// Point represents a position in source code as (row, column).
// Both row and column are 0-indexed; the column counts bytes.
type Point struct {
	Row    uint32
	Column uint32
}

func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Column)
}

// Length is a byte count paired with the row/column extent it spans.
// Subtrees store their padding and size as Lengths so that a subtree can be
// moved to another position without rewriting it.
type Length struct {
	Bytes  uint32
	Extent Point
}

// add appends b to a. Columns reset when b spans at least one line break.
func (a Length) add(b Length) Length {
	r := Length{Bytes: a.Bytes + b.Bytes}
	if b.Extent.Row > 0 {
		r.Extent = Point{Row: a.Extent.Row + b.Extent.Row, Column: b.Extent.Column}
	} else {
		r.Extent = Point{Row: a.Extent.Row, Column: a.Extent.Column + b.Extent.Column}
	}
	return r
}

// sub returns the length from b to a, saturating at zero.
func (a Length) sub(b Length) Length {
	if a.Bytes <= b.Bytes {
		return Length{}
	}
	r := Length{Bytes: a.Bytes - b.Bytes}
	switch {
	case a.Extent.Row > b.Extent.Row:
		r.Extent = Point{Row: a.Extent.Row - b.Extent.Row, Column: a.Extent.Column}
	case a.Extent.Column > b.Extent.Column:
		r.Extent = Point{Column: a.Extent.Column - b.Extent.Column}
	}
	return r
}

// advance moves the length past a single byte.
func (a Length) advance(b byte) Length {
	a.Bytes++
	if b == '\n' {
		a.Extent.Row++
		a.Extent.Column = 0
	} else {
		a.Extent.Column++
	}
	return a
}

func lengthAt(offset uint32, pos Point) Length {
	return Length{Bytes: offset, Extent: pos}
}
