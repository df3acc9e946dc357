package syntax

import "testing"

func TestLengthAdd(t *testing.T) {
	tests := []struct {
		name string
		a, b Length
		want Length
	}{
		{
			name: "same line",
			a:    Length{Bytes: 3, Extent: Point{Row: 1, Column: 2}},
			b:    Length{Bytes: 4, Extent: Point{Column: 4}},
			want: Length{Bytes: 7, Extent: Point{Row: 1, Column: 6}},
		},
		{
			name: "crosses newline",
			a:    Length{Bytes: 3, Extent: Point{Row: 1, Column: 2}},
			b:    Length{Bytes: 5, Extent: Point{Row: 2, Column: 1}},
			want: Length{Bytes: 8, Extent: Point{Row: 3, Column: 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.add(tt.b); got != tt.want {
				t.Errorf("add() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLengthSub(t *testing.T) {
	tests := []struct {
		name string
		a, b Length
		want Length
	}{
		{
			name: "same row",
			a:    Length{Bytes: 10, Extent: Point{Row: 2, Column: 7}},
			b:    Length{Bytes: 8, Extent: Point{Row: 2, Column: 5}},
			want: Length{Bytes: 2, Extent: Point{Column: 2}},
		},
		{
			name: "different rows",
			a:    Length{Bytes: 10, Extent: Point{Row: 2, Column: 3}},
			b:    Length{Bytes: 4, Extent: Point{Row: 1, Column: 2}},
			want: Length{Bytes: 6, Extent: Point{Row: 1, Column: 3}},
		},
		{
			name: "saturates",
			a:    Length{Bytes: 2, Extent: Point{Column: 2}},
			b:    Length{Bytes: 5, Extent: Point{Column: 5}},
			want: Length{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.sub(tt.b); got != tt.want {
				t.Errorf("sub() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLengthAdvance(t *testing.T) {
	var l Length
	for _, b := range []byte("ab\ncd") {
		l = l.advance(b)
	}
	want := Length{Bytes: 5, Extent: Point{Row: 1, Column: 2}}
	if l != want {
		t.Errorf("advance() = %+v, want %+v", l, want)
	}
}

func TestPointString(t *testing.T) {
	if got := (Point{Row: 3, Column: 14}).String(); got != "3:14" {
		t.Errorf("String() = %q, want %q", got, "3:14")
	}
}
