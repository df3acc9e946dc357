package syntax_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albertocavalcante/arbor/pkg/syntax"
)

// insertion describes inserting text at offset on a single line.
func insertion(src []byte, offset uint32, text string) ([]byte, syntax.InputEdit) {
	newSrc := append(append(append([]byte(nil), src[:offset]...), text...), src[offset:]...)
	start := pointAt(src, offset)
	return newSrc, syntax.InputEdit{
		StartByte:   offset,
		OldEndByte:  offset,
		NewEndByte:  offset + uint32(len(text)),
		StartPoint:  start,
		OldEndPoint: start,
		NewEndPoint: pointAt(newSrc, offset+uint32(len(text))),
	}
}

func deletion(src []byte, start, end uint32) ([]byte, syntax.InputEdit) {
	newSrc := append(append([]byte(nil), src[:start]...), src[end:]...)
	return newSrc, syntax.InputEdit{
		StartByte:   start,
		OldEndByte:  end,
		NewEndByte:  start,
		StartPoint:  pointAt(src, start),
		OldEndPoint: pointAt(src, end),
		NewEndPoint: pointAt(src, start),
	}
}

func TestEditCopiesPath(t *testing.T) {
	src := []byte("(a b) (c d) (e f)")
	tree := newParser(t).Parse(src, nil)
	require.NotNil(t, tree)

	edited := tree.Copy()
	_, edit := insertion(src, 16, " g")
	edited.Edit(edit)

	assert.False(t, tree.RootNode().HasChanges())
	assert.Equal(t, uint32(17), tree.RootNode().EndByte())
	assert.Empty(t, tree.Edits())

	root := edited.RootNode()
	assert.True(t, root.HasChanges())
	assert.Equal(t, uint32(19), root.EndByte())
	assert.Equal(t, []syntax.InputEdit{edit}, edited.Edits())

	for i := 0; i < 2; i++ {
		assert.False(t, root.Child(i).HasChanges(), "child %d", i)
		assert.True(t, syntax.SameSubtree(root.Child(i), tree.RootNode().Child(i)), "child %d shared", i)
	}
	third := root.Child(2)
	assert.True(t, third.HasChanges())
	assert.False(t, syntax.SameSubtree(third, tree.RootNode().Child(2)))
	assert.False(t, tree.RootNode().Child(2).HasChanges())
}

func TestEditShiftsFollowingNodes(t *testing.T) {
	src := []byte("(a) (b)")
	tree := newParser(t).Parse(src, nil)
	require.NotNil(t, tree)

	_, edit := insertion(src, 0, "xy ")
	tree.Edit(edit)

	second := tree.RootNode().Child(1)
	assert.False(t, second.HasChanges())
	assert.Equal(t, uint32(7), second.StartByte())
	assert.Equal(t, uint32(10), second.EndByte())
}

func TestEditClampsToTree(t *testing.T) {
	src := []byte("(a)")
	tree := newParser(t).Parse(src, nil)
	require.NotNil(t, tree)

	tree.Edit(syntax.InputEdit{StartByte: 10, OldEndByte: 12, NewEndByte: 15})
	assert.True(t, tree.RootNode().HasChanges())
	assert.Equal(t, uint32(8), tree.RootNode().EndByte())
}

func TestIncrementalReparse(t *testing.T) {
	tests := []struct {
		name   string
		source string
		edit   func(src []byte) ([]byte, syntax.InputEdit)
		reused []int
	}{
		{
			name:   "insert into last list",
			source: "(a b) (c d) (e f)",
			edit:   func(src []byte) ([]byte, syntax.InputEdit) { return insertion(src, 16, " g") },
			reused: []int{0, 1},
		},
		{
			name:   "insert new list at end",
			source: "(a b)\n(c d)\n",
			edit:   func(src []byte) ([]byte, syntax.InputEdit) { return insertion(src, 12, "(e)\n") },
			reused: []int{0, 1},
		},
		{
			name:   "extend trailing symbol",
			source: "(a b) abc",
			edit:   func(src []byte) ([]byte, syntax.InputEdit) { return insertion(src, 9, "d") },
			reused: []int{0},
		},
		{
			name:   "delete inside first list",
			source: "(a bb c)\n; note\n(d)",
			edit:   func(src []byte) ([]byte, syntax.InputEdit) { return deletion(src, 3, 6) },
			reused: []int{1, 2},
		},
		{
			name:   "split token",
			source: "(abcd) (e)",
			edit:   func(src []byte) ([]byte, syntax.InputEdit) { return insertion(src, 3, " ") },
			reused: []int{1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := []byte(tt.source)
			p := newParser(t)
			original := p.Parse(src, nil)
			require.NotNil(t, original)

			newSrc, edit := tt.edit(src)
			edited := original.Copy()
			edited.Edit(edit)

			tree := p.Parse(newSrc, edited)
			require.NotNil(t, tree)

			fresh := newParser(t).Parse(newSrc, nil)
			require.NotNil(t, fresh)
			assert.Equal(t, fresh.String(), tree.String())
			assert.Equal(t, fresh.Fingerprint(), tree.Fingerprint())
			assert.Equal(t, uint32(len(newSrc)), tree.RootNode().EndByte())
			assert.GreaterOrEqual(t, p.Stats().ReusedSubtrees, len(tt.reused))

			for _, i := range tt.reused {
				got, prev := tree.RootNode().Child(i), edited.RootNode().Child(i)
				assert.True(t, syntax.SameSubtree(got, prev), "child %d should be reused", i)
				assert.Equal(t, prev.Type(), got.Type())
				assert.Equal(t, prev.EndByte()-prev.StartByte(), got.EndByte()-got.StartByte())
				assert.Equal(t, prev.Fingerprint(), got.Fingerprint())
			}
		})
	}
}

func TestReparseWithoutEdits(t *testing.T) {
	src := []byte("(a (b c)) d \"e\"")
	p := newParser(t)
	first := p.Parse(src, nil)
	require.NotNil(t, first)

	second := p.Parse(src, first)
	require.NotNil(t, second)
	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
	assert.Equal(t, int(first.RootNode().ChildCount()), p.Stats().ReusedSubtrees)
}

func TestReparseStreamingSkipsReusedText(t *testing.T) {
	src := []byte("(aaaa bbbb cccc) (dddd eeee ffff) (g)")
	p := newParser(t)
	original := p.Parse(src, nil)
	require.NotNil(t, original)

	newSrc, edit := insertion(src, uint32(len(src)-1), " h")
	original.Edit(edit)

	read, offsets := chunkReader(t, newSrc, 4)
	tree := p.ParseInput(read, original)
	require.NotNil(t, tree)
	assert.Equal(t, newParser(t).Parse(newSrc, nil).String(), tree.String())
	assert.Equal(t, uint32(33), (*offsets)[0], "reused lists are not read again")

	stats := p.Stats()
	assert.Equal(t, stats.ChunksAcquired, stats.ChunksReleased)
}
