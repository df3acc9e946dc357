package syntax_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albertocavalcante/arbor/pkg/grammars/sexp"
	"github.com/albertocavalcante/arbor/pkg/syntax"
)

func newParser(t *testing.T) *syntax.Parser {
	t.Helper()

	p := syntax.NewParser()
	require.NoError(t, p.SetLanguage(sexp.Language()))
	return p
}

// chunkReader serves text in chunks of at most size bytes and checks the
// positions the parser asks for.
func chunkReader(t *testing.T, text []byte, size int) (syntax.ReadFunc, *[]uint32) {
	t.Helper()

	var offsets []uint32
	return func(offset uint32, pos syntax.Point) []byte {
		if n := len(offsets); n > 0 {
			assert.Greater(t, offset, offsets[n-1], "offsets must increase")
		}
		offsets = append(offsets, offset)
		if int(offset) >= len(text) {
			return nil
		}
		assert.Equal(t, pointAt(text, offset), pos, "position for offset %d", offset)
		end := min(int(offset)+size, len(text))
		return text[offset:end]
	}, &offsets
}

func pointAt(text []byte, offset uint32) syntax.Point {
	var p syntax.Point
	for _, b := range text[:offset] {
		if b == '\n' {
			p.Row++
			p.Column = 0
		} else {
			p.Column++
		}
	}
	return p
}

func TestParseWithoutLanguage(t *testing.T) {
	p := syntax.NewParser()
	assert.Nil(t, p.Language())

	assert.Nil(t, p.Parse([]byte("(a b)"), nil))
	assert.Nil(t, p.ParseInput(syntax.ReadFunc(func(uint32, syntax.Point) []byte { return nil }), nil))

	tree, err := p.ParseCtx(context.Background(), []byte("(a)"), nil)
	assert.Nil(t, tree)
	assert.ErrorIs(t, err, syntax.ErrNoLanguage)

	require.NoError(t, p.SetLanguage(sexp.Language()))
	require.NoError(t, p.SetLanguage(nil))
	assert.Nil(t, p.Parse([]byte("(a)"), nil))
}

func TestSetLanguageRejectsIncompatibleVersion(t *testing.T) {
	p := newParser(t)

	old := *sexp.Language()
	old.Version = syntax.LanguageVersion + 1
	err := p.SetLanguage(&old)

	var langErr *syntax.LanguageError
	require.ErrorAs(t, err, &langErr)
	assert.Equal(t, uint32(syntax.LanguageVersion+1), langErr.Version)
	assert.Same(t, sexp.Language(), p.Language(), "failed SetLanguage must keep the previous language")
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		want     string
		hasError bool
	}{
		{name: "empty", source: "", want: "(source_file)"},
		{name: "whitespace only", source: " \n\t", want: "(source_file)"},
		{name: "atoms", source: "a 12 3.5 \"s\"", want: "(source_file (symbol) (number) (number) (string))"},
		{name: "list", source: "(add 1 2)", want: "(source_file (list (symbol) (number) (number)))"},
		{name: "nested", source: "(define (sq x) (* x x))", want: "(source_file (list (symbol) (list (symbol) (symbol)) (list (symbol) (symbol) (symbol))))"},
		{name: "comments", source: "; head\n(a ; inner\n b)", want: "(source_file (comment) (list (symbol) (comment) (symbol)))"},
		{name: "escaped string", source: `("a\"b")`, want: "(source_file (list (string)))"},
		{name: "unexpected close", source: "a)", want: "(source_file (symbol) (ERROR))", hasError: true},
		{name: "invalid byte", source: "(a [)", want: "(source_file (list (symbol) (ERROR)))", hasError: true},
		{name: "unclosed list", source: "(a (b", want: `(source_file (list (symbol) (list (symbol) (MISSING ")")) (MISSING ")")))`, hasError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t)

			tree := p.Parse([]byte(tt.source), nil)
			require.NotNil(t, tree)

			assert.Equal(t, tt.want, tree.String())
			assert.Equal(t, tt.hasError, tree.HasError())
			assert.Same(t, sexp.Language(), tree.Language())

			root := tree.RootNode()
			assert.Equal(t, "source_file", root.Type())
			assert.Equal(t, uint32(0), root.StartByte())
			assert.Equal(t, uint32(len(tt.source)), root.EndByte())
			assert.Equal(t, pointAt([]byte(tt.source), uint32(len(tt.source))), root.EndPoint())
		})
	}
}

func TestParseIsDeterministic(t *testing.T) {
	src := []byte("(let ((x 1)\n      (y 2))\n  ; sum\n  (+ x y))\n")
	p := newParser(t)

	first := p.Parse(src, nil)
	second := p.Parse(src, nil)
	require.NotNil(t, first)
	require.NotNil(t, second)

	assert.Equal(t, first.String(), second.String())
	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
	assert.Equal(t, first.RootNode().EndByte(), uint32(len(src)))
}

func TestParseNodePositions(t *testing.T) {
	src := []byte("  (a\n   bc)  ")
	tree := newParser(t).Parse(src, nil)
	require.NotNil(t, tree)

	list := tree.RootNode().NamedChild(0)
	require.False(t, list.IsNull())
	assert.Equal(t, "list", list.Type())
	assert.Equal(t, uint32(2), list.StartByte())
	assert.Equal(t, uint32(11), list.EndByte())
	assert.Equal(t, "(a\n   bc)", list.Content(src))

	bc := list.NamedChild(1)
	assert.Equal(t, "symbol", bc.Type())
	assert.Equal(t, "bc", bc.Content(src))
	assert.Equal(t, syntax.Point{Row: 1, Column: 3}, bc.StartPoint())
	assert.Equal(t, syntax.Point{Row: 1, Column: 5}, bc.EndPoint())

	assert.Equal(t, uint32(4), list.ChildCount())
	assert.Equal(t, uint32(2), list.NamedChildCount())
	assert.Equal(t, "(", list.Child(0).Type())
	assert.False(t, list.Child(0).IsNamed())
	assert.True(t, list.Child(4).IsNull())
	assert.True(t, list.NamedChild(2).IsNull())
}

func TestParseInputMatchesParse(t *testing.T) {
	src := []byte("; numbers\n(sum 1 2.5 (neg 3))\n\"done\" ")
	want := newParser(t).Parse(src, nil)
	require.NotNil(t, want)

	for _, size := range []int{1, 2, 3, 7, 64} {
		p := newParser(t)
		read, offsets := chunkReader(t, src, size)

		tree := p.ParseInput(read, nil)
		require.NotNil(t, tree, "chunk size %d", size)

		assert.Equal(t, want.String(), tree.String())
		assert.Equal(t, want.Fingerprint(), tree.Fingerprint())
		require.NotEmpty(t, *offsets)
		assert.Equal(t, uint32(0), (*offsets)[0], "first read must start at offset 0")

		stats := p.Stats()
		assert.Equal(t, stats.ChunksAcquired, stats.ChunksReleased)
		assert.Equal(t, uint64(len(src)), stats.BytesRead)
	}
}

func TestParseInputNil(t *testing.T) {
	tree := newParser(t).ParseInput(nil, nil)
	require.NotNil(t, tree)
	assert.Equal(t, "(source_file)", tree.String())
}

func TestCancellationDuringRead(t *testing.T) {
	src := []byte(strings.Repeat("(a b c) ", 64))

	for n := 0; n < 8; n++ {
		p := newParser(t)
		flag := &syntax.CancellationFlag{}
		p.SetCancellationFlag(flag)

		calls, afterSet := 0, 0
		read := syntax.ReadFunc(func(offset uint32, _ syntax.Point) []byte {
			calls++
			if flag.IsSet() {
				afterSet++
			}
			if calls == n+1 {
				flag.Set()
			}
			end := min(int(offset)+4, len(src))
			return src[offset:end]
		})

		tree, err := p.ParseInputCtx(context.Background(), read, nil)
		assert.Nil(t, tree)
		assert.ErrorIs(t, err, syntax.ErrCancelled)
		assert.LessOrEqual(t, afterSet, 1, "reads after cancellation with n=%d", n)

		stats := p.Stats()
		assert.Equal(t, syntax.HaltCancelled, stats.Halt)
		assert.Equal(t, stats.ChunksAcquired, stats.ChunksReleased)
	}
}

func TestCancellationBeforeParse(t *testing.T) {
	p := newParser(t)
	p.CancellationFlag().Set()

	calls := 0
	read := syntax.ReadFunc(func(uint32, syntax.Point) []byte {
		calls++
		return nil
	})
	assert.Nil(t, p.ParseInput(read, nil))
	assert.Zero(t, calls)
	assert.True(t, p.CancellationFlag().IsSet(), "the flag is never cleared by the parser")

	p.CancellationFlag().Clear()
	assert.NotNil(t, p.ParseInput(read, nil))
}

func TestSetCancellationFlagNilRestoresOwnFlag(t *testing.T) {
	p := newParser(t)
	own := p.CancellationFlag()
	require.NotNil(t, own)

	shared := &syntax.CancellationFlag{}
	p.SetCancellationFlag(shared)
	assert.Same(t, shared, p.CancellationFlag())

	p.SetCancellationFlag(nil)
	assert.Same(t, own, p.CancellationFlag())
}

func TestTimeout(t *testing.T) {
	src := []byte(strings.Repeat("(alpha (beta 1 2) \"gamma\") ", 20000))

	t.Run("zero never halts", func(t *testing.T) {
		p := newParser(t)
		p.SetTimeoutMicros(0)
		assert.Equal(t, uint64(0), p.TimeoutMicros())
		assert.NotNil(t, p.Parse(src, nil))
	})

	t.Run("tiny timeout halts", func(t *testing.T) {
		p := newParser(t)
		p.SetTimeoutMicros(1)
		assert.Equal(t, uint64(1), p.TimeoutMicros())

		tree, err := p.ParseCtx(context.Background(), src, nil)
		assert.Nil(t, tree)
		assert.ErrorIs(t, err, syntax.ErrTimeout)
		assert.Equal(t, syntax.HaltTimeout, p.Stats().Halt)

		p.SetTimeoutMicros(0)
		tree = p.Parse(src, nil)
		require.NotNil(t, tree)
		assert.True(t, p.Stats().Resumed)
		assert.Equal(t, newParser(t).Parse(src, nil).Fingerprint(), tree.Fingerprint())
	})
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newParser(t)
	tree, err := p.ParseCtx(ctx, []byte("(a)"), nil)
	assert.Nil(t, tree)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, syntax.HaltContext, p.Stats().Halt)
}

func TestResumeAfterCancellation(t *testing.T) {
	src := []byte(strings.Repeat("(x (y 1) \"z\") ; c\n", 40))
	want := newParser(t).Parse(src, nil)
	require.NotNil(t, want)

	p := newParser(t)
	calls := 0
	read := syntax.ReadFunc(func(offset uint32, _ syntax.Point) []byte {
		calls++
		if calls == 5 {
			p.CancellationFlag().Set()
		}
		end := min(int(offset)+16, len(src))
		return src[offset:end]
	})
	require.Nil(t, p.ParseInput(read, nil))
	assert.False(t, p.Stats().Resumed)

	p.CancellationFlag().Clear()
	tree := p.ParseInput(read, nil)
	require.NotNil(t, tree)
	assert.True(t, p.Stats().Resumed)
	assert.Equal(t, want.String(), tree.String())
	assert.Equal(t, want.Fingerprint(), tree.Fingerprint())
}

func TestResetDiscardsPausedParse(t *testing.T) {
	p := newParser(t)
	p.CancellationFlag().Set()
	require.Nil(t, p.Parse([]byte("(a b)"), nil))
	p.CancellationFlag().Clear()

	p.Reset()
	tree := p.Parse([]byte("(c)"), nil)
	require.NotNil(t, tree)
	assert.False(t, p.Stats().Resumed)
	assert.Equal(t, "(source_file (list (symbol)))", tree.String())
}

func TestPausedParseNeedsSameOldTree(t *testing.T) {
	p := newParser(t)
	old := p.Parse([]byte("(a)"), nil)
	require.NotNil(t, old)

	p.CancellationFlag().Set()
	require.Nil(t, p.Parse([]byte("(a)"), old))
	p.CancellationFlag().Clear()

	require.NotNil(t, p.Parse([]byte("(a)"), nil))
	assert.False(t, p.Stats().Resumed)
}

func TestPrintDotGraphs(t *testing.T) {
	p := newParser(t)

	var buf bytes.Buffer
	p.PrintDotGraphs(&buf)
	require.NotNil(t, p.Parse([]byte("(a 1)"), nil))
	out := buf.String()
	assert.Contains(t, out, "digraph stack {")
	assert.Contains(t, out, "open ( @1")
	assert.Contains(t, out, "accept end")

	buf.Reset()
	p.StopPrintingDotGraphs()
	require.NotNil(t, p.Parse([]byte("(a 1)"), nil))
	assert.Zero(t, buf.Len())

	p.PrintDotGraphs(nil)
	require.NotNil(t, p.Parse([]byte("(a 1)"), nil))
	assert.Zero(t, buf.Len())
}

func TestTreePrintDotGraph(t *testing.T) {
	tree := newParser(t).Parse([]byte("(a)"), nil)
	require.NotNil(t, tree)

	var buf bytes.Buffer
	require.NoError(t, tree.PrintDotGraph(&buf))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "digraph tree {"))
	assert.Contains(t, out, `label="source_file"`)
	assert.Contains(t, out, "tree_0 -> tree_1;")
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	p := newParser(t)
	p.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	require.NotNil(t, p.Parse([]byte("(a)"), nil))
	assert.Contains(t, buf.String(), "msg=lex")
	assert.Contains(t, buf.String(), "symbol=symbol")

	buf.Reset()
	p.SetLogger(nil)
	require.NotNil(t, p.Parse([]byte("(a)"), nil))
	assert.Zero(t, buf.Len())
}
