package treesitter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/albertocavalcante/arbor/pkg/syntax"
)

// testBackend runs tests against a specific backend.
func testBackend(t *testing.T, backend Backend, lang Language, source string, expectedRootType string) {
	t.Helper()

	t.Logf("Testing backend %s with language %s", backend.Name(), lang)

	// Test backend info
	t.Run("BackendInfo", func(t *testing.T) {
		if backend.Name() == "" {
			t.Error("backend name should not be empty")
		}
		langs := backend.SupportedLanguages()
		if len(langs) == 0 {
			t.Error("backend should support at least one language")
		}
	})

	// Test language support
	t.Run("SupportsLanguage", func(t *testing.T) {
		if !backend.SupportsLanguage(lang) {
			t.Errorf("backend %s should support language %s", backend.Name(), lang)
		}
	})

	// Test parser creation
	parser, err := backend.NewParser(lang)
	if err != nil {
		t.Fatalf("NewParser(%s) failed: %v", lang, err)
	}
	defer parser.Close()

	if parser.Language() != lang {
		t.Errorf("parser.Language() = %s, want %s", parser.Language(), lang)
	}

	// Test parsing
	t.Run("Parse", func(t *testing.T) {
		tree, err := parser.Parse(context.Background(), []byte(source), nil)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		defer tree.Close()

		if string(tree.Source()) != source {
			t.Errorf("tree.Source() = %q, want %q", string(tree.Source()), source)
		}

		root := tree.RootNode()
		if root == nil || root.IsNull() {
			t.Fatal("root node should not be null")
		}
		if root.Type() != expectedRootType {
			t.Errorf("root.Type() = %q, want %q", root.Type(), expectedRootType)
		}
		if root.ChildCount() == 0 {
			t.Error("root should have children")
		}
		if tree.HasError() {
			t.Errorf("unexpected error in tree: %s", root.String())
		}
		if root.Child(root.ChildCount()) != nil {
			t.Error("out of range Child should be nil")
		}
	})

	// Test streaming input
	t.Run("ParseInput", func(t *testing.T) {
		input := syntax.ReadFunc(func(offset uint32, _ Point) []byte {
			if int(offset) >= len(source) {
				return nil
			}
			end := min(int(offset)+3, len(source))
			return []byte(source[offset:end])
		})
		tree, err := parser.ParseInput(context.Background(), input, nil)
		if err != nil {
			t.Fatalf("ParseInput failed: %v", err)
		}
		defer tree.Close()

		want, err := parser.ParseString(context.Background(), source)
		if err != nil {
			t.Fatalf("ParseString failed: %v", err)
		}
		defer want.Close()

		if got := tree.RootNode().String(); got != want.RootNode().String() {
			t.Errorf("ParseInput tree = %s, want %s", got, want.RootNode().String())
		}
	})

	// Test cancellation
	t.Run("Cancelled", func(t *testing.T) {
		flag := &syntax.CancellationFlag{}
		flag.Set()
		parser.SetCancellationFlag(flag)
		defer parser.SetCancellationFlag(nil)

		_, err := parser.ParseString(context.Background(), source)
		if !errors.Is(err, syntax.ErrCancelled) {
			t.Errorf("Parse with cancelled flag: err = %v, want ErrCancelled", err)
		}
		parser.Reset()
	})
}

func TestNativeBackend(t *testing.T) {
	backend, err := NewNativeBackend(nil)
	if err != nil {
		t.Fatalf("NewNativeBackend failed: %v", err)
	}
	defer backend.Close()

	testBackend(t, backend, SExp, "(define (sq x) (* x x))\n", "source_file")
}

func TestCGOBackend(t *testing.T) {
	backend, err := NewCGOBackend()
	if err != nil {
		t.Skipf("CGO backend not available: %v", err)
	}
	defer backend.Close()

	testBackend(t, backend, Go, "package main\n\nfunc main() {}\n", "source_file")
}

// newCGOParser returns a Go parser from the CGO backend, skipping the test
// in builds without CGO.
func newCGOParser(t *testing.T) Parser {
	t.Helper()
	backend, err := NewCGOBackend()
	if err != nil {
		t.Skipf("CGO backend not available: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })

	parser, err := backend.NewParser(Go)
	if err != nil {
		t.Fatalf("NewParser failed: %v", err)
	}
	t.Cleanup(func() { _ = parser.Close() })
	return parser
}

// chunked serves src four bytes at a time and counts the reads.
func chunked(src []byte, calls *int) syntax.ReadFunc {
	return func(offset uint32, _ syntax.Point) []byte {
		*calls++
		if int(offset) >= len(src) {
			return nil
		}
		return src[offset:min(int(offset)+4, len(src))]
	}
}

func TestCGOParseInputStreams(t *testing.T) {
	parser := newCGOParser(t)
	src := []byte("package main\n\nfunc main() {\n\tprintln(1)\n}\n")

	calls := 0
	streamed, err := parser.ParseInput(context.Background(), chunked(src, &calls), nil)
	if err != nil {
		t.Fatalf("ParseInput failed: %v", err)
	}
	if calls < len(src)/4 {
		t.Errorf("expected at least %d reads of 4 bytes, got %d", len(src)/4, calls)
	}
	if streamed.Source() != nil {
		t.Error("streamed tree should not keep a source")
	}

	whole, err := parser.Parse(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if streamed.RootNode().String() != whole.RootNode().String() {
		t.Errorf("streamed = %s, whole = %s", streamed.RootNode().String(), whole.RootNode().String())
	}
}

func TestCGOCancellationDuringRead(t *testing.T) {
	parser := newCGOParser(t)
	src := []byte("package main\n\n" + strings.Repeat("var x = 1\n", 32))

	for n := range 8 {
		flag := &syntax.CancellationFlag{}
		parser.SetCancellationFlag(flag)

		calls, afterSet := 0, 0
		read := syntax.ReadFunc(func(offset uint32, _ syntax.Point) []byte {
			calls++
			if flag.IsSet() {
				afterSet++
			}
			if calls == n+1 {
				flag.Set()
			}
			if int(offset) >= len(src) {
				return nil
			}
			return src[offset:min(int(offset)+4, len(src))]
		})

		tree, err := parser.ParseInput(context.Background(), read, nil)
		if tree != nil || !errors.Is(err, syntax.ErrCancelled) {
			t.Errorf("n=%d: got tree=%v err=%v, want ErrCancelled", n, tree != nil, err)
		}
		if afterSet > 1 {
			t.Errorf("n=%d: %d reads after cancellation", n, afterSet)
		}
		parser.Reset()
	}
	parser.SetCancellationFlag(nil)
}

func TestNativeIncrementalParse(t *testing.T) {
	parser := newNativeParser(t)
	ctx := context.Background()

	old := "(a) (b)"
	tree, err := parser.ParseString(ctx, old)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}

	tree.Edit(InputEdit{
		StartByte:   7,
		OldEndByte:  7,
		NewEndByte:  11,
		StartPoint:  Point{Row: 0, Column: 7},
		OldEndPoint: Point{Row: 0, Column: 7},
		NewEndPoint: Point{Row: 0, Column: 11},
	})

	updated := []byte(old + " (c)")
	newTree, err := parser.Parse(ctx, updated, tree)
	if err != nil {
		t.Fatalf("incremental Parse failed: %v", err)
	}
	stats := parser.(interface{ Stats() syntax.Stats }).Stats()
	if stats.ReusedSubtrees == 0 {
		t.Error("incremental parse should reuse subtrees")
	}

	fresh, err := parser.Parse(ctx, updated, nil)
	if err != nil {
		t.Fatalf("fresh Parse failed: %v", err)
	}

	if newTree.RootNode().String() != fresh.RootNode().String() {
		t.Errorf("incremental = %s, fresh = %s", newTree.RootNode().String(), fresh.RootNode().String())
	}

	fp, ok := newTree.(interface{ Fingerprint() uint64 })
	if !ok {
		t.Fatal("native tree should expose Fingerprint")
	}
	if fp.Fingerprint() != fresh.(interface{ Fingerprint() uint64 }).Fingerprint() {
		t.Error("incremental and fresh fingerprints differ")
	}

	if parser.(interface{ Stats() syntax.Stats }).Stats().ReusedSubtrees != 0 {
		t.Error("a parse without an old tree should reuse nothing")
	}
}

func TestForeignTree(t *testing.T) {
	parser := newNativeParser(t)

	_, err := parser.Parse(context.Background(), []byte("(a)"), foreignTree{})
	var foreign ErrForeignTree
	if !errors.As(err, &foreign) {
		t.Fatalf("err = %v, want ErrForeignTree", err)
	}
	if foreign.Backend != "native" {
		t.Errorf("foreign.Backend = %q, want native", foreign.Backend)
	}
}

func TestNativeTimeout(t *testing.T) {
	parser := newNativeParser(t)
	parser.SetTimeoutMicros(1)
	if parser.TimeoutMicros() != 1 {
		t.Errorf("TimeoutMicros() = %d, want 1", parser.TimeoutMicros())
	}

	source := strings.Repeat("(a (b c) 12 \"s\") ", 20000)
	_, err := parser.ParseString(context.Background(), source)
	if !errors.Is(err, syntax.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}

	parser.SetTimeoutMicros(0)
	tree, err := parser.ParseString(context.Background(), source)
	if err != nil {
		t.Fatalf("resumed parse failed: %v", err)
	}
	if got := tree.RootNode().NamedChildCount(); got != 20000 {
		t.Errorf("NamedChildCount() = %d, want 20000", got)
	}
}

func TestNativeContextCancelled(t *testing.T) {
	parser := newNativeParser(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := parser.ParseString(ctx, "(a)")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestClosedParser(t *testing.T) {
	parser := newNativeParser(t)
	if err := parser.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	_, err := parser.ParseString(context.Background(), "(a)")
	if !errors.As(err, &ErrParserClosed{}) {
		t.Errorf("err = %v, want ErrParserClosed", err)
	}
}

func TestClosedBackend(t *testing.T) {
	backend, err := NewNativeBackend(nil)
	if err != nil {
		t.Fatalf("NewNativeBackend failed: %v", err)
	}
	_ = backend.Close()

	_, err = backend.NewParser(SExp)
	var closed ErrBackendClosed
	if !errors.As(err, &closed) {
		t.Fatalf("err = %v, want ErrBackendClosed", err)
	}
	if closed.Backend != "native" {
		t.Errorf("closed.Backend = %q, want native", closed.Backend)
	}
}

func TestUnsupportedLanguage(t *testing.T) {
	backend, err := NewNativeBackend(nil)
	if err != nil {
		t.Fatalf("NewNativeBackend failed: %v", err)
	}
	defer backend.Close()

	_, err = backend.NewParser(Java)
	var unsupported ErrLanguageNotSupported
	if !errors.As(err, &unsupported) {
		t.Fatalf("err = %v, want ErrLanguageNotSupported", err)
	}
	if unsupported.Language != Java {
		t.Errorf("unsupported.Language = %s, want java", unsupported.Language)
	}
}

func TestParseBackendType(t *testing.T) {
	tests := []struct {
		in      string
		want    BackendType
		wantErr bool
	}{
		{in: "", want: BackendAuto},
		{in: "auto", want: BackendAuto},
		{in: " Native ", want: BackendNative},
		{in: "CGO", want: BackendCGO},
		{in: "wasm", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseBackendType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBackendType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBackendType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewBackendFromEnv(t *testing.T) {
	t.Run("native", func(t *testing.T) {
		t.Setenv(EnvVarBackend, "native")
		b, err := NewBackendFromEnv()
		if err != nil {
			t.Fatalf("NewBackendFromEnv failed: %v", err)
		}
		defer b.Close()
		if b.Name() != "native" {
			t.Errorf("Name() = %q, want native", b.Name())
		}
	})

	t.Run("default", func(t *testing.T) {
		t.Setenv(EnvVarBackend, "")
		b, err := NewBackendFromEnv()
		if err != nil {
			t.Fatalf("NewBackendFromEnv failed: %v", err)
		}
		defer b.Close()
		if b.Name() != "auto" {
			t.Errorf("Name() = %q, want auto", b.Name())
		}
	})

	t.Run("invalid", func(t *testing.T) {
		t.Setenv(EnvVarBackend, "bogus")
		if _, err := NewBackendFromEnv(); err == nil {
			t.Error("expected error for invalid backend")
		}
	})
}

func TestAutoBackend(t *testing.T) {
	backend := MustNewBackend(BackendAuto)
	defer backend.Close()

	if !backend.SupportsLanguage(SExp) {
		t.Fatal("auto backend should support sexp")
	}
	parser, err := backend.NewParser(SExp)
	if err != nil {
		t.Fatalf("NewParser failed: %v", err)
	}
	defer parser.Close()
	if _, ok := parser.(*nativeParser); !ok {
		t.Errorf("sexp parser is %T, want *nativeParser", parser)
	}

	cgoAvailable := false
	for _, typ := range AvailableBackends() {
		if typ == BackendCGO {
			cgoAvailable = true
		}
	}
	if backend.SupportsLanguage(Go) != cgoAvailable {
		t.Errorf("SupportsLanguage(go) = %v, want %v", backend.SupportsLanguage(Go), cgoAvailable)
	}
}

func TestAvailableBackends(t *testing.T) {
	available := AvailableBackends()
	if len(available) == 0 || available[0] != BackendNative {
		t.Errorf("AvailableBackends() = %v, want native first", available)
	}
}

func TestGetBackendInfo(t *testing.T) {
	for _, typ := range []BackendType{BackendNative, BackendCGO, BackendAuto} {
		info := GetBackendInfo(typ)
		if info.Type != typ {
			t.Errorf("GetBackendInfo(%s).Type = %s", typ, info.Type)
		}
		if len(info.SupportedLanguages) == 0 {
			t.Errorf("GetBackendInfo(%s) lists no languages", typ)
		}
	}
	if info := GetBackendInfo("unknown"); info.Description != "Unknown backend type" {
		t.Errorf("unexpected info for unknown backend: %+v", info)
	}
}

func TestWalkAndFindByType(t *testing.T) {
	parser := newNativeParser(t)

	tree, err := parser.ParseString(context.Background(), "(a (b 1) 2)")
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}

	var types []string
	var depths []int
	Walk(tree, func(n Node, depth int) bool {
		if n.IsNamed() {
			types = append(types, n.Type())
			depths = append(depths, depth)
		}
		return true
	})
	wantTypes := []string{"source_file", "list", "symbol", "list", "symbol", "number", "number"}
	wantDepths := []int{0, 1, 2, 2, 3, 3, 2}
	if strings.Join(types, ",") != strings.Join(wantTypes, ",") {
		t.Errorf("walk types = %v, want %v", types, wantTypes)
	}
	for i := range wantDepths {
		if i < len(depths) && depths[i] != wantDepths[i] {
			t.Errorf("depth of %s = %d, want %d", types[i], depths[i], wantDepths[i])
		}
	}

	lists := FindByType(tree, "list")
	if len(lists) != 2 {
		t.Fatalf("FindByType(list) found %d nodes, want 2", len(lists))
	}
	if got := lists[1].Content(tree.Source()); got != "(b 1)" {
		t.Errorf("inner list content = %q, want %q", got, "(b 1)")
	}

	if len(Children(tree.RootNode())) != 1 {
		t.Error("root should have one child")
	}
	if Children(nil) != nil {
		t.Error("Children(nil) should be nil")
	}
}

func TestHasErrors(t *testing.T) {
	parser := newNativeParser(t)

	tests := []struct {
		source string
		want   bool
	}{
		{source: "(a b)", want: false},
		{source: "(a b", want: true},
		{source: ")", want: true},
	}
	for _, tt := range tests {
		tree, err := parser.ParseString(context.Background(), tt.source)
		if err != nil {
			t.Fatalf("ParseString(%q) failed: %v", tt.source, err)
		}
		if got := HasErrors(tree); got != tt.want {
			t.Errorf("HasErrors(%q) = %v, want %v", tt.source, got, tt.want)
		}
		if got := tree.HasError(); got != tt.want {
			t.Errorf("HasError(%q) = %v, want %v", tt.source, got, tt.want)
		}
	}
}

func newNativeParser(t *testing.T) Parser {
	t.Helper()
	backend, err := NewNativeBackend(nil)
	if err != nil {
		t.Fatalf("NewNativeBackend failed: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })

	parser, err := backend.NewParser(SExp)
	if err != nil {
		t.Fatalf("NewParser failed: %v", err)
	}
	t.Cleanup(func() { _ = parser.Close() })
	return parser
}

// foreignTree is a Tree that no backend produced.
type foreignTree struct{ Tree }
