// Package syntax is an incremental parsing engine. It turns source text into
// concrete syntax trees using table-driven grammars, and reuses the unchanged
// parts of a previous tree after the text is edited.
//
// # Quick Start
//
//	parser := syntax.NewParser()
//	if err := parser.SetLanguage(sexp.Language()); err != nil {
//	    log.Fatal(err)
//	}
//
//	tree := parser.Parse([]byte("(add 1 2)"), nil)
//	fmt.Println(tree.RootNode()) // (source_file (list (symbol) (number) (number)))
//
// # Incremental Parsing
//
// After changing the text, describe the change with Tree.Edit and pass the
// edited tree back to the parser:
//
//	tree.Edit(syntax.InputEdit{StartByte: 8, OldEndByte: 8, NewEndByte: 10, ...})
//	tree = parser.Parse(newText, tree)
//
// Subtrees that do not overlap an edit, including the bytes the lexer looked
// at past their end, are shared with the new tree.
//
// # Streaming Input
//
// ParseInput reads text through an Input in increasing offset order. Each
// answer is copied into a pooled chunk that is released once the lexer has
// moved past it and on every return path.
//
// # Timeouts and Cancellation
//
// A parse stops when its timeout elapses or its CancellationFlag is set. The
// flag and the clock are checked after every Input read and every hundred
// parse operations. A halted parse returns nil and keeps its progress: calling
// Parse again with the same arguments resumes it, Reset discards it.
//
// # Thread Safety
//
// Parsers must not be used concurrently. Trees are safe to read from many
// goroutines as long as none of them calls Edit. Each TreeCursor belongs to
// a single goroutine.
package syntax
