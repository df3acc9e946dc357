package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/arbor/internal/log"
	"github.com/albertocavalcante/arbor/pkg/syntax"
	"github.com/albertocavalcante/arbor/pkg/treesitter"
)

var reparseFlags struct {
	edits  []string
	verify bool
	stats  bool
}

var reparseCmd = &cobra.Command{
	Use:   "reparse FILE",
	Short: "Apply edits to a file in memory and reparse it incrementally",
	Long: `Parses FILE, applies each --edit to the text and the tree, and reparses
the result with the edited tree as the old tree. The file is not modified.

An edit is START:OLD_END:TEXT. Bytes START up to OLD_END are replaced with
TEXT, which may use Go escapes such as \n. Offsets of later edits refer to
the text produced by the earlier ones.

--verify parses the edited text from scratch as well and fails if the two
trees differ.`,
	Args: cobra.ExactArgs(1),
	RunE: runReparse,
}

func init() {
	addParserFlags(reparseCmd)
	reparseCmd.Flags().StringArrayVarP(&reparseFlags.edits, "edit", "e", nil,
		"Edit to apply, START:OLD_END:TEXT (repeatable)")
	reparseCmd.Flags().BoolVar(&reparseFlags.verify, "verify", false,
		"Compare the incremental tree with a fresh parse")
	reparseCmd.Flags().BoolVar(&reparseFlags.stats, "stats", false,
		"Print how many subtrees were reused (native backend)")

	rootCmd.AddCommand(reparseCmd)
}

// textEdit is a parsed --edit flag.
type textEdit struct {
	start, oldEnd int
	text          string
}

func parseEdit(s string) (textEdit, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return textEdit{}, fmt.Errorf("edit %q: want START:OLD_END:TEXT", s)
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return textEdit{}, fmt.Errorf("edit %q: start: %w", s, err)
	}
	oldEnd, err := strconv.Atoi(parts[1])
	if err != nil {
		return textEdit{}, fmt.Errorf("edit %q: old end: %w", s, err)
	}
	if start < 0 || oldEnd < start {
		return textEdit{}, fmt.Errorf("edit %q: need 0 <= START <= OLD_END", s)
	}
	text := parts[2]
	if unquoted, err := strconv.Unquote(`"` + text + `"`); err == nil {
		text = unquoted
	}
	return textEdit{start: start, oldEnd: oldEnd, text: text}, nil
}

// apply returns the edited text and the matching InputEdit.
func (e textEdit) apply(source []byte) ([]byte, treesitter.InputEdit, error) {
	if e.oldEnd > len(source) {
		return nil, treesitter.InputEdit{}, fmt.Errorf("edit %d:%d is past the end of the text (%d bytes)", e.start, e.oldEnd, len(source))
	}
	edited := make([]byte, 0, len(source)-(e.oldEnd-e.start)+len(e.text))
	edited = append(edited, source[:e.start]...)
	edited = append(edited, e.text...)
	edited = append(edited, source[e.oldEnd:]...)

	newEnd := e.start + len(e.text)
	return edited, treesitter.InputEdit{
		StartByte:   uint32(e.start),
		OldEndByte:  uint32(e.oldEnd),
		NewEndByte:  uint32(newEnd),
		StartPoint:  pointAt(source, e.start),
		OldEndPoint: pointAt(source, e.oldEnd),
		NewEndPoint: pointAt(edited, newEnd),
	}, nil
}

// pointAt returns the row and byte column of offset in text.
func pointAt(text []byte, offset int) syntax.Point {
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

func runReparse(cmd *cobra.Command, args []string) error {
	path := args[0]
	edits := make([]textEdit, 0, len(reparseFlags.edits))
	for _, s := range reparseFlags.edits {
		e, err := parseEdit(s)
		if err != nil {
			return err
		}
		edits = append(edits, e)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	backend, err := newBackend()
	if err != nil {
		return err
	}
	defer backend.Close()

	parser, err := newParser(backend, path)
	if err != nil {
		return err
	}
	defer parser.Close()

	ctx := cmd.Context()
	tree, err := parser.Parse(ctx, source, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer tree.Close()

	for _, e := range edits {
		var edit treesitter.InputEdit
		source, edit, err = e.apply(source)
		if err != nil {
			return err
		}
		tree.Edit(edit)
		log.Debug("edit applied", "start", edit.StartByte, "old_end", edit.OldEndByte, "new_end", edit.NewEndByte)
	}

	newTree, err := parser.Parse(ctx, source, tree)
	if err != nil {
		return fmt.Errorf("%s: reparse: %w", path, err)
	}
	defer newTree.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, newTree.RootNode().String())
	if stats, ok := statsOf(parser); ok && reparseFlags.stats {
		fmt.Fprintf(out, "reused %d subtrees\n", stats.ReusedSubtrees)
	}

	if reparseFlags.verify {
		fresh, err := parser.Parse(ctx, source, nil)
		if err != nil {
			return fmt.Errorf("%s: fresh parse: %w", path, err)
		}
		defer fresh.Close()
		if fresh.RootNode().String() != newTree.RootNode().String() {
			return fmt.Errorf("%s: incremental tree differs from a fresh parse:\n  incremental: %s\n  fresh:       %s",
				path, newTree.RootNode().String(), fresh.RootNode().String())
		}
		fmt.Fprintln(out, "verified: incremental tree matches a fresh parse")
	}
	return nil
}
