package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/arbor/pkg/treesitter"
)

var walkFlags struct {
	nodeType string
	named    bool
}

var walkCmd = &cobra.Command{
	Use:   "walk FILE",
	Short: "Print every node of a file's syntax tree with its position",
	Long: `Walks the syntax tree of FILE with a tree cursor and prints one line per
node: its type, its [row, column] range and, for leaves, its text.

With --type only nodes of that type are printed, without indentation.`,
	Args: cobra.ExactArgs(1),
	RunE: runWalk,
}

func init() {
	addParserFlags(walkCmd)
	walkCmd.Flags().StringVarP(&walkFlags.nodeType, "type", "t", "",
		"Only print nodes of this type")
	walkCmd.Flags().BoolVar(&walkFlags.named, "named", false,
		"Skip anonymous nodes such as punctuation, except missing ones")

	rootCmd.AddCommand(walkCmd)
}

func runWalk(cmd *cobra.Command, args []string) error {
	path := args[0]

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

	// Leaves are printed with their text, so the file is read whole.
	tree, source, err := parseFile(cmd.Context(), parser, path, 0)
	if err != nil {
		return err
	}
	defer tree.Close()

	out := cmd.OutOrStdout()
	if walkFlags.nodeType != "" {
		for _, n := range treesitter.FindByType(tree, walkFlags.nodeType) {
			printNode(out, n, source, 0)
		}
		return nil
	}

	treesitter.Walk(tree, func(n treesitter.Node, depth int) bool {
		if !walkFlags.named || n.IsNamed() || n.IsMissing() || n.IsError() {
			printNode(out, n, source, depth)
		}
		return true
	})
	return nil
}

func printNode(w io.Writer, n treesitter.Node, source []byte, depth int) {
	start, end := n.StartPoint(), n.EndPoint()
	line := fmt.Sprintf("%s%s [%d, %d] - [%d, %d]",
		strings.Repeat("  ", depth), nodeLabel(n), start.Row, start.Column, end.Row, end.Column)
	if n.ChildCount() == 0 && !n.IsMissing() {
		line += fmt.Sprintf(" %q", n.Content(source))
	}
	fmt.Fprintln(w, line)
}

func nodeLabel(n treesitter.Node) string {
	switch {
	case n.IsMissing():
		return "MISSING " + n.Type()
	case n.IsError():
		return "ERROR"
	default:
		return n.Type()
	}
}
