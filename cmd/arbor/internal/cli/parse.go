package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/albertocavalcante/arbor/internal/log"
	"github.com/albertocavalcante/arbor/pkg/syntax"
	"github.com/albertocavalcante/arbor/pkg/treesitter"
)

var parseFlags struct {
	jobs        int
	dot         string
	fingerprint bool
	stats       bool
}

var parseCmd = &cobra.Command{
	Use:   "parse PATH...",
	Short: "Parse files and print their syntax trees",
	Long: `Parses each file and prints its syntax tree as an S-expression.

Files are parsed concurrently (see --jobs), one parser per file; the output
keeps the order of the arguments. The language is picked from the file
extension unless --language is given. A directory stands for every file
under it with a known extension; hidden and build output directories are
skipped.

The --dot flag writes the parser's stack after every action, followed by
the finished tree, as Graphviz DOT to the given file ("-" for stdout).
It needs a single file and the native backend.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	addParserFlags(parseCmd)
	parseCmd.Flags().IntVarP(&parseFlags.jobs, "jobs", "j", 4,
		"Number of files to parse concurrently")
	parseCmd.Flags().StringVar(&parseFlags.dot, "dot", "",
		"Write parser DOT graphs to this file (- for stdout)")
	parseCmd.Flags().BoolVar(&parseFlags.fingerprint, "fingerprint", false,
		"Print a structural hash of each tree")
	parseCmd.Flags().BoolVar(&parseFlags.stats, "stats", false,
		"Print parser counters for each file (native backend)")

	rootCmd.AddCommand(parseCmd)
}

// parseResult is what one file contributes to the output.
type parseResult struct {
	path        string
	tree        string
	hasError    bool
	fingerprint uint64
	hasFP       bool
	stats       syntax.Stats
	hasStats    bool
}

func runParse(cmd *cobra.Command, args []string) error {
	args, err := expandPaths(args)
	if err != nil {
		return err
	}
	if parseFlags.dot != "" && len(args) != 1 {
		return fmt.Errorf("--dot needs exactly one file, got %d", len(args))
	}

	backend, err := newBackend()
	if err != nil {
		return err
	}
	defer backend.Close()

	results := make([]parseResult, len(args))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(cfg.Parser.Jobs, 1))
	for i, path := range args {
		g.Go(func() error {
			r, err := parseOne(ctx, cmd, backend, path)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	withErrors := 0
	for _, r := range results {
		fmt.Fprintf(out, "%s: %s\n", r.path, r.tree)
		if parseFlags.fingerprint && r.hasFP {
			fmt.Fprintf(out, "%s: fingerprint %016x\n", r.path, r.fingerprint)
		}
		if parseFlags.stats && r.hasStats {
			fmt.Fprintf(out, "%s: tokens=%d reads=%d bytes=%d\n",
				r.path, r.stats.Tokens, r.stats.Reads, r.stats.BytesRead)
		}
		if r.hasError {
			withErrors++
		}
	}
	if withErrors > 0 {
		log.Warn("syntax errors found", "files", withErrors)
	}
	return nil
}

func parseOne(ctx context.Context, cmd *cobra.Command, backend treesitter.Backend, path string) (parseResult, error) {
	parser, err := newParser(backend, path)
	if err != nil {
		return parseResult{}, err
	}
	defer parser.Close()

	var dot io.Writer
	if parseFlags.dot != "" {
		w, closeDot, err := openDot(cmd, parseFlags.dot)
		if err != nil {
			return parseResult{}, err
		}
		defer closeDot()
		p, ok := parser.(interface{ PrintDotGraphs(io.Writer) })
		if !ok {
			return parseResult{}, fmt.Errorf("--dot needs the native backend, %s uses %T", path, parser)
		}
		p.PrintDotGraphs(w)
		dot = w
	}

	tree, _, err := parseFile(ctx, parser, path, cfg.ChunkSize())
	if err != nil {
		return parseResult{}, err
	}
	defer tree.Close()

	if dot != nil {
		if t, ok := tree.(interface{ PrintDotGraph(io.Writer) error }); ok {
			if err := t.PrintDotGraph(dot); err != nil {
				return parseResult{}, err
			}
		}
	}

	r := parseResult{
		path:     path,
		tree:     tree.RootNode().String(),
		hasError: tree.HasError(),
	}
	r.fingerprint, r.hasFP = fingerprintOf(tree)
	r.stats, r.hasStats = statsOf(parser)
	log.Info("parsed", "file", path, "language", parser.Language(), "errors", r.hasError)
	log.Trace("tree", "file", path, "sexp", r.tree)
	return r, nil
}

// openDot opens the DOT destination; "-" is the command's output.
func openDot(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "-" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
