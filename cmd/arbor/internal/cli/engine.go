package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/arbor/cmd/arbor/internal/detect"
	"github.com/albertocavalcante/arbor/internal/log"
	"github.com/albertocavalcante/arbor/pkg/config"
	"github.com/albertocavalcante/arbor/pkg/syntax"
	"github.com/albertocavalcante/arbor/pkg/treesitter"
)

// parserFlags are shared by every command that parses files.
var parserFlags struct {
	backend    string
	language   string
	timeout    uint64
	chunkSize  int
	maxResumes int
}

func addParserFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&parserFlags.backend, "backend", "",
		"Parsing backend (auto, native, cgo)")
	f.StringVarP(&parserFlags.language, "language", "l", "",
		"Parse files as this language instead of guessing from the extension")
	f.Uint64Var(&parserFlags.timeout, "timeout", 0,
		"Halt a parse after this many microseconds (0 = no limit)")
	f.IntVar(&parserFlags.chunkSize, "chunk-size", 0,
		"Stream files through the parser in chunks of this many bytes (0 = read whole files)")
	f.IntVar(&parserFlags.maxResumes, "max-resumes", 0,
		"Resume a timed out parse up to this many times")
}

// applyParserFlags copies the parser flags that were set into c.
func applyParserFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("backend") {
		c.Parser.Backend = parserFlags.backend
	}
	if flags.Changed("timeout") {
		t := parserFlags.timeout
		c.Parser.TimeoutMicros = &t
	}
	if flags.Changed("chunk-size") {
		n := parserFlags.chunkSize
		c.Parser.ChunkSize = &n
	}
	if flags.Changed("jobs") {
		c.Parser.Jobs = parseFlags.jobs
	}
}

func newBackend() (treesitter.Backend, error) {
	typ, err := treesitter.ParseBackendType(cfg.Parser.Backend)
	if err != nil {
		return nil, err
	}
	backend, err := treesitter.NewBackendWithLogger(typ, log.Engine())
	if err != nil {
		return nil, err
	}
	log.Debug("backend ready", "backend", backend.Name(), "languages", len(backend.SupportedLanguages()))
	return backend, nil
}

// expandPaths replaces directory arguments with the parseable files under them.
func expandPaths(args []string) ([]string, error) {
	files, err := detect.Expand(args, cfg.LanguageForPath)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no parseable files in %s", strings.Join(args, ", "))
	}
	return files, nil
}

// languageFor picks the grammar for path.
func languageFor(path string) (treesitter.Language, error) {
	if parserFlags.language != "" {
		return treesitter.Language(parserFlags.language), nil
	}
	lang, ok := cfg.LanguageForPath(path)
	if !ok {
		return "", fmt.Errorf("%s: unknown language, use --language", path)
	}
	return treesitter.Language(lang), nil
}

// newParser creates a parser for path with the configured timeout.
func newParser(backend treesitter.Backend, path string) (treesitter.Parser, error) {
	lang, err := languageFor(path)
	if err != nil {
		return nil, err
	}
	parser, err := backend.NewParser(lang)
	if err != nil {
		return nil, err
	}
	parser.SetTimeoutMicros(cfg.Timeout())
	return parser, nil
}

// parseFile parses path, streaming it in chunks of the given size when
// chunk is positive. A parse halted by the timeout is resumed up to
// --max-resumes times. The returned source is nil when the file was streamed.
func parseFile(ctx context.Context, parser treesitter.Parser, path string, chunk int) (treesitter.Tree, []byte, error) {
	var (
		source []byte
		parse  func() (treesitter.Tree, error)
	)
	if chunk > 0 {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		in := &fileInput{f: f, buf: make([]byte, chunk)}
		parse = func() (treesitter.Tree, error) {
			tree, err := parser.ParseInput(ctx, in, nil)
			if in.err != nil {
				return nil, fmt.Errorf("read %s: %w", path, in.err)
			}
			return tree, err
		}
	} else {
		var err error
		source, err = os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		parse = func() (treesitter.Tree, error) {
			return parser.Parse(ctx, source, nil)
		}
	}

	for attempt := 0; ; attempt++ {
		tree, err := parse()
		if err == nil {
			return tree, source, nil
		}
		if !errors.Is(err, syntax.ErrTimeout) || attempt >= parserFlags.maxResumes {
			parser.Reset()
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		log.Info("parse timed out, resuming", "file", path, "attempt", attempt+1)
	}
}

// fileInput streams a file through the parser with positioned reads.
type fileInput struct {
	f   *os.File
	buf []byte
	err error
}

func (in *fileInput) Read(offset uint32, _ syntax.Point) []byte {
	n, err := in.f.ReadAt(in.buf, int64(offset))
	if err != nil && !errors.Is(err, io.EOF) {
		in.err = err
		return nil
	}
	return in.buf[:n]
}

// statsOf returns the engine counters when parser is backed by the native engine.
func statsOf(parser treesitter.Parser) (syntax.Stats, bool) {
	s, ok := parser.(interface{ Stats() syntax.Stats })
	if !ok {
		return syntax.Stats{}, false
	}
	return s.Stats(), true
}

func fingerprintOf(tree treesitter.Tree) (uint64, bool) {
	fp, ok := tree.(interface{ Fingerprint() uint64 })
	if !ok {
		return 0, false
	}
	return fp.Fingerprint(), true
}
