package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/albertocavalcante/arbor/internal/log"
	"github.com/albertocavalcante/arbor/pkg/syntax"
	"github.com/albertocavalcante/arbor/pkg/treesitter"
)

// DefaultDebounce is used when Config.Debounce is not positive.
const DefaultDebounce = 100 * time.Millisecond

// Config configures the watcher.
type Config struct {
	Files    []string
	Backend  treesitter.Backend
	Language func(path string) (treesitter.Language, error)
	Timeout  uint64 // microseconds per parse
	Debounce time.Duration
	Logger   *Logger
}

// document is the last parsed state of one watched file.
type document struct {
	path   string
	abs    string
	parser treesitter.Parser
	tree   treesitter.Tree
	source []byte
}

// Watcher keeps a syntax tree per file and reparses it incrementally when
// the file changes.
type Watcher struct {
	config    Config
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	logger    *Logger

	// mu serializes reparses; a parser must not be used concurrently.
	mu   sync.Mutex
	docs map[string]*document
	ctx  context.Context
}

// New parses every file once and prepares to watch them.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Files) == 0 {
		return nil, errors.New("no files to watch")
	}
	if cfg.Logger == nil {
		cfg.Logger = NewLogger(LoggerConfig{})
	}

	w := &Watcher{
		config: cfg,
		logger: cfg.Logger,
		docs:   make(map[string]*document, len(cfg.Files)),
		ctx:    context.Background(),
	}
	for _, path := range cfg.Files {
		if err := w.open(path); err != nil {
			w.closeDocs()
			return nil, err
		}
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.closeDocs()
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fsWatcher = fsWatcher
	return w, nil
}

func (w *Watcher) open(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	lang, err := w.config.Language(path)
	if err != nil {
		return err
	}
	parser, err := w.config.Backend.NewParser(lang)
	if err != nil {
		return err
	}
	parser.SetTimeoutMicros(w.config.Timeout)

	source, err := os.ReadFile(abs)
	if err != nil {
		_ = parser.Close()
		return err
	}
	tree, err := parser.Parse(w.ctx, source, nil)
	if err != nil {
		_ = parser.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	w.docs[abs] = &document{path: path, abs: abs, parser: parser, tree: tree, source: source}
	return nil
}

// Run watches until ctx is cancelled. Editors often replace a file instead
// of writing it in place, so the parent directories are watched.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	window := w.config.Debounce
	if window <= 0 {
		window = DefaultDebounce
	}
	w.debouncer = NewDebouncer(window, w.reparse)
	defer w.debouncer.Stop()

	var dirs []string
	for abs := range w.docs {
		if dir := filepath.Dir(abs); !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	for _, dir := range dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			if isWatchLimitError(err) {
				return fmt.Errorf("%w for %s: %w", ErrWatchLimitReached, dir, err)
			}
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	w.logger.Ready(w.Files())

	for {
		select {
		case <-ctx.Done():
			w.logger.Shutdown()
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(err)
		}
	}
}

// Files returns the watched paths as given, sorted.
func (w *Watcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	files := make([]string, 0, len(w.docs))
	for _, d := range w.docs {
		files = append(files, d.path)
	}
	slices.Sort(files)
	return files
}

// Tree returns the current tree of a watched file.
func (w *Watcher) Tree(path string) (treesitter.Tree, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	d, ok := w.docs[abs]
	if !ok {
		return nil, false
	}
	return d.tree, true
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	w.mu.Lock()
	_, ok := w.docs[abs]
	w.mu.Unlock()
	if ok {
		log.Component("watch").Debug("file changed", "path", abs, "op", event.Op.String())
		w.debouncer.Add(abs)
	}
}

// reparse is called when the debouncer flushes.
func (w *Watcher) reparse(paths []string) {
	slices.Sort(paths)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ctx.Err() != nil {
		return
	}
	for _, abs := range paths {
		d := w.docs[abs]
		if d == nil {
			continue
		}
		result, err := w.reparseDoc(d)
		if err != nil {
			w.logger.Error(err)
			continue
		}
		if result != nil {
			w.logger.Reparsed(*result)
		}
	}
}

// reparseDoc applies the difference between the stored and the current
// text to the old tree and reparses. It returns nil when nothing changed.
func (w *Watcher) reparseDoc(d *document) (*Result, error) {
	source, err := os.ReadFile(d.abs)
	if err != nil {
		return nil, err
	}
	edit, changed := Diff(d.source, source)
	if !changed {
		return nil, nil
	}

	// The edited tree matches source from here on, even if the parse fails.
	d.tree.Edit(edit)
	d.source = source

	start := time.Now()
	tree, err := d.parser.Parse(w.ctx, source, d.tree)
	if err != nil {
		d.parser.Reset()
		return nil, fmt.Errorf("%s: %w", d.path, err)
	}
	_ = d.tree.Close()
	d.tree = tree

	r := &Result{
		Path:     d.path,
		Changed:  edit.OldEndByte - edit.StartByte,
		HasError: tree.HasError(),
		Duration: time.Since(start),
	}
	if s, ok := d.parser.(interface{ Stats() syntax.Stats }); ok {
		r.Reused = s.Stats().ReusedSubtrees
	}
	if w.logger.verbose || w.logger.jsonOut {
		r.Tree = tree.RootNode().String()
	}
	return r, nil
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closeDocs()
	w.mu.Unlock()
	if w.fsWatcher != nil {
		return w.fsWatcher.Close()
	}
	return nil
}

func (w *Watcher) closeDocs() {
	for abs, d := range w.docs {
		_ = d.tree.Close()
		_ = d.parser.Close()
		delete(w.docs, abs)
	}
}

// isWatchLimitError checks if an error is due to inotify watch limits.
func isWatchLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "no space left on device") ||
		strings.Contains(errStr, "too many open files")
}

// ErrWatchLimitReached is returned when the OS watch limit is exceeded.
var ErrWatchLimitReached = errors.New("filesystem watch limit reached")
