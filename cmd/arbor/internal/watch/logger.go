package watch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// Logger formats watch mode output as text or JSON lines.
type Logger struct {
	mu      sync.Mutex
	writer  io.Writer
	isTTY   bool
	verbose bool
	noColor bool
	jsonOut bool
	stats   Stats
}

// Stats tracks statistics for the watch session.
type Stats struct {
	Reparses   int
	Reused     int
	ErrorCount int
	StartTime  time.Time
}

// LoggerConfig configures the logger.
type LoggerConfig struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
	JSON    bool
}

// Result is the outcome of reparsing one file.
type Result struct {
	Path     string
	Reused   int
	Changed  uint32 // bytes replaced by the edit
	HasError bool
	Duration time.Duration
	Tree     string // set in verbose mode
}

// NewLogger creates a new logger with the given configuration.
func NewLogger(cfg LoggerConfig) *Logger {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	isTTY := false
	if f, ok := writer.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}

	return &Logger{
		writer:  writer,
		isTTY:   isTTY,
		verbose: cfg.Verbose,
		noColor: cfg.NoColor,
		jsonOut: cfg.JSON,
		stats:   Stats{StartTime: time.Now()},
	}
}

// Ready logs that the initial parses are done.
func (l *Logger) Ready(files []string) {
	if l.jsonOut {
		l.writeJSON(map[string]any{"event": "ready", "files": files})
		return
	}
	l.printf("arbor: watching %d files\n", len(files))
	l.printf("arbor: ready\n")
}

// Reparsed logs one incremental reparse.
func (l *Logger) Reparsed(r Result) {
	l.mu.Lock()
	l.stats.Reparses++
	l.stats.Reused += r.Reused
	l.mu.Unlock()

	if l.jsonOut {
		event := map[string]any{
			"event":     "reparsed",
			"path":      r.Path,
			"reused":    r.Reused,
			"changed":   r.Changed,
			"has_error": r.HasError,
			"micros":    r.Duration.Microseconds(),
		}
		if r.Tree != "" {
			event["tree"] = r.Tree
		}
		l.writeJSON(event)
		return
	}

	mark := l.colorize("✓", colorGreen)
	if r.HasError {
		mark = l.colorize("!", colorYellow)
	}
	l.printf("[%s] %s %s reparsed in %s, %d subtrees reused\n",
		l.timestamp(), mark, r.Path, r.Duration.Round(time.Microsecond), r.Reused)
	if l.verbose && r.Tree != "" {
		l.printf("    %s\n", r.Tree)
	}
}

// Error logs an error.
func (l *Logger) Error(err error) {
	l.mu.Lock()
	l.stats.ErrorCount++
	l.mu.Unlock()

	if l.jsonOut {
		l.writeJSON(map[string]any{"event": "error", "error": err.Error()})
		return
	}
	l.printf("[%s] %s error: %v\n", l.timestamp(), l.colorize("✗", colorRed), err)
}

// Shutdown logs the shutdown message with statistics.
func (l *Logger) Shutdown() {
	stats := l.Stats()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":    "shutdown",
			"reparses": stats.Reparses,
			"reused":   stats.Reused,
			"errors":   stats.ErrorCount,
			"duration": time.Since(stats.StartTime).String(),
		})
		return
	}
	l.printf("arbor: shutting down (%d reparses, %d errors)\n", stats.Reparses, stats.ErrorCount)
}

// Stats returns the current watch statistics.
func (l *Logger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// timestamp returns the current time formatted as HH:MM:SS.
func (l *Logger) timestamp() string {
	return time.Now().Format("15:04:05")
}

const (
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
)

func (l *Logger) colorize(s, color string) string {
	if l.noColor || !l.isTTY {
		return s
	}
	return color + s + "\033[0m"
}

// writeJSON writes one JSON object per line.
func (l *Logger) writeJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		l.printf("{\"event\":\"internal_error\",\"error\":\"json marshal failed\"}\n")
		return
	}
	l.printf("%s\n", data)
}

// printf writes to the output, ignoring errors. Lines from concurrent
// callers are not interleaved.
func (l *Logger) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintf(l.writer, format, args...)
}
