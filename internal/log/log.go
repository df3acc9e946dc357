package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var (
	current   atomic.Pointer[slog.Logger]
	level     = new(slog.LevelVar)
	verbosity atomic.Int32
)

func init() {
	Configure(Options{Verbosity: VerbosityWarn})
}

// Options configures the global logger.
type Options struct {
	// Verbosity is the -v level.
	Verbosity int

	// Format is "json" for JSON lines; anything else means text.
	Format string

	// Output defaults to stderr. Logs never go to stdout, which carries
	// command output.
	Output io.Writer

	AddSource bool
}

// Configure replaces the global logger and makes it slog's default.
func Configure(opts Options) {
	SetVerbosity(opts.Verbosity)

	l := slog.New(newHandler(opts))
	current.Store(l)
	slog.SetDefault(l)
}

func newHandler(opts Options) slog.Handler {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	ho := &slog.HandlerOptions{
		Level:     level,
		AddSource: opts.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(LevelName(l))
				}
			}
			return a
		},
	}
	if opts.Format == "json" {
		return slog.NewJSONHandler(out, ho)
	}
	return slog.NewTextHandler(out, ho)
}

// SetVerbosity changes the level of the current logger in place.
func SetVerbosity(v int) {
	verbosity.Store(int32(v))
	level.Set(VerbosityToLevel(v))
}

func Verbosity() int {
	return int(verbosity.Load())
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return current.Load()
}

func Error(msg string, args ...any) { current.Load().Error(msg, args...) }
func Warn(msg string, args ...any)  { current.Load().Warn(msg, args...) }
func Info(msg string, args ...any)  { current.Load().Info(msg, args...) }
func Debug(msg string, args ...any) { current.Load().Debug(msg, args...) }

func Trace(msg string, args ...any) {
	current.Load().Log(context.Background(), LevelTrace, msg, args...)
}

// V returns the current logger when verbosity is at least v, and a logger
// that drops everything otherwise. The check happens once, at the call.
func V(v int) *slog.Logger {
	if Verbosity() >= v {
		return current.Load()
	}
	return slog.New(slog.DiscardHandler)
}

// Component returns the current logger tagged with component=name.
func Component(name string) *slog.Logger {
	return current.Load().With("component", name)
}

// Engine returns the logger handed to the syntax engine. It logs per token,
// so below trace verbosity it discards without formatting anything.
func Engine() *slog.Logger {
	return V(VerbosityTrace).With("component", "engine")
}
