// Package log is arbor's process-wide structured logger. It wraps log/slog
// with kubectl-style -v levels: 0 errors, 1 warnings, 2 info, 3 debug and
// 4 trace, where the syntax engine's per-token events appear.
package log

import "log/slog"

// LevelTrace sits below slog.LevelDebug.
const LevelTrace = slog.Level(-8)

const (
	VerbosityError = 0
	VerbosityWarn  = 1 // default
	VerbosityInfo  = 2 // config loaded, files parsed, summaries
	VerbosityDebug = 3 // backend selection, parse stats, file events
	VerbosityTrace = 4 // lexer tokens, reuse decisions
)

// VerbosityToLevel maps -v=N to the lowest slog level that is written.
func VerbosityToLevel(v int) slog.Level {
	switch {
	case v <= VerbosityError:
		return slog.LevelError
	case v == VerbosityWarn:
		return slog.LevelWarn
	case v == VerbosityInfo:
		return slog.LevelInfo
	case v == VerbosityDebug:
		return slog.LevelDebug
	default:
		return LevelTrace
	}
}

// LevelName is slog.Level.String, except that anything at or below
// LevelTrace prints as TRACE instead of DEBUG-4.
func LevelName(l slog.Level) string {
	if l <= LevelTrace {
		return "TRACE"
	}
	return l.String()
}
