package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// capture points the global logger at a buffer for the test.
func capture(t *testing.T, v int, format string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Configure(Options{Verbosity: v, Format: format, Output: &buf})
	t.Cleanup(func() { Configure(Options{Verbosity: VerbosityWarn}) })
	return &buf
}

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		expected  slog.Level
	}{
		{-1, slog.LevelError},
		{VerbosityError, slog.LevelError},
		{VerbosityWarn, slog.LevelWarn},
		{VerbosityInfo, slog.LevelInfo},
		{VerbosityDebug, slog.LevelDebug},
		{VerbosityTrace, LevelTrace},
		{9, LevelTrace},
	}

	for _, tt := range tests {
		if got := VerbosityToLevel(tt.verbosity); got != tt.expected {
			t.Errorf("VerbosityToLevel(%d) = %v, want %v", tt.verbosity, got, tt.expected)
		}
	}
}

func TestLevelName(t *testing.T) {
	tests := map[slog.Level]string{
		LevelTrace - 1:  "TRACE",
		LevelTrace:      "TRACE",
		slog.LevelDebug: "DEBUG",
		slog.LevelWarn:  "WARN",
	}
	for level, want := range tests {
		if got := LevelName(level); got != want {
			t.Errorf("LevelName(%v) = %q, want %q", level, got, want)
		}
	}
}

func TestLevelsFollowVerbosity(t *testing.T) {
	buf := capture(t, VerbosityInfo, "text")

	Debug("hidden debug")
	Trace("hidden trace")
	Info("parsed", "file", "a.scm")
	Warn("slow")
	Error("failed")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug and trace should be filtered at -v 2:\n%s", out)
	}
	for _, want := range []string{"level=INFO msg=parsed file=a.scm", "level=WARN", "level=ERROR"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestTraceLevelName(t *testing.T) {
	buf := capture(t, VerbosityTrace, "text")

	Trace("token", "symbol", "number")

	if !strings.Contains(buf.String(), "level=TRACE msg=token symbol=number") {
		t.Errorf("unexpected trace output: %s", buf.String())
	}
}

func TestJSONFormat(t *testing.T) {
	buf := capture(t, VerbosityInfo, "json")

	Component("watch").Info("reparsed", "reused", 3)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if record["component"] != "watch" || record["reused"] != float64(3) || record["level"] != "INFO" {
		t.Errorf("unexpected record: %v", record)
	}
}

func TestSetVerbosity(t *testing.T) {
	buf := capture(t, VerbosityWarn, "text")

	Info("before")
	SetVerbosity(VerbosityInfo)
	Info("after")

	if Verbosity() != VerbosityInfo {
		t.Errorf("Verbosity() = %d, want %d", Verbosity(), VerbosityInfo)
	}
	out := buf.String()
	if strings.Contains(out, "before") || !strings.Contains(out, "after") {
		t.Errorf("SetVerbosity should apply to the existing logger:\n%s", out)
	}
}

func TestV(t *testing.T) {
	buf := capture(t, VerbosityDebug, "text")

	V(VerbosityDebug).Info("shown")
	V(VerbosityTrace).Info("dropped")

	out := buf.String()
	if !strings.Contains(out, "shown") || strings.Contains(out, "dropped") {
		t.Errorf("V should gate on verbosity:\n%s", out)
	}
	if V(VerbosityDebug) != Logger() {
		t.Error("V at or below the verbosity should return the current logger")
	}
}

func TestEngine(t *testing.T) {
	buf := capture(t, VerbosityDebug, "text")
	if Engine().Enabled(t.Context(), LevelTrace) {
		t.Error("engine logger should be disabled below trace verbosity")
	}

	buf = capture(t, VerbosityTrace, "text")
	Engine().Log(t.Context(), LevelTrace, "lex", "symbol", "(")
	if !strings.Contains(buf.String(), "component=engine") {
		t.Errorf("engine logger should be tagged, got: %s", buf.String())
	}
}
