package debug

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerWritesLevelAndMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)
	logger.Info("starting", "table", "events")

	out := buf.String()
	if !strings.Contains(out, "INFO") {
		t.Fatalf("output %q missing level", out)
	}
	if !strings.Contains(out, "starting") {
		t.Fatalf("output %q missing message", out)
	}
	if !strings.Contains(out, "table=events") {
		t.Fatalf("output %q missing attr", out)
	}
}

func TestNewLoggerNonTerminalWriterIsUncolored(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)
	logger.Warn("mapping table not found in input")

	out := buf.String()
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("output %q should not contain ANSI escapes for a non-terminal writer", out)
	}
}

func TestLineHandlerWithAttrsAccumulates(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf).With("component", "flatten")
	logger.Error("structural violation", "path", "a.b")

	out := buf.String()
	if !strings.Contains(out, "component=flatten") {
		t.Fatalf("output %q missing accumulated attr", out)
	}
	if !strings.Contains(out, "path=a.b") {
		t.Fatalf("output %q missing call-site attr", out)
	}
}

func TestLineHandlerIgnoresDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)
	logger.Debug("below the Info threshold")

	if buf.Len() != 0 {
		t.Fatalf("debug-level message should be filtered, got %q", buf.String())
	}
}

func TestLineHandlerEnabled(t *testing.T) {
	h := &lineHandler{w: &bytes.Buffer{}}
	if h.Enabled(nil, slog.LevelDebug) {
		t.Fatalf("Debug should not be enabled")
	}
	if !h.Enabled(nil, slog.LevelInfo) {
		t.Fatalf("Info should be enabled")
	}
	if !h.Enabled(nil, slog.LevelError) {
		t.Fatalf("Error should be enabled")
	}
}
