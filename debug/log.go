// Package debug sets up the process-wide diagnostic logger. Diagnostics go
// to the error stream; progress and data output are handled elsewhere.
package debug

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// NewLogger returns a slog.Logger that writes level-tagged lines to w,
// colorizing the level tag when w is a terminal.
func NewLogger(w io.Writer) *slog.Logger {
	colorize := false
	if f, ok := w.(*os.File); ok {
		colorize = isatty.IsTerminal(f.Fd())
	}
	return slog.New(&lineHandler{w: w, colorize: colorize})
}

// lineHandler is a minimal slog.Handler that renders "LEVEL message key=val
// ..." on one line, matching the terse diagnostics style the CLI's other
// output (progress, CSV data) intentionally stays out of.
type lineHandler struct {
	w        io.Writer
	colorize bool
	attrs    []slog.Attr
	group    string
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String()
	if h.colorize {
		level = levelColor(r.Level)(level)
	}
	line := fmt.Sprintf("%s %s", level, r.Message)
	for _, a := range h.attrs {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		return true
	})
	_, err := fmt.Fprintln(h.w, line)
	return err
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.group = name
	return &next
}

func levelColor(level slog.Level) func(string, ...any) string {
	switch {
	case level >= slog.LevelError:
		return color.New(color.FgRed).SprintfFunc()
	case level >= slog.LevelWarn:
		return color.New(color.FgYellow).SprintfFunc()
	default:
		return color.New(color.FgCyan).SprintfFunc()
	}
}
