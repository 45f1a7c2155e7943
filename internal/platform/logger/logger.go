// Package logger provides structured logging for the CLI.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
	colorCyan   = "\033[36m"
)

// New creates a structured logger writing to stderr at the given level, so
// command output on stdout stays machine-consumable. Text format with colors
// by default; LOG_FORMAT=json switches to JSON, and NO_COLOR or
// LOG_COLOR=false disables colors.
func New(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
	}
	return slog.New(&textHandler{
		w:        os.Stderr,
		level:    l,
		useColor: colorEnabled(),
	})
}

// colorEnabled respects NO_COLOR (https://no-color.org/) and LOG_COLOR.
func colorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	switch strings.ToLower(os.Getenv("LOG_COLOR")) {
	case "false", "0":
		return false
	}
	return true
}

// textHandler is a slog.Handler producing compact, optionally colored lines.
type textHandler struct {
	w        io.Writer
	level    slog.Level
	useColor bool
	attrs    []slog.Attr
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	h.colored(&buf, colorGray, r.Time.Format("2006-01-02 15:04:05"))
	buf.WriteString(" ")

	switch r.Level {
	case slog.LevelDebug:
		h.colored(&buf, colorCyan, "DEBUG")
	case slog.LevelWarn:
		h.colored(&buf, colorYellow, "WARN ")
	case slog.LevelError:
		h.colored(&buf, colorRed, "ERROR")
	default:
		h.colored(&buf, colorBlue, "INFO ")
	}
	buf.WriteString(" ")
	buf.WriteString(r.Message)

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(" ")
		h.colored(&buf, colorGray, a.Key+"="+a.Value.String())
		return true
	})
	for _, a := range h.attrs {
		buf.WriteString(" ")
		h.colored(&buf, colorGray, a.Key+"="+a.Value.String())
	}

	buf.WriteString("\n")
	_, err := h.w.Write([]byte(buf.String()))
	return err
}

func (h *textHandler) colored(buf *strings.Builder, color, s string) {
	if h.useColor {
		buf.WriteString(color)
	}
	buf.WriteString(s)
	if h.useColor {
		buf.WriteString(colorReset)
	}
}

func (h *textHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &textHandler{w: h.w, level: h.level, useColor: h.useColor, attrs: merged}
}

func (h *textHandler) WithGroup(string) slog.Handler {
	// Groups are not used by this tool's log call sites.
	return h
}
