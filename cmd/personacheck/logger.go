package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// parseLevel maps a --log-level value to a slog level. Unknown values fall
// back to info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger builds a tint handler on w, coloured only when w is a terminal.
func newLogger(w io.Writer, level slog.Level, noColor bool) *slog.Logger {
	if !noColor {
		f, ok := w.(*os.File)
		noColor = !ok || !isatty.IsTerminal(f.Fd())
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		NoColor:    noColor,
		TimeFormat: time.Kitchen,
		Level:      level,
	}))
}
