// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Params struct {
	Level  string
	JSON   bool
	File   string
	Stdout io.Writer

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New returns a logger writing to Stdout (os.Stdout when nil) and, when
// File is set, also to a size-rotated file. The returned closer releases
// the file and is safe to call when no file is configured.
func New(p Params) (*slog.Logger, io.Closer) {
	out := p.Stdout
	if out == nil {
		out = os.Stdout
	}

	var closer io.Closer = nopCloser{}
	if p.File != "" {
		maxSize := p.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 50 // megabytes
		}
		rotating := &lumberjack.Logger{
			Filename:   p.File,
			MaxSize:    maxSize,
			MaxBackups: p.MaxBackups,
			MaxAge:     p.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(out, rotating)
		closer = rotating
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(p.Level)}
	var h slog.Handler
	if p.JSON {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	return slog.New(h), closer
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
