package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/teacon/eldbook"
)

// logFlags are shared by every subcommand.
type logFlags struct {
	level   string
	json    bool
	diagLog string
}

// newLogger builds the process logger. With a diagnostic log file set,
// records go to stderr and to a size-rotated file.
func (f logFlags) newLogger() (*eldbook.Logger, io.Closer, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.level)); err != nil {
		return nil, nil, fmt.Errorf("parsing log level %q: %w", f.level, err)
	}

	var (
		out    io.Writer = os.Stderr
		closer io.Closer = io.NopCloser(nil)
	)
	if f.diagLog != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   f.diagLog,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		}
		out = io.MultiWriter(os.Stderr, fileWriter)
		closer = fileWriter
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(out, opts)
	if f.json {
		h = slog.NewJSONHandler(out, opts)
	}
	return eldbook.NewLogger(h), closer, nil
}
