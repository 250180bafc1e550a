package eldbook

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/teacon/eldbook/record"
)

// Logger wraps slog.Logger with eldbook-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithComponent tags every record with the emitting component.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", name),
	}
}

// WithPartition adds a partition field to the logger.
func (l *Logger) WithPartition(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("partition", name),
	}
}

// LogStart logs service start and startup recovery.
func (l *Logger) LogStart(ctx context.Context, dir string, recovered int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "book start failed",
			"dir", dir,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "book started",
			"dir", dir,
			"recovered", recovered,
		)
	}
}

// LogStop logs service shutdown.
func (l *Logger) LogStop(ctx context.Context, closed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "book stopped with errors",
			"closed", closed,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "book stopped",
			"closed", closed,
		)
	}
}

// LogRotation logs a rotation sweep. Sweeps that closed nothing are logged
// at debug level.
func (l *Logger) LogRotation(ctx context.Context, now string, closed, flushed int, err error) {
	switch {
	case err != nil:
		l.WarnContext(ctx, "rotation completed with failures",
			"now", now,
			"closed", closed,
			"flushed", flushed,
			"error", err,
		)
	case closed > 0:
		l.InfoContext(ctx, "rotation completed",
			"now", now,
			"closed", closed,
			"flushed", flushed,
		)
	default:
		l.DebugContext(ctx, "rotation completed",
			"now", now,
			"flushed", flushed,
		)
	}
}

// LogArchive logs the outcome of one archival task.
func (l *Logger) LogArchive(ctx context.Context, partition string, rawBytes, archiveBytes int64, duration time.Duration, err error) {
	pl := l.WithPartition(partition)
	if err != nil {
		pl.ErrorContext(ctx, "archive failed", "error", err)
		return
	}
	pl.InfoContext(ctx, "partition archived",
		"raw_bytes", rawBytes,
		"archive_bytes", archiveBytes,
		"duration", duration,
	)
}

// LogWriteFailure logs an event that could not be recorded.
func (l *Logger) LogWriteFailure(ctx context.Context, kind record.Kind, id uuid.UUID, err error) {
	l.WarnContext(ctx, "lifecycle event dropped",
		"kind", kind.String(),
		"uuid", id.String(),
		"error", err,
	)
}
