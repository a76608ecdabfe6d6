package s3pi

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with s3pi-specific context.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithRunID adds the run identifier to the logger.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", id),
	}
}

// WithBucket adds bucket and prefix fields to the logger.
func (l *Logger) WithBucket(bucket, prefix string) *Logger {
	return &Logger{
		Logger: l.Logger.With("bucket", bucket, "prefix", prefix),
	}
}

// LogScan logs a directory scan.
func (l *Logger) LogScan(ctx context.Context, dir string, artifacts, packages int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "scan failed",
			"dir", dir,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "scan completed",
			"dir", dir,
			"artifacts", artifacts,
			"packages", packages,
		)
	}
}

// LogSync logs the outcome of a synchronization pass.
func (l *Logger) LogSync(ctx context.Context, created, updated, skipped int, dryRun bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "sync failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "sync completed",
			"created", created,
			"updated", updated,
			"skipped", skipped,
			"dry_run", dryRun,
		)
	}
}
