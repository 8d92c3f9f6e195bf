package squant

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with squant-specific helpers and consistent field
// names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. A nil handler falls
// back to a text handler on stderr at Info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger emitting JSON records at the given level.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{Logger: slog.New(handler)}
}

// LogTrain logs a training run.
func (l *Logger) LogTrain(ctx context.Context, rows, cols int64, quantile float64, dur time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "train failed",
			"rows", rows,
			"cols", cols,
			"quantile", quantile,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "train completed",
		"rows", rows,
		"cols", cols,
		"quantile", quantile,
		"duration", dur,
	)
}

// LogTransform logs a forward or inverse transform issue.
func (l *Logger) LogTransform(ctx context.Context, op string, rows, cols int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "transform failed",
			"op", op,
			"rows", rows,
			"cols", cols,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "transform issued",
		"op", op,
		"rows", rows,
		"cols", cols,
	)
}
