package sysmem

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with allocator-specific context.
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

// WithKind adds a resource kind field to the logger.
func (l *Logger) WithKind(kind ResourceKind) *Logger {
	return &Logger{
		Logger: l.Logger.With("kind", string(kind)),
	}
}

// WithCapacity adds a capacity field to the logger.
func (l *Logger) WithCapacity(capacity int64) *Logger {
	return &Logger{
		Logger: l.Logger.With("capacity", capacity),
	}
}

// LogAllocate logs a create or resize operation.
func (l *Logger) LogAllocate(ctx context.Context, kind ResourceKind, size int64, err error) {
	if err != nil {
		l.WarnContext(ctx, "allocation failed",
			"kind", string(kind),
			"size", size,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "allocation completed",
			"kind", string(kind),
			"size", size,
		)
	}
}

// LogReclaim logs the reclamation of one resource.
func (l *Logger) LogReclaim(ctx context.Context, kind ResourceKind, addr uintptr, size int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "reclaim failed",
			"kind", string(kind),
			"address", addr,
			"size", size,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "reclaim completed",
			"kind", string(kind),
			"address", addr,
			"size", size,
		)
	}
}

// LogBackpressure logs a cool-down wait triggered by a capacity shortfall.
func (l *Logger) LogBackpressure(ctx context.Context, kind ResourceKind, size int64, waited time.Duration, satisfied bool) {
	if satisfied {
		l.DebugContext(ctx, "capacity recovered after cool-down",
			"kind", string(kind),
			"size", size,
			"waited", waited,
		)
	} else {
		l.InfoContext(ctx, "capacity still exceeded after cool-down",
			"kind", string(kind),
			"size", size,
			"waited", waited,
		)
	}
}
