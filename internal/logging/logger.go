// Package logging defines a minimal structured-logging interface used across
// the project, with slog and zerolog backends.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// Args are key-value pairs. Pairs attached to ctx with ContextWith come
// first:
//
//	ctx = logging.ContextWith(ctx, "request_id", id)
//	log.Info(ctx, "search", "pattern", pattern, "hits", len(recs))
type Logger interface {
	// Debug logs verbose diagnostics.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key-value pairs.
	With(args ...any) Logger
}
