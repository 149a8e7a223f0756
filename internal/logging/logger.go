// Package logging defines the minimal structured-logging interface used
// across the client. The variadic args are key-value pairs:
//
//	log.Info(ctx, "session loaded", "user", u.ID)
package logging

import "context"

// Logger is a context-aware, structured logger.
type Logger interface {
	// Debug logs fine-grained diagnostics.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs unusual but non-fatal conditions (silent reconnect
	// failures, recovered cache corruption).
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}
