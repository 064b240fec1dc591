package logging

import (
	"context"
	"log/slog"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	runIDKey
)

// WithRequestID stores a webhook request id in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id stored in the context, if any.
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

// WithRunID stores a triage run id in the context.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunID returns the run id stored in the context, if any.
func RunID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok
}

// FromContext returns the logger annotated with any request and run
// ids carried by the context.
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id, ok := RequestID(ctx); ok {
		logger = logger.With("request_id", id)
	}
	if id, ok := RunID(ctx); ok {
		logger = logger.With("run_id", id)
	}
	return logger
}
