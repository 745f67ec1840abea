package http

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	connectionIDContextKey contextKey = "connection_id"
	eventIDContextKey      contextKey = "event_id"
	jobIDContextKey        contextKey = "job_id"
	loggerContextKey       contextKey = "logger"
)

// ContextWithConnectionID injects the connection identifier resolved from the request path.
func ContextWithConnectionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connectionIDContextKey, id)
}

// ConnectionIDFromContext extracts a connection identifier previously associated with the context.
func ConnectionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(connectionIDContextKey).(string)
	return id, ok
}

// ContextWithEventID injects the event identifier resolved from the request path.
func ContextWithEventID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, eventIDContextKey, id)
}

// EventIDFromContext extracts an event identifier previously associated with the context.
func EventIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(eventIDContextKey).(string)
	return id, ok
}

// ContextWithJobID injects the sync job identifier resolved from the request path.
func ContextWithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, jobIDContextKey, id)
}

// JobIDFromContext extracts a sync job identifier previously associated with the context.
func JobIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(jobIDContextKey).(string)
	return id, ok
}

// ContextWithLogger returns a derived context carrying the request logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerContextKey, logger)
}

// LoggerFromContext extracts the request logger if one was attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerContextKey).(*slog.Logger)
	return logger
}
