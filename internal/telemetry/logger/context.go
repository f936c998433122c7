package logger

import "context"

type contextKey string

const (
	loggerKey     contextKey = "wazuh-cli.logger"
	invocationKey contextKey = "wazuh-cli.invocation"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context.
// Returns the default logger if none is set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithInvocationID tags the context with the ID of one command execution.
func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, invocationKey, id)
}

// InvocationIDFromContext extracts the invocation ID from context.
func InvocationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(invocationKey).(string); ok {
		return id
	}
	return ""
}

// L is a shorthand for FromContext that also adds the invocation ID.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)
	if id := InvocationIDFromContext(ctx); id != "" {
		l = l.With("invocation", id)
	}
	return l.WithContext(ctx)
}
