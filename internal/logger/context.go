package logger

import (
	"context"

	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const loggerKey contextKey = "logger"

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRun attaches the run seed to the context logger, so every line of a
// generation run can be traced back to the seed that reproduces it.
func WithRun(ctx context.Context, seed uint64) (context.Context, *zap.Logger) {
	enriched := FromContext(ctx).With(zap.Uint64("seed", seed))
	return WithContext(ctx, enriched), enriched
}
