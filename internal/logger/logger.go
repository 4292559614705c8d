// Package logger provides structured logging setup using slog.
package logger

import (
	"context"
	"log/slog"
	"os"
)

// showcaseIDKey is the context key for the showcase being worked on.
type showcaseIDKey struct{}

// New creates a new structured JSON logger.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// WithShowcaseID returns a new context carrying the given showcase ID.
func WithShowcaseID(ctx context.Context, showcaseID string) context.Context {
	return context.WithValue(ctx, showcaseIDKey{}, showcaseID)
}

// ShowcaseIDFromContext extracts the showcase ID from the context.
func ShowcaseIDFromContext(ctx context.Context) string {
	if v := ctx.Value(showcaseIDKey{}); v != nil {
		return v.(string)
	}
	return ""
}

// FromContext returns a logger with context fields (showcase ID, etc.) attached.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if id := ShowcaseIDFromContext(ctx); id != "" {
		return base.With("showcase_id", id)
	}
	return base
}
