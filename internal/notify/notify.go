// Package notify defines the outbound notification contracts the
// scheduler depends on. Delivery is best-effort: implementations log
// failures and never propagate them into the scheduling loop.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"showplane/internal/store"
)

// Priority of an announcement.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Sink delivers announcements and per-user events.
type Sink interface {
	// CreateAnnouncement sends one message to a batch of recipients.
	CreateAnnouncement(ctx context.Context, subject, body string, recipients []uuid.UUID, priority Priority) error

	// EmitToUser pushes a named event with a payload to one user.
	EmitToUser(ctx context.Context, userID uuid.UUID, event string, payload interface{}) error
}

// Featurer promotes a declared winner's listing.
type Featurer interface {
	// AutoFeatureWinner is invoked once per declared winner.
	AutoFeatureWinner(ctx context.Context, c *store.Contestant) error
}

// LogSink writes notifications to the structured log instead of
// delivering them. Used when no webhook endpoint is configured.
type LogSink struct {
	Logger *slog.Logger
}

func (l *LogSink) CreateAnnouncement(ctx context.Context, subject, body string, recipients []uuid.UUID, priority Priority) error {
	l.Logger.InfoContext(ctx, "announcement",
		"subject", subject,
		"recipients", len(recipients),
		"priority", string(priority))
	return nil
}

func (l *LogSink) EmitToUser(ctx context.Context, userID uuid.UUID, event string, payload interface{}) error {
	l.Logger.InfoContext(ctx, "user event",
		"user_id", userID.String(),
		"event", event)
	return nil
}

// AutoFeatureWinner satisfies Featurer by logging only.
func (l *LogSink) AutoFeatureWinner(ctx context.Context, c *store.Contestant) error {
	l.Logger.InfoContext(ctx, "auto-feature winner",
		"contestant_id", c.ID.String(),
		"showcase_id", c.ShowcaseID.String())
	return nil
}
