package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"showplane/internal/store"
)

// Webhook delivers notifications as JSON POSTs to a collaborator
// service. Per-user events are rate limited so a hot loop cannot
// flood one user's socket channel.
type Webhook struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger

	// userID -> *rate.Limiter
	limiters sync.Map
	perUser  rate.Limit
	burst    int
}

// NewWebhook creates a webhook sink. perUserPerMinute bounds
// EmitToUser calls per user; 0 means unlimited.
func NewWebhook(baseURL string, logger *slog.Logger, perUserPerMinute int) *Webhook {
	w := &Webhook{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
		burst:   perUserPerMinute,
	}
	if perUserPerMinute > 0 {
		w.perUser = rate.Limit(float64(perUserPerMinute) / 60.0)
	}
	return w
}

type announcementPayload struct {
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipient_user_ids"`
	Priority   string   `json:"priority"`
}

type userEventPayload struct {
	UserID  string      `json:"user_id"`
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// CreateAnnouncement posts one announcement batch. Failures are
// logged and swallowed; announcements are fire-and-forget.
func (w *Webhook) CreateAnnouncement(ctx context.Context, subject, body string, recipients []uuid.UUID, priority Priority) error {
	ids := make([]string, len(recipients))
	for i, r := range recipients {
		ids[i] = r.String()
	}

	if err := w.post(ctx, "/announcements", announcementPayload{
		Subject:    subject,
		Body:       body,
		Recipients: ids,
		Priority:   string(priority),
	}); err != nil {
		w.logger.WarnContext(ctx, "announcement delivery failed",
			"subject", subject, "recipients", len(ids), "error", err)
	}
	return nil
}

// EmitToUser posts a single-user event, dropping it when the user's
// rate limit is exhausted.
func (w *Webhook) EmitToUser(ctx context.Context, userID uuid.UUID, event string, payload interface{}) error {
	if w.perUser > 0 && !w.limiter(userID).Allow() {
		w.logger.DebugContext(ctx, "user event dropped by rate limit",
			"user_id", userID.String(), "event", event)
		return nil
	}

	if err := w.post(ctx, "/events", userEventPayload{
		UserID:  userID.String(),
		Event:   event,
		Payload: payload,
	}); err != nil {
		w.logger.WarnContext(ctx, "user event delivery failed",
			"user_id", userID.String(), "event", event, "error", err)
	}
	return nil
}

// AutoFeatureWinner notifies the listing service to feature the
// winner. Unlike announcements this error is surfaced: the scheduler
// logs it against the winner declaration.
func (w *Webhook) AutoFeatureWinner(ctx context.Context, c *store.Contestant) error {
	return w.post(ctx, "/feature-winner", map[string]string{
		"contestant_id": c.ID.String(),
		"showcase_id":   c.ShowcaseID.String(),
		"user_id":       c.UserID.String(),
	})
}

func (w *Webhook) post(ctx context.Context, path string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func (w *Webhook) limiter(userID uuid.UUID) *rate.Limiter {
	if l, ok := w.limiters.Load(userID); ok {
		return l.(*rate.Limiter)
	}
	l, _ := w.limiters.LoadOrStore(userID, rate.NewLimiter(w.perUser, w.burst))
	return l.(*rate.Limiter)
}
