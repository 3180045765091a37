// Package notify posts lifecycle events to an optional webhook. Delivery is
// fire and forget: failures are logged, never returned to callers.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Event types emitted by the verification and correction services.
const (
	EventRunStarted         = "run.started"
	EventRunCompleted       = "run.completed"
	EventRunFailed          = "run.failed"
	EventCorrectionCreated  = "correction.created"
	EventCorrectionApproved = "correction.approved"
	EventCorrectionRejected = "correction.rejected"
)

// Event is the payload delivered to the webhook.
type Event struct {
	Type         string         `json:"type"`
	CompanyID    string         `json:"company_id,omitempty"`
	RunID        string         `json:"run_id,omitempty"`
	CorrectionID string         `json:"correction_id,omitempty"`
	Detail       map[string]any `json:"detail,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

// Notifier delivers events somewhere out of band.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Noop is a Notifier that discards everything.
type Noop struct{}

func (Noop) Notify(context.Context, Event) {}

// Webhook posts each event as JSON to a single URL.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook notifier. Returns Noop when url is empty.
func NewWebhook(url string) Notifier {
	if url == "" {
		return Noop{}
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify dispatches the POST on its own goroutine with a detached context:
// a slow or dead webhook must not stall the operation being notified about.
func (w *Webhook) Notify(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		zap.L().Error("marshal notification", zap.String("type", event.Type), zap.Error(err))
		return
	}

	go w.deliver(context.WithoutCancel(ctx), event.Type, body)
}

func (w *Webhook) deliver(ctx context.Context, eventType string, body []byte) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		zap.L().Error("build notification request", zap.String("type", eventType), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		zap.L().Warn("notification delivery failed",
			zap.String("type", eventType),
			zap.String("url", w.url),
			zap.Error(err))
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 300 {
		zap.L().Warn("notification rejected",
			zap.String("type", eventType),
			zap.Int("status", resp.StatusCode))
		return
	}

	zap.L().Debug("notification delivered", zap.String("type", eventType))
}
