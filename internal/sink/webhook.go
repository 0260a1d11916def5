// CLAUDE:SUMMARY Webhook sink: POSTs sessions as JSON with retry and exponential backoff.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/actrec/action"
	"github.com/hazyhaar/actrec/internal/safe"
)

// Webhook POSTs each session as JSON. Network errors, 429 and 5xx are
// retried with exponential backoff; other statuses fail at once.
type Webhook struct {
	url        string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// WebhookOption configures a Webhook sink.
type WebhookOption func(*Webhook)

// WithWebhookRetries sets the maximum number of retries. Default: 3.
func WithWebhookRetries(n int) WebhookOption {
	return func(w *Webhook) { w.maxRetries = n }
}

// WithWebhookBackoff sets the first retry delay; it doubles on each
// further attempt. Default: 1s.
func WithWebhookBackoff(d time.Duration) WebhookOption {
	return func(w *Webhook) { w.backoff = d }
}

// WithWebhookLogger sets a custom logger.
func WithWebhookLogger(l *slog.Logger) WebhookOption {
	return func(w *Webhook) { w.logger = l }
}

// NewWebhook creates a Webhook sink targeting url.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:        url,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
		backoff:    time.Second,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// permanentError marks a response that retrying will not fix.
type permanentError struct{ error }

func (e permanentError) Unwrap() error { return e.error }

func (w *Webhook) Send(ctx context.Context, sess action.Session) error {
	body, err := json.Marshal(envelope{Type: "session", Data: sess})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	delay := w.backoff
	for attempt := 1; ; attempt++ {
		err = w.post(ctx, sess.ID, body)
		if err == nil {
			return nil
		}
		var perm permanentError
		if errors.As(err, &perm) {
			return err
		}
		if attempt > w.maxRetries {
			return fmt.Errorf("webhook: %d attempts: %w", attempt, err)
		}
		w.logger.Warn("webhook: attempt failed", "session", sess.ID, "attempt", attempt, "retry_in", delay, "error", err)

		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
		delay *= 2
	}
}

func (w *Webhook) post(ctx context.Context, id string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return permanentError{fmt.Errorf("webhook: new request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actrec-Session", id)

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	snippet, _, _ := safe.LimitedReadAll(resp.Body, 512)
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("webhook: status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return permanentError{fmt.Errorf("webhook: status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))}
}

func (w *Webhook) Close() error { return nil }
