package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookEmitter POSTs events as JSON to the push subsystem.
type WebhookEmitter struct {
	URL    string
	Token  string
	Client *http.Client
}

// NewWebhookEmitter creates a WebhookEmitter with the given request timeout.
func NewWebhookEmitter(url, token string, timeout time.Duration) *WebhookEmitter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookEmitter{
		URL:   url,
		Token: token,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Emit sends ev and fails on any non-2xx response.
func (w *WebhookEmitter) Emit(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.Token != "" {
		req.Header.Set("X-Service-Token", w.Token)
	}

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver %s event: %w", ev.Type, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push webhook returned %d for %s event", resp.StatusCode, ev.Type)
	}
	return nil
}
