package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"post-sniper/internal/domain"
	"post-sniper/internal/idhash"
)

// WebhookPayload is the JSON document POSTed to generic webhooks.
type WebhookPayload struct {
	ID string `json:"id"` // stable per post, lets receivers drop redeliveries
	domain.Alert
}

// WebhookSender POSTs the alert record as JSON.
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender creates a WebhookSender for url.
func NewWebhookSender(url string, timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Send posts the alert to the webhook.
func (w *WebhookSender) Send(ctx context.Context, alert domain.Alert) error {
	body, err := json.Marshal(WebhookPayload{ID: idhash.ComputeAlertID(alert.PostID), Alert: alert})
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}
	return postJSON(ctx, w.client, w.url, body)
}

// Name returns the sender identifier.
func (w *WebhookSender) Name() string {
	return "webhook"
}

func postJSON(ctx context.Context, client *http.Client, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
