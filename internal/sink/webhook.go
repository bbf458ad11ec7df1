package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// EndpointSource resolves the current webhook URL; "" means none configured.
type EndpointSource interface {
	WebhookURL(ctx context.Context) (string, error)
}

// Webhook POSTs the payload as JSON to a user-configured URL. The response
// body is never read beyond draining it.
type Webhook struct {
	endpoints EndpointSource
	client    *http.Client
}

func NewWebhook(endpoints EndpointSource, client *http.Client) *Webhook {
	if client == nil {
		client = http.DefaultClient
	}
	return &Webhook{endpoints: endpoints, client: client}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Deliver(ctx context.Context, p Payload) error {
	url, err := w.endpoints.WebhookURL(ctx)
	if err != nil {
		return fmt.Errorf("resolve webhook url: %w", err)
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
