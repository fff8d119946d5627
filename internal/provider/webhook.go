package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/notifyhub/request-queue/internal/domain"
)

// WebhookProvider delivers requests by POSTing them to a single endpoint.
// The base URL is injected from config so tests can point to a local mock.
type WebhookProvider struct {
	baseURL    string
	httpClient *http.Client
}

func NewWebhookProvider(baseURL string, timeout time.Duration) *WebhookProvider {
	return &WebhookProvider{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send posts the request to the configured URL. Any 2xx is success; the body,
// if present, is decoded as a SendResponse.
func (p *WebhookProvider) Send(ctx context.Context, item domain.Item) (*SendResponse, error) {
	body, err := json.Marshal(SendRequest{
		ID:      item.ID,
		Tag:     item.Tag,
		Payload: item.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w: %w", domain.ErrPermanent, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Tag", item.Tag)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("provider status %d: %w", resp.StatusCode, domain.ErrSessionRequired)
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return nil, fmt.Errorf("provider status %d: %w", resp.StatusCode, domain.ErrPermanent)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("unexpected provider status: %d", resp.StatusCode)
	}

	var sendResp SendResponse
	if err := json.NewDecoder(resp.Body).Decode(&sendResp); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &sendResp, nil
}

// compile-time check that WebhookProvider implements Provider
var _ Provider = (*WebhookProvider)(nil)
