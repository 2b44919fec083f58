package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SendResponse maps the provider's 202 Accepted response body.
type SendResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// Provider abstracts the external SMS-style delivery channel.
// Implementations classify failures as Transient or Permanent; the
// worker's retry loop keys off that classification. Mocking this
// interface in tests gives full control over failure sequences.
type Provider interface {
	Send(ctx context.Context, address, body string) (*SendResponse, error)
}

// HTTPProvider delivers messages by POSTing to an SMS gateway.
// The base URL is injected from config so tests can point to a mock.
type HTTPProvider struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type sendRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// Send posts the message and expects 202 Accepted with a messageId.
// Network failures, 429, and 5xx are transient; other non-202 statuses
// are permanent rejections.
func (p *HTTPProvider) Send(ctx context.Context, address, body string) (*SendResponse, error) {
	payload, err := json.Marshal(sendRequest{To: address, Body: body})
	if err != nil {
		return nil, Permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, Transient(fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusAccepted:
		// fall through to decode
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, Transient(fmt.Errorf("provider status %d", resp.StatusCode))
	default:
		return nil, Permanent(fmt.Errorf("provider rejected message: status %d", resp.StatusCode))
	}

	var sendResp SendResponse
	if err := json.NewDecoder(resp.Body).Decode(&sendResp); err != nil {
		return nil, Transient(fmt.Errorf("decode response: %w", err))
	}
	return &sendResp, nil
}

// compile-time check that HTTPProvider implements Provider
var _ Provider = (*HTTPProvider)(nil)
