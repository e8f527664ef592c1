package autosave

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/zenibako/autosave-form/messages"
)

// HTTPTransport posts form values to a submit endpoint
type HTTPTransport struct {
	client *http.Client
	url    string
}

// NewHTTPTransport creates a transport for the submit endpoint at url
func NewHTTPTransport(client *http.Client, url string) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{client: client, url: url}
}

// Send implements Transport
func (t *HTTPTransport) Send(ctx context.Context, values url.Values, done func(*messages.Payload, error)) {
	go func() {
		done(t.post(ctx, values))
	}()
}

func (t *HTTPTransport) post(ctx context.Context, values url.Values) (*messages.Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read submit response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("submit returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return messages.DecodePayload(body)
}

// FetchClientConfig loads a form's ClientConfig from its config endpoint
func FetchClientConfig(ctx context.Context, client *http.Client, url string) (ClientConfig, error) {
	var cfg ClientConfig
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return cfg, fmt.Errorf("failed to build config request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return cfg, fmt.Errorf("failed to fetch config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cfg, fmt.Errorf("config returned %s", resp.Status)
	}
	if err := decodeJSON(resp.Body, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
