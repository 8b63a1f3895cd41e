// Package planner holds the HTTP plumbing shared by model-backed planner
// implementations: base URL handling, auth headers, and JSON round-trips.
// Concrete backends live in subpackages and translate between the agent
// loop's PlanRequest/Decision contract and one provider's wire format.
package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Auth holds authentication settings for a model provider API.
type Auth struct {
	Key    string // API key value.
	Header string // Header name (default: "Authorization").
	Scheme string // Scheme prefix (default: "Bearer" when Header is "Authorization").
}

// Backend holds shared state for model-backed planners. Embed it in concrete
// planner structs to get HTTP helpers, auth, and custom headers.
type Backend struct {
	Model   string
	BaseURL string            // API base URL (no trailing slash).
	Auth    Auth              // Authentication settings.
	Client  *http.Client      // HTTP client; falls back to http.DefaultClient.
	Headers map[string]string // Extra headers applied to every request.

	// MaxTokens bounds the model's reply length. Zero uses the backend's
	// default.
	MaxTokens int
}

func (b *Backend) httpClient() *http.Client {
	if b.Client != nil {
		return b.Client
	}

	return http.DefaultClient
}

// NewRequest builds an *http.Request with the base URL, auth, and custom
// headers already applied.
func (b *Backend) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, b.BaseURL+path, body)
	if err != nil {
		return nil, err
	}

	if b.Auth.Key != "" {
		header := b.Auth.Header
		if header == "" {
			header = "Authorization"
		}

		value := b.Auth.Key
		if header == "Authorization" {
			scheme := b.Auth.Scheme
			if scheme == "" {
				scheme = "Bearer"
			}

			value = scheme + " " + value
		} else if b.Auth.Scheme != "" {
			value = b.Auth.Scheme + " " + value
		}

		req.Header.Set(header, value)
	}

	for k, v := range b.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// PostJSON marshals payload as JSON, sends a POST to the given path, checks
// for a 2xx status, and unmarshals the response body into dest.
func (b *Backend) PostJSON(ctx context.Context, path string, payload any, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := b.NewRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if dest == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
