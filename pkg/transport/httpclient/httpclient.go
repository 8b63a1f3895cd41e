// Package httpclient is the caller side of the HTTP/WebSocket transport.
// Client implements agent.Invoker: errors returned here mean the dispatcher
// was unreachable, while failures that reached the dispatcher come back
// inside the envelope.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/germanamz/opwire/pkg/bridge"
)

// Client talks to an httpserver.Server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client for the server at baseURL (no trailing slash).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}

	return c
}

// Operations fetches the advertisement list.
func (c *Client) Operations(ctx context.Context) ([]bridge.OpInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/operations", nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: list operations: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: list operations: unexpected status %d", resp.StatusCode)
	}

	var infos []bridge.OpInfo
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		return nil, fmt.Errorf("httpclient: decode operations: %w", err)
	}

	return infos, nil
}

// Invoke sends one request to the single-shot endpoint and returns its
// envelope.
func (c *Client) Invoke(ctx context.Context, req bridge.Request) (bridge.Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return bridge.Result{}, fmt.Errorf("httpclient: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/invoke", bytes.NewReader(body))
	if err != nil {
		return bridge.Result{}, fmt.Errorf("httpclient: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return bridge.Result{}, fmt.Errorf("httpclient: invoke: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return bridge.Result{}, fmt.Errorf("httpclient: invoke: unexpected status %d: %s", resp.StatusCode, data)
	}

	var result bridge.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return bridge.Result{}, fmt.Errorf("httpclient: decode envelope: %w", err)
	}

	return result, nil
}

// Session opens a WebSocket session. Requests on a session are answered in
// the order they are sent.
func (c *Client) Session(ctx context.Context) (*Session, error) {
	conn, _, err := websocket.Dial(ctx, c.baseURL+"/session", nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: dial session: %w", err)
	}

	return &Session{client: c, conn: conn}, nil
}

// Session is one ordered request/envelope stream over a WebSocket
// connection. It implements agent.Invoker; Operations is served by the
// parent client over plain HTTP.
type Session struct {
	client *Client
	conn   *websocket.Conn

	// mu serializes write/read pairs so responses match requests in order.
	mu sync.Mutex
}

// Operations delegates to the parent client.
func (s *Session) Operations(ctx context.Context) ([]bridge.OpInfo, error) {
	return s.client.Operations(ctx)
}

// Invoke sends one request over the session and reads its envelope.
func (s *Session) Invoke(ctx context.Context, req bridge.Request) (bridge.Result, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return bridge.Result{}, fmt.Errorf("httpclient: marshal request: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return bridge.Result{}, fmt.Errorf("httpclient: session write: %w", err)
	}

	_, reply, err := s.conn.Read(ctx)
	if err != nil {
		return bridge.Result{}, fmt.Errorf("httpclient: session read: %w", err)
	}

	var result bridge.Result
	if err := json.Unmarshal(reply, &result); err != nil {
		return bridge.Result{}, fmt.Errorf("httpclient: decode envelope: %w", err)
	}

	return result, nil
}

// Close ends the session.
func (s *Session) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}
