// Package client provides the HTTP/websocket client for the lorekeep server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/lorekeep/lorekeep/internal/metrics"
	"github.com/lorekeep/lorekeep/internal/server"
	"github.com/lorekeep/lorekeep/internal/stream"
)

// Endpoint describes one server operation for the generic request helper.
type Endpoint struct {
	Method string
	Path   string
}

// Known endpoints.
var (
	EndpointTitle  = Endpoint{Method: http.MethodPost, Path: "/title"}
	EndpointStats  = Endpoint{Method: http.MethodGet, Path: "/stats"}
	EndpointHealth = Endpoint{Method: http.MethodGet, Path: "/health"}
)

// Client talks to the lorekeep server.
type Client struct {
	base       string
	httpClient *http.Client
}

// New creates a client. If base is empty, LOREKEEP_SERVER_URL is consulted,
// falling back to localhost.
func New(base string) *Client {
	if base == "" {
		base = os.Getenv("LOREKEEP_SERVER_URL")
	}
	if base == "" {
		base = "http://localhost:8272"
	}

	return &Client{
		base: base,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// Do sends a request to the endpoint with the given payload and decodes the
// response into result. Failures carry a human-readable message; callers are
// expected to surface it and leave prior state unchanged.
func (c *Client) Do(ctx context.Context, ep Endpoint, payload, result any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, ep.Method, c.base+ep.Path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("server error: %s", apiErr.Message)
		}
		return fmt.Errorf("server error: %s", resp.Status)
	}

	if result != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// Ask starts a turn for the chat and returns a source of its ordered events.
func (c *Client) Ask(ctx context.Context, chatID, prompt string) (*stream.WSSource, error) {
	return stream.Dial(ctx, c.base, chatID, prompt)
}

// Title generates a session title from the opening message.
func (c *Client) Title(ctx context.Context, chatID, text string) (string, error) {
	var resp server.TitleResponse
	err := c.Do(ctx, EndpointTitle, server.TitleRequest{ChatID: chatID, Text: text}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Title, nil
}

// Stats returns the server's runtime statistics.
func (c *Client) Stats(ctx context.Context) (*metrics.Snapshot, error) {
	var snap metrics.Snapshot
	if err := c.Do(ctx, EndpointStats, nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Health checks server liveness.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+EndpointHealth.Path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy: %s", resp.Status)
	}
	return nil
}
