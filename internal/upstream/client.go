// Package upstream is the narrow post/health-check surface the translation
// core consumes: a single fixed backend, no discovery, no circuit breaker,
// no retry/backoff (relay has no multi-upstream routing to fail over to).
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sparrowhq/relay/internal/config"
)

// Client issues dialect-C requests to the single configured backend.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	readTimeout time.Duration
}

// New builds a Client from the upstream section of the process config. The
// HTTP client's own timeout is left unset; ConnectTimeout bounds dialing
// and ResponseTimeout bounds the wait for response headers (the transport's
// ResponseHeaderTimeout). No deadline is added to the context callers pass
// to Post.
func New(cfg config.UpstreamConfig) *Client {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		ResponseHeaderTimeout: cfg.ResponseTimeout,
	}

	return &Client{
		httpClient:  &http.Client{Transport: transport},
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		readTimeout: cfg.ReadTimeout,
	}
}

// Post sends a dialect-C request body to the backend's chat-completions
// endpoint. The caller is responsible for closing the returned body and for
// distinguishing a streaming response (Content-Type: text/event-stream)
// from a buffered JSON one.
func (c *Client) Post(ctx context.Context, body []byte) (status int, headers http.Header, respBody io.ReadCloser, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("upstream: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("upstream: request failed: %w", err)
	}

	return resp.StatusCode, resp.Header, resp.Body, nil
}

// ReadTimeout returns the configured maximum gap between streamed chunks.
// The Client does not apply it: Post returns the response body without any
// per-read deadline.
func (c *Client) ReadTimeout() time.Duration {
	return c.readTimeout
}

// HealthCheck treats any HTTP response -- including 4xx/5xx -- as evidence
// the backend is reachable. Only a transport failure (refused connection,
// DNS failure, timeout) counts as unhealthy.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("upstream: build health check request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream: unreachable: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	return nil
}
