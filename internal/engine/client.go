// Package engine talks to an SGLang inference engine over its native HTTP API.
//
// Generate streams token ids rather than text: detokenization, stop-sequence
// handling and tool-call parsing happen on the gateway side.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strings"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Client is an SGLang engine client. It is safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	incremental bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Its transport is responsible for
// authentication; its Timeout must be zero or long enough for full streams.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithIncrementalOutput declares that the engine runs with
// --incremental-streaming-output and sends only new output ids per event.
func WithIncrementalOutput(incremental bool) Option {
	return func(cl *Client) {
		cl.incremental = incremental
	}
}

// NewClient creates a client for the engine at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid engine url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid engine url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate starts a streaming generation. Request-level failures (connection
// errors, non-2xx responses) are returned directly; failures after the stream
// started are yielded by the iterator.
//
// The response body is closed when iteration ends, including when the caller
// breaks out of the loop early.
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (iter.Seq2[Event, error], error) {
	body := *req
	body.Stream = true

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		return nil, readStatusError(resp)
	}

	return newStream(resp.Body, c.incremental).events(), nil
}

// Health probes the engine's /health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("creating health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return readStatusError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func readStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := errorMessage(bytes.TrimSpace(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}
