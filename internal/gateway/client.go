package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// defaultTimeout bounds a single backend round trip.
const defaultTimeout = 10 * time.Second

// Config contains backend connection settings.
type Config struct {
	// BaseURL is the backend address, e.g. "http://localhost:8000".
	BaseURL string

	// Timeout is the per-request timeout. Zero means the default (10s).
	Timeout time.Duration
}

// Client is the typed backend client. All methods are safe for concurrent
// use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	tokenMu sync.RWMutex
	token   string
}

// New creates a backend client for the given configuration.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("gateway: base URL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetToken sets the bearer token attached to subsequent requests.
// An empty token clears authentication.
func (c *Client) SetToken(token string) {
	c.tokenMu.Lock()
	c.token = token
	c.tokenMu.Unlock()
}

// envelope is the backend's common response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// get performs a GET request and decodes the envelope's data into dest.
// dest may be nil when the caller only cares about success.
func (c *Client) get(ctx context.Context, path string, query url.Values, dest any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, dest)
}

// post performs a POST request with a JSON body and decodes the envelope's
// data into dest. body and dest may each be nil.
func (c *Client) post(ctx context.Context, path string, body, dest any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, dest)
}

// delete performs a DELETE request.
func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// do performs one round trip, unwraps the envelope, and applies the error
// taxonomy described in the package doc.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, dest any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway: encoding request for %s: %w", path, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("gateway: building request for %s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.tokenMu.RLock()
	token := c.token
	c.tokenMu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w at %s: %w", ErrUnreachable, c.baseURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read-only body

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("gateway: reading response from %s: %w", path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrUnauthorized, envelopeMessage(payload, "session rejected"))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			HTTPStatus: resp.StatusCode,
			Message:    envelopeMessage(payload, http.StatusText(resp.StatusCode)),
		}
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("gateway: decoding response from %s: %w", path, err)
	}
	if !env.Status {
		msg := env.Message
		if msg == "" {
			msg = "operation failed"
		}
		return &APIError{HTTPStatus: resp.StatusCode, Message: msg}
	}

	if dest == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		// Backend reported success with no payload; leave dest zeroed.
		return nil
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return fmt.Errorf("gateway: decoding data from %s: %w", path, err)
	}
	return nil
}

// envelopeMessage extracts the server message from an error response body,
// falling back to the given default.
func envelopeMessage(payload []byte, fallback string) string {
	var env envelope
	if err := json.Unmarshal(payload, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return fallback
}
