package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/anonboard/internal/http/respond"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 4 << 20
)

// Client issues JSON requests against the board API, attaching the shared
// credential to every call and running registered interceptors on every
// response.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      *Credentials
	logger     *slog.Logger

	mu           sync.RWMutex
	interceptors []registered
	nextID       int
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every request made through the default transport.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a Client rooted at baseURL. creds may be shared with the
// session layer; a nil value means requests are never authorized.
func New(baseURL string, creds *Credentials, opts ...Option) *Client {
	if creds == nil {
		creds = NewCredentials()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		creds:      creds,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get decodes the envelope data of GET path into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post sends body as JSON and decodes the envelope data into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Put sends body as JSON and decodes the envelope data into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

// Delete issues a DELETE and decodes the envelope data into out.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out)
}

// Do performs one request. HTTP error statuses come back as *APIError,
// failures without a response wrap ErrTransport. There are no retries.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		wrapped := fmt.Errorf("%s %s: %w: %w", method, path, ErrTransport, err)
		c.logger.Debug("apiclient.request.transport_error", "method", method, "path", path, "error", err)
		c.intercept(ctx, nil, wrapped)
		return wrapped
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		wrapped := fmt.Errorf("%s %s: %w: read body: %w", method, path, ErrTransport, err)
		c.intercept(ctx, nil, wrapped)
		return wrapped
	}

	c.logger.Debug("apiclient.request.done",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", req.Header.Get("X-Request-ID"),
		"elapsed", time.Since(started),
	)

	res := &Response{Method: method, Path: path, Status: resp.StatusCode}
	var env respond.Envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode, Method: method, Path: path}
		if decodeErr == nil && env.Error != nil {
			apiErr.Message = env.Error.Message
			apiErr.Code = env.Error.Code
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		c.intercept(ctx, res, apiErr)
		return apiErr
	}

	c.intercept(ctx, res, nil)
	if out == nil || len(raw) == 0 {
		return nil
	}
	if decodeErr != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrDecode, decodeErr)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrDecode, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if auth := c.creds.Authorization(); auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return req, nil
}
