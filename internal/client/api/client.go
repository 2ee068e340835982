// Package api provides the HTTP transport used by the notes client: a small
// JSON-over-HTTPS REST client with a switchable default bearer token.
package api

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

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxErrorBody caps how much of an error response is read into memory.
const maxErrorBody = 64 << 10

// Client issues requests against the notes API. The default Authorization
// header is shared by all requests and is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger

	mu            sync.RWMutex
	authorization string
}

// NewClient creates a Client for baseURL. A nil httpClient selects a client
// with a 10 second timeout; a nil logger disables logging.
func NewClient(baseURL string, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     log,
	}
}

// SetBearer makes every subsequent request carry "Authorization: Bearer <token>".
func (c *Client) SetBearer(token string) {
	c.mu.Lock()
	c.authorization = "Bearer " + token
	c.mu.Unlock()
}

// ClearBearer removes the default Authorization header.
func (c *Client) ClearBearer() {
	c.mu.Lock()
	c.authorization = ""
	c.mu.Unlock()
}

// Authorization returns the current default Authorization header value.
func (c *Client) Authorization() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authorization
}

// RequestOption adjusts a single outgoing request.
type RequestOption func(*http.Request)

// WithBearer attaches token to one request, overriding the default header.
func WithBearer(token string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

// Do sends a JSON request and decodes a JSON response into out. in and out
// may be nil. Non-2xx responses are returned as *Error.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in, out any, opts ...RequestOption) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out, opts)
}

// PostForm sends an application/x-www-form-urlencoded POST and decodes the
// JSON response into out.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, out any, opts ...RequestOption) error {
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.send(req, out, opts)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if auth := c.Authorization(); auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any, opts []RequestOption) error {
	for _, opt := range opts {
		opt(req)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Error(err),
		)
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("request done",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("request_id", req.Header.Get("X-Request-ID")),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{Status: resp.StatusCode, Message: extractMessage(resp.StatusCode, data)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Status: resp.StatusCode, Message: "invalid response", Internal: err}
	}
	return nil
}
