// Package httpclient wraps net/http.Client with convenience methods for the
// small number of JSON endpoints the engine talks to.
package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client wraps an http.Client. The underlying client is injectable so the
// engine can route calls through its intercepted transport.
type Client struct {
	http *http.Client
}

// Response wraps the status code, body bytes, and optional JSON decode error
// from a completed HTTP request. The underlying http.Response body is already
// closed; callers read from Body instead.
type Response struct {
	StatusCode int
	Body       []byte
	JSONErr    error
}

// New creates a Client with a 30-second timeout.
func New() *Client {
	return &Client{http: &http.Client{Timeout: 30 * time.Second}}
}

// NewWithTimeout creates a Client with the given timeout.
func NewWithTimeout(timeout time.Duration) *Client {
	return &Client{http: &http.Client{Timeout: timeout}}
}

// Wrap creates a Client around an existing http.Client.
func Wrap(hc *http.Client) *Client {
	return &Client{http: hc}
}

// RequestOption configures an http.Request before it is sent.
type RequestOption func(*http.Request)

// DoCtx sends an HTTP request, applies options, reads the full body, and
// returns a Response. A non-nil error indicates a network-level failure or
// context cancellation; HTTP error status codes are returned in
// Response.StatusCode.
func (c *Client) DoCtx(ctx context.Context, method, rawURL string, body io.Reader, opts ...RequestOption) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// GetJSONCtx sends a GET request and decodes the response body as JSON into
// out. JSON decode errors are captured in Response.JSONErr rather than
// returned as the function error.
func (c *Client) GetJSONCtx(ctx context.Context, rawURL string, out any, opts ...RequestOption) (*Response, error) {
	resp, err := c.DoCtx(ctx, http.MethodGet, rawURL, nil, opts...)
	if err != nil {
		return nil, err
	}
	if out != nil {
		resp.JSONErr = json.Unmarshal(resp.Body, out)
	}
	return resp, nil
}

// PostFormCtx sends a POST request with URL-encoded form data and decodes
// the response as JSON into out. Content-Type is set automatically.
func (c *Client) PostFormCtx(ctx context.Context, rawURL string, form map[string]string, out any, opts ...RequestOption) (*Response, error) {
	vals := url.Values{}
	for k, v := range form {
		vals.Set(k, v)
	}
	allOpts := append([]RequestOption{WithHeader("Content-Type", "application/x-www-form-urlencoded")}, opts...)
	resp, err := c.DoCtx(ctx, http.MethodPost, rawURL, strings.NewReader(vals.Encode()), allOpts...)
	if err != nil {
		return nil, err
	}
	if out != nil {
		resp.JSONErr = json.Unmarshal(resp.Body, out)
	}
	return resp, nil
}
