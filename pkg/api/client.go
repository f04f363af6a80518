// Package api provides the REST client for the ITSLanguage platform:
// organisations, students, speech and choice challenges, and the stored
// recordings and recognitions that belong to them.
//
// The client also implements session.URLSigner — audio URLs returned by the
// platform need the access token appended before they are playable — so a
// single *Client can be handed to both REST callers and the streaming
// session engine.
package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/itslanguage/itslanguage-go/internal/resilience"
)

// ErrUnavailable is returned without hitting the network while the API is
// considered down: after several consecutive failures the client backs off
// and only probes the server periodically.
var ErrUnavailable = resilience.ErrOpen

// Config describes how to reach the REST API.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.itslanguage.nl".
	BaseURL string

	// AccessToken is sent as a Bearer token on every request and appended
	// to signed audio URLs.
	AccessToken string

	// Timeout bounds each request. Zero means 30s.
	Timeout time.Duration
}

// Client is the REST client. All methods are safe for concurrent use.
type Client struct {
	rc          *resty.Client
	accessToken string
	breaker     *resilience.Breaker
}

// New creates a Client for the given config.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api: config: BaseURL must not be empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if cfg.AccessToken != "" {
		rc.SetAuthToken(cfg.AccessToken)
	}

	return &Client{
		rc:          rc,
		accessToken: cfg.AccessToken,
		breaker:     resilience.NewBreaker("rest-api", 5, 30*time.Second),
	}, nil
}

// SignURL appends the access token to raw so the URL is directly fetchable.
// It implements session.URLSigner. Malformed URLs are returned unchanged.
func (c *Client) SignURL(raw string) string {
	if c.accessToken == "" || raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("access_token", c.accessToken)
	u.RawQuery = q.Encode()
	return u.String()
}

// Error is a non-2xx response from the API.
type Error struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the server-provided error message, if any.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: server returned %d", e.StatusCode)
}

// errorBody is the JSON shape of API error responses.
type errorBody struct {
	Message string `json:"message"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, "GET", path, func() (*resty.Response, error) {
		return c.rc.R().
			SetContext(ctx).
			SetResult(out).
			SetError(&errorBody{}).
			Get(path)
	})
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, "POST", path, func() (*resty.Response, error) {
		return c.rc.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			SetResult(out).
			SetError(&errorBody{}).
			Post(path)
	})
}

// do routes a request through the circuit breaker. Transport errors and 5xx
// responses count against the breaker; 4xx responses are the caller's
// problem and leave it untouched.
func (c *Client) do(ctx context.Context, method, path string, send func() (*resty.Response, error)) error {
	var resp *resty.Response
	err := c.breaker.Do(ctx, func() error {
		var err error
		resp, err = send()
		if err != nil {
			return err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return fmt.Errorf("server returned %d", resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		if resp != nil && resp.StatusCode() >= http.StatusInternalServerError {
			return checkResponse(resp)
		}
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	return checkResponse(resp)
}

func checkResponse(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	apiErr := &Error{StatusCode: resp.StatusCode()}
	if body, ok := resp.Error().(*errorBody); ok && body != nil {
		apiErr.Message = body.Message
	}
	return apiErr
}
