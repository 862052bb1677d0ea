// Package api provides the request gateway for the ZMQ server API.
// This file implements the generic request primitive every endpoint
// method funnels through:
// - Building the header set and attaching the session credential
// - Issuing the HTTP call
// - Decoding successful JSON responses
// - Normalizing failed responses into *Error
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"ZMQ_utils/internal/auth"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Client is the request gateway. It holds the base URL every endpoint is
// appended to and a reference to the session whose credential is attached
// to each request. A Client is safe for concurrent use.
type Client struct {
	baseURL    string
	session    *auth.Session
	httpClient *http.Client
	log        logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the transport used for requests. The default is a
// plain &http.Client{} with no timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request tracing at debug level.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// RequestOptions describes one call to Request. The zero value is a GET
// without a body.
type RequestOptions struct {
	// Method is the HTTP verb, GET when empty
	Method string
	// Body is sent as is; callers serialize JSON themselves
	Body io.Reader
	// Headers override the defaults. Authorization is always replaced by
	// the session credential when one is set.
	Headers map[string]string
}

// Error is returned for every response outside the 2xx range. Message is
// either the backend's "error" field or "HTTP <status>".
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// IsUnauthorized reports whether err is an *Error with status 401 or 403.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// NewClient creates a new gateway for baseURL. Endpoints are appended to
// baseURL verbatim. A nil session is replaced with an empty one.
//
// Parameters:
//   - baseURL: Prefix for every endpoint, e.g. http://localhost:3000/api
//   - session: Credential state shared with the caller
//   - opts: Optional transport and logger overrides
//
// Returns:
//   - *Client: A new gateway instance
func NewClient(baseURL string, session *auth.Session, opts ...Option) *Client {
	if session == nil {
		session = auth.NewSession("")
	}
	c := &Client{
		baseURL:    baseURL,
		session:    session,
		httpClient: &http.Client{},
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the prefix endpoints are appended to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session returns the credential state used by this client.
func (c *Client) Session() *auth.Session {
	return c.session
}

// SetAPIKey replaces the bearer credential used for subsequent requests.
// An empty key removes the Authorization header.
func (c *Client) SetAPIKey(key string) {
	c.session.SetToken(key)
}

// Request issues a call to endpoint and decodes the JSON response into out.
// This is the core function behind every endpoint method.
//
// Parameters:
//   - ctx: Context for the HTTP call
//   - endpoint: Path appended verbatim to the base URL, including any query string
//   - opts: Method, body and header overrides, may be nil
//   - out: Destination for the decoded response body, may be nil
//
// Returns:
//   - error: *Error for non-2xx responses, a wrapped transport or decode error otherwise
func (c *Client) Request(ctx context.Context, endpoint string, opts *RequestOptions, out any) error {
	if opts == nil {
		opts = &RequestOptions{}
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, opts.Body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	// Applied last so an override cannot suppress it.
	if header, ok := c.session.AuthHeader(); ok {
		req.Header.Set("Authorization", header)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"method":   method,
		"endpoint": endpoint,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

// newError builds the error for a failed response. A body that is not
// JSON, or has no usable "error" field, falls back to the status code.
func newError(status int, body []byte) *Error {
	if gjson.ValidBytes(body) {
		if msg, ok := errorField(gjson.GetBytes(body, "error")); ok {
			return &Error{StatusCode: status, Message: msg}
		}
	}
	return &Error{StatusCode: status, Message: fmt.Sprintf("HTTP %d", status)}
}

// errorField converts a truthy "error" value to its message. Empty
// strings, zero, false and null are ignored.
func errorField(v gjson.Result) (string, bool) {
	switch v.Type {
	case gjson.String:
		return v.Str, v.Str != ""
	case gjson.Number:
		return v.Raw, v.Num != 0
	case gjson.True:
		return "true", true
	case gjson.JSON:
		return v.Raw, true
	default:
		return "", false
	}
}
