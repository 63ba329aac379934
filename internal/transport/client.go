// Package transport provides the HTTP client used to talk to the admin API.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client defaults.
const (
	DefaultTimeout   = 30 * time.Second
	maxResponseBytes = 10 << 20 // 10 MB
)

// RequestIDHeader is the HTTP header carrying the per-request id.
const RequestIDHeader = "X-Request-ID"

// Request describes one call to the admin API.
type Request struct {
	// Endpoint is appended to the base URL, e.g. "/person/42".
	Endpoint string
	// Method defaults to GET.
	Method string
	// Data is JSON-encoded as the request body for non-GET methods.
	Data any
	// Params are added to the query string.
	Params url.Values
	// Headers are sent in addition to the defaults.
	Headers map[string]string
	// UseAuthToken adds "Authorization: Bearer <token>" from the TokenSource.
	UseAuthToken bool
	// SuppressErrorNotification keeps failures away from the notifier.
	SuppressErrorNotification bool
}

// Response is a decoded API response.
type Response struct {
	StatusCode int
	Header     http.Header
	// Data is the decoded JSON body (map[string]any, []any, ...), the raw body
	// as a string when it is not JSON, or nil when empty.
	Data any
	// Body is the raw response body.
	Body []byte
}

// Decode unmarshals the raw body into out.
func (r *Response) Decode(out any) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// TokenSource supplies the bearer token for authenticated requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// ErrorNotifier receives a human-readable message for every failed request.
type ErrorNotifier interface {
	Error(message string)
}

// Client calls the admin API relative to a base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	notifier   ErrorNotifier
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the underlying client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithNotifier sets the sink for failure messages.
func WithNotifier(n ErrorNotifier) Option {
	return func(c *Client) {
		c.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client for baseURL. An empty baseURL is accepted here and
// reported as ErrMissingBaseURL on every call.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSpace(baseURL),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs req. Configuration problems are returned before any network
// activity. Network failures and non-2xx responses are returned as *Error and
// reported to the notifier unless suppressed.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := c.newRequest(ctx, method, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		clientRequestsTotal.WithLabelValues(method, "error").Inc()
		return nil, c.fail(req, &Error{Method: method, Endpoint: req.Endpoint, Err: err})
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	clientRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	clientRequestsTotal.WithLabelValues(method, strconv.Itoa(httpResp.StatusCode)).Inc()
	if err != nil {
		return nil, c.fail(req, &Error{
			Method:     method,
			Endpoint:   req.Endpoint,
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("reading response body: %w", err),
		})
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, c.fail(req, &Error{
			Method:     method,
			Endpoint:   req.Endpoint,
			StatusCode: httpResp.StatusCode,
			Message:    errorMessage(body),
		})
	}

	c.logger.Debug("api request completed",
		zap.String("method", method),
		zap.String("endpoint", req.Endpoint),
		zap.Int("status", httpResp.StatusCode),
		zap.String("request_id", httpReq.Header.Get(RequestIDHeader)),
	)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Data:       decodeBody(body),
		Body:       body,
	}, nil
}

// newRequest builds the *http.Request, resolving the base URL and token.
func (c *Client) newRequest(ctx context.Context, method string, req Request) (*http.Request, error) {
	if c.baseURL == "" {
		return nil, ErrMissingBaseURL
	}

	target, err := url.Parse(c.baseURL + req.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid endpoint %q: %v", ErrConfiguration, req.Endpoint, err)
	}
	if len(req.Params) > 0 {
		query := target.Query()
		for key, values := range req.Params {
			for _, v := range values {
				query.Add(key, v)
			}
		}
		target.RawQuery = query.Encode()
	}

	var body io.Reader
	if req.Data != nil && method != http.MethodGet {
		payload, err := json.Marshal(req.Data)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set(RequestIDHeader, uuid.New().String())
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	if req.UseAuthToken {
		if c.tokens == nil {
			return nil, ErrSessionNotInitialized
		}
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolving auth token: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	return httpReq, nil
}

// fail logs err and forwards it to the notifier.
func (c *Client) fail(req Request, err *Error) error {
	c.logger.Error("api request failed",
		zap.String("method", err.Method),
		zap.String("endpoint", err.Endpoint),
		zap.Int("status", err.StatusCode),
		zap.Error(err),
	)

	if c.notifier != nil && !req.SuppressErrorNotification {
		if err.Message != "" {
			c.notifier.Error(err.Message)
		} else {
			c.notifier.Error(err.Error())
		}
	}
	return err
}

// errorMessage extracts the "message" field of a JSON error body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}

// decodeBody decodes JSON, falling back to the raw text.
func decodeBody(body []byte) any {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return string(body)
	}
	return data
}
