package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

var (
	// ErrBadHTTPStatus is returned for any response outside the 2xx range.
	ErrBadHTTPStatus = errors.New("unexpected http status")
	// ErrNotFound is returned for 404 responses. It also matches ErrBadHTTPStatus.
	ErrNotFound = fmt.Errorf("%w: not found", ErrBadHTTPStatus)
	// errEmptyURL is returned when a request has no target.
	errEmptyURL = errors.New("request URL must be provided")
)

const (
	retryWaitMin = 1 * time.Second
	retryWaitMax = 30 * time.Second

	// errorBodyLimit caps how much of a failed response ends up in the error.
	errorBodyLimit = 512
)

// Client performs HTTP requests and checks their status.
type Client struct {
	// httpClient is the retrying client; RetryMax defaults to zero.
	httpClient *retryablehttp.Client
	// userAgent is sent with every request when set.
	userAgent string
}

// Option configures client behaviour.
type Option func(*Client)

// WithTimeout sets the per-request timeout. Without it requests rely on ctx.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.HTTPClient.Timeout = timeout
		}
	}
}

// WithRetries allows up to n extra attempts on connection errors and 5xx answers.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.httpClient.RetryMax = n
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithLogger routes retry diagnostics to l.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.httpClient.Logger = newLeveledLogger(l)
		}
	}
}

// New creates a Client. Without options failures are not retried.
func New(opts ...Option) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryWaitMin = retryWaitMin
	httpClient.RetryWaitMax = retryWaitMax
	httpClient.RetryMax = 0
	httpClient.Logger = nil
	// Hand the last response back so its status is classified below.
	httpClient.ErrorHandler = func(resp *http.Response, err error, attempts int) (*http.Response, error) {
		if resp != nil {
			return resp, nil
		}

		return nil, fmt.Errorf("giving up after %d attempt(s): %w", attempts, err)
	}

	c := &Client{
		httpClient: httpClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Request describes one call.
type Request struct {
	// Method defaults to GET.
	Method string
	// URL is the absolute target; Query is merged into it.
	URL   string
	Query url.Values
	// Body is sent as-is; ContentType labels it.
	Body        []byte
	ContentType string
	// Username and Password enable basic authentication when Username is set.
	Username string
	Password string
}

// Get downloads url and returns the body of a 2xx response.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	return c.Send(ctx, &Request{URL: rawURL})
}

// Send performs r and returns the body of a 2xx response.
func (c *Client) Send(ctx context.Context, r *Request) ([]byte, error) {
	if r.URL == "" {
		return nil, errEmptyURL
	}

	target, err := url.Parse(r.URL)
	if err != nil {
		return nil, fmt.Errorf("parse request URL: %w", err)
	}

	if len(r.Query) > 0 {
		query := target.Query()
		for key, values := range r.Query {
			for _, value := range values {
				query.Add(key, value)
			}
		}

		target.RawQuery = query.Encode()
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var body any
	if r.Body != nil {
		body = r.Body
	}

	finalURL := target.String()

	req, err := retryablehttp.NewRequestWithContext(ctx, method, finalURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if r.Username != "" {
		req.SetBasicAuth(r.Username, r.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, finalURL, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s %s, %s: %w", method, finalURL, resp.Status, ErrNotFound)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if detail := errorDetail(resp.Body); detail != "" {
			return nil, fmt.Errorf("%s %s, %s (%s): %w", method, finalURL, resp.Status, detail, ErrBadHTTPStatus)
		}

		return nil, fmt.Errorf("%s %s, %s: %w", method, finalURL, resp.Status, ErrBadHTTPStatus)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return data, nil
}

// errorDetail returns the start of a failed response body on one line.
func errorDetail(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, errorBodyLimit))
	if err != nil {
		return ""
	}

	return strings.Join(strings.Fields(string(data)), " ")
}
