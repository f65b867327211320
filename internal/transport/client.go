// Package transport is the HTTP client shared by the bank sources. Every
// request goes through a rate limiter and is retried with exponential
// backoff while the site answers with a server error or an empty body.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/agentstation/atmap/pkg/constants"
	"github.com/agentstation/atmap/pkg/errors"
	"github.com/agentstation/atmap/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client performs requests against one bank site.
type Client struct {
	source     string
	http       *http.Client
	decorators []Decorator
	retry      RetryConfig
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http.Timeout = d
		}
	}
}

// WithRetry sets the retry policy.
func WithRetry(cfg RetryConfig) Option {
	return func(cl *Client) {
		cl.retry = cfg
	}
}

// WithRequestDelay sets the minimum spacing between two requests. Zero
// disables the limit.
func WithRequestDelay(d time.Duration) Option {
	return func(cl *Client) {
		if d <= 0 {
			cl.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		cl.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithDecorators adds request decorators such as a Referer header.
func WithDecorators(d ...Decorator) Option {
	return func(cl *Client) {
		cl.decorators = append(cl.decorators, d...)
	}
}

// New creates a client for the named source.
func New(source string, opts ...Option) *Client {
	c := &Client{
		source:  source,
		http:    &http.Client{Timeout: DefaultHTTPTimeout},
		retry:   DefaultRetryConfig(),
		limiter: rate.NewLimiter(rate.Every(constants.DefaultRequestDelay), 1),
		decorators: []Decorator{
			HeaderDecorator{Header: "User-Agent", Value: constants.UserAgent},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CallOption adjusts a single call.
type CallOption func(*call)

type call struct {
	retryOnEmpty bool
	emptyMarkers []string
	decorators   []Decorator
}

// Decorate applies d to this call's request after the client decorators.
func Decorate(d ...Decorator) CallOption {
	return func(c *call) {
		c.decorators = append(c.decorators, d...)
	}
}

// RetryOnEmpty treats a blank body, or one equal to any of markers after
// trimming, as a transient failure.
func RetryOnEmpty(markers ...string) CallOption {
	return func(c *call) {
		c.retryOnEmpty = true
		c.emptyMarkers = append(c.emptyMarkers, markers...)
	}
}

// Get fetches url and returns the response body.
func (c *Client) Get(ctx context.Context, url string, opts ...CallOption) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, nil, opts...)
}

// PostJSON sends payload as a JSON body and returns the response body.
func (c *Client) PostJSON(ctx context.Context, url string, payload any, opts ...CallOption) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.WrapParse("json", "request payload", err)
	}
	return c.do(ctx, http.MethodPost, url, body, opts...)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, opts ...CallOption) ([]byte, error) {
	cl := &call{}
	for _, opt := range opts {
		opt(cl)
	}

	logger := logging.FromContext(ctx)
	attempt := 0
	var out []byte
	err := Retry(ctx, c.retry, func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return Permanent(errors.Join(errors.ErrCanceled, err))
		}

		data, err := c.once(ctx, method, url, body, cl.decorators)
		if err == nil && cl.retryOnEmpty && isEmpty(data, cl.emptyMarkers) {
			err = &errors.APIError{
				Source:   c.source,
				Endpoint: url,
				Message:  "empty response",
				Err:      errors.ErrEmptyResponse,
			}
		}
		if err != nil {
			logger.Debug().
				Err(err).
				Str("url", url).
				Int("attempt", attempt).
				Msg("Request failed")
			if !retryable(err) {
				return Permanent(err)
			}
			return err
		}

		out = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) once(ctx context.Context, method, url string, body []byte, extra []Decorator) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &errors.APIError{Source: c.source, Endpoint: url, Message: "invalid request", Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		req.Header.Set("Accept", "application/json")
	}
	for _, d := range c.decorators {
		d.Apply(req)
	}
	for _, d := range extra {
		d.Apply(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Join(errors.ErrCanceled, ctx.Err())
		}
		// Network failures are retried like a 503.
		return nil, &errors.APIError{
			Source:     c.source,
			StatusCode: http.StatusServiceUnavailable,
			Endpoint:   url,
			Message:    err.Error(),
			Err:        err,
		}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &errors.APIError{
			Source:     c.source,
			StatusCode: resp.StatusCode,
			Endpoint:   url,
			Message:    truncate(string(data), 200),
		}
	}
	return data, nil
}

func retryable(err error) bool {
	if errors.IsCanceled(err) {
		return false
	}
	return errors.IsSourceUnavailable(err) || errors.Is(err, errors.ErrEmptyResponse)
}

func isEmpty(data []byte, markers []string) bool {
	s := strings.TrimSpace(string(data))
	if s == "" {
		return true
	}
	for _, m := range markers {
		if s == m {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
