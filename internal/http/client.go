package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// Common errors.
var (
	ErrNotFound     = errors.New("http: resource not found")
	ErrForbidden    = errors.New("http: access forbidden")
	ErrUnauthorized = errors.New("http: unauthorized")
	ErrServerError  = errors.New("http: server error")
	ErrEmptyBody    = errors.New("http: empty response body")
)

// DefaultUserAgent is sent when Options.UserAgent is empty. The portal
// rejects some non-browser agents.
const DefaultUserAgent = "Mozilla/5.0 (Linux; Android 14) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Mobile Safari/537.36"

// StatusError is returned for non-2xx responses. It wraps one of the
// sentinel errors above when the status maps to one.
type StatusError struct {
	Code   int
	Status string
	err    error
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return e.Status
	}
	return fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Unwrap() error { return e.err }

// Options configures the HTTP client.
type Options struct {
	// Timeout bounds connecting and waiting for response headers, and the
	// whole of GetText. Streamed bodies from PostForm and Get are only
	// bounded by the caller's context.
	// Default: 60s
	Timeout time.Duration

	// RequestsPerSecond caps outbound requests. Zero disables the limiter.
	// Default: 2
	RequestsPerSecond float64

	// UserAgent is sent with every request.
	// Default: DefaultUserAgent
	UserAgent string

	// Logger receives debug output. Default: log.DefaultLogger
	Logger *log.Logger
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:           60 * time.Second,
		RequestsPerSecond: 2,
		UserAgent:         DefaultUserAgent,
	}
}

// Client is a small HTTP client for the filings portal. It never retries;
// callers decide what a failed request means.
type Client struct {
	client  *http.Client
	limiter *rate.Limiter
	opts    Options
	logger  *log.Logger
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	logger := opts.Logger
	if logger == nil {
		logger = &log.DefaultLogger
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: opts.Timeout}).DialContext,
		TLSHandshakeTimeout:   opts.Timeout,
		ResponseHeaderTimeout: opts.Timeout,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
	}

	c := &Client{
		client: &http.Client{Transport: transport},
		opts:   opts,
		logger: logger,
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c
}

// GetText performs a GET request with the given query and returns the body
// decoded to UTF-8 according to the response charset. An empty body is an
// error.
func (c *Client) GetText(ctx context.Context, rawURL string, query url.Values) (string, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return "", ErrEmptyBody
	}
	return string(body), nil
}

// PostForm submits a form-encoded POST and returns the raw response body.
// The caller must close it.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Get performs a simple GET request and returns the body stream.
// The caller must close it.
func (c *Client) Get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// do waits for the limiter, sends req and checks the status code. On a
// non-2xx status the body is closed and a *StatusError returned.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	c.logger.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("http request")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	if err := checkStatusCode(resp.StatusCode); err != nil {
		resp.Body.Close()
		c.logger.Debug().Str("url", req.URL.String()).Int("status", resp.StatusCode).Msg("http request failed")
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status, err: err}
	}
	return resp, nil
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code >= 500:
		return ErrServerError
	default:
		return fmt.Errorf("unexpected status code: %d", code)
	}
}
