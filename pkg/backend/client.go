package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// APIKeyHeader carries the backend API key on every request
const APIKeyHeader = "x-api-key"

const (
	updateAttempts     = 3
	defaultUpdateDelay = time.Second
	fiatRetries        = 3
	defaultFiatDelay   = 5 * time.Second
)

// StatusError is returned for any non-2xx response
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status code %d", e.Method, e.Path, e.Code)
}

// IsStatus reports whether err is a StatusError with the given code
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// Client talks to the launchpad backend and the fiat price API
type Client struct {
	baseURL     string
	apiKey      string
	fiatURL     string
	http        *http.Client
	limiter     *rate.Limiter
	retryDelay  time.Duration
	updateDelay time.Duration
	logger      *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithFiatURL sets the fiat conversion endpoint
func WithFiatURL(url string) Option {
	return func(c *Client) { c.fiatURL = url }
}

// WithRateLimit paces fiat conversion requests
func WithRateLimit(every time.Duration, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Every(every), burst) }
}

// WithRetryDelay sets the wait between fiat retries after a 429
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// WithUpdateDelay sets the wait between conversion update attempts
func WithUpdateDelay(d time.Duration) Option {
	return func(c *Client) { c.updateDelay = d }
}

// WithLogger sets the client logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a backend client
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		http:        &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(rate.Every(time.Second), 1),
		retryDelay:  defaultFiatDelay,
		updateDelay: defaultUpdateDelay,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, url string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: req.URL.Path, Code: resp.StatusCode, Body: string(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}
