package esi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"eve-hubarb/internal/logger"
)

// DefaultBaseURL is the public ESI endpoint.
const DefaultBaseURL = "https://esi.evetech.net/latest"

// ErrNotFound is returned for a 404 response. For paginated endpoints it means
// the requested page is past the end.
var ErrNotFound = errors.New("esi: not found")

// StatusError is a non-2xx ESI response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ESI %d: %s", e.Code, e.Body)
}

// retryable reports whether a request that failed with err may be retried.
func retryable(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == 420 || se.Code == http.StatusTooManyRequests
	}
	return true
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxConcurrent     int
	// Retries is the number of extra attempts for a transient failure. 0 disables retry.
	Retries     int
	BackoffBase time.Duration
}

func (o *Options) withDefaults() {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.UserAgent == "" {
		o.UserAgent = "eve-hubarb/1.0 (github.com)"
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 20
	}
	if o.Burst <= 0 {
		o.Burst = 20
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 10
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 500 * time.Millisecond
	}
}

// Client is a rate-limited ESI HTTP client.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	sem     chan struct{}
	opts    Options

	pages   *PageCache
	group   singleflight.Group
	retries atomic.Int64
	calls   atomic.Int64
}

// NewClient creates an ESI client. Zero-valued options take defaults.
func NewClient(opts Options) *Client {
	opts.withDefaults()
	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		sem:     make(chan struct{}, opts.MaxConcurrent),
		opts:    opts,
		pages:   NewPageCache(),
	}
}

// Calls returns the number of HTTP requests sent, retries included.
func (c *Client) Calls() int64 { return c.calls.Load() }

// Retries returns the number of retried requests.
func (c *Client) Retries() int64 { return c.retries.Load() }

// CachedPages returns the number of order pages held in the page cache.
func (c *Client) CachedPages() int { return c.pages.Len() }

func (c *Client) newRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends one request under the rate limiter and concurrency semaphore.
func (c *Client) do(ctx context.Context, url string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-c.sem }()

	req, err := c.newRequest(ctx, url)
	if err != nil {
		return nil, err
	}
	c.calls.Add(1)
	return c.http.Do(req)
}

// getJSON fetches url and decodes the body into dst, retrying transient
// failures up to Options.Retries times with exponential backoff.
func (c *Client) getJSON(ctx context.Context, url string, dst interface{}) (http.Header, error) {
	var lastErr error
	for attempt := 0; attempt <= c.opts.Retries; attempt++ {
		if attempt > 0 {
			wait := c.opts.BackoffBase << (attempt - 1)
			c.retries.Add(1)
			logger.Warn("ESI", fmt.Sprintf("Retry %d/%d in %s: %v", attempt, c.opts.Retries, wait, lastErr))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		header, err := c.getJSONOnce(ctx, url, dst)
		if err == nil {
			return header, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) getJSONOnce(ctx context.Context, url string, dst interface{}) (http.Header, error) {
	resp, err := c.do(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return resp.Header, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.Header, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return resp.Header, fmt.Errorf("decode %s: %w", url, err)
	}
	return resp.Header, nil
}

// totalPages reads the X-Pages header. Returns 0 when absent.
func totalPages(h http.Header) int {
	if h == nil {
		return 0
	}
	n, err := strconv.Atoi(h.Get("X-Pages"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseExpires reads the Expires header from an ESI response.
// Falls back to a 5-minute TTL if the header is missing or unparseable.
func parseExpires(h http.Header, now time.Time) time.Time {
	if h != nil {
		if exp := h.Get("Expires"); exp != "" {
			if t, err := time.Parse(time.RFC1123, exp); err == nil {
				return t
			}
		}
	}
	return now.Add(5 * time.Minute)
}
