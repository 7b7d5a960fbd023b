// Package http fetches the JSON collection exports read by the remote
// content source.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultBackoff = 500 * time.Millisecond
	UserAgent      = "site-feed/1.0"

	// longest Retry-After we are willing to honor
	maxRetryAfter = 30 * time.Second
)

// Options configures a Client. Zero values fall back to the defaults.
type Options struct {
	Timeout time.Duration
	Retries int           // attempts after the first
	Backoff time.Duration // first wait, doubled on each retry
	Accept  string
}

// Client is a GET-only HTTP client that retries 429 and 5xx responses.
type Client struct {
	hc   *http.Client
	opts Options
}

// NewClient creates a Client
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	opts.Retries = max(opts.Retries, 0)

	return &Client{
		hc:   &http.Client{Timeout: opts.Timeout},
		opts: opts,
	}
}

// Get fetches url. Transport errors and retryable statuses are retried with
// exponential backoff, or after the server's Retry-After when it sends one.
// Once retries run out the last response is returned as is.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	wait := c.opts.Backoff

	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request for %s: %w", url, err)
		}
		req.Header.Set("User-Agent", UserAgent)
		if c.opts.Accept != "" {
			req.Header.Set("Accept", c.opts.Accept)
		}

		final := attempt > c.opts.Retries
		resp, err := c.hc.Do(req)
		switch {
		case err != nil:
			if final || ctx.Err() != nil {
				return nil, fmt.Errorf("GET %s failed after %d attempts: %w", url, attempt, err)
			}
		case final || !retryable(resp.StatusCode):
			return resp, nil
		default:
			if d, ok := retryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
				wait = d
			}
			resp.Body.Close()
			err = fmt.Errorf("status %d", resp.StatusCode)
		}

		slog.Debug("Retrying request", "url", url, "attempt", attempt, "wait", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		wait *= 2
	}
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryAfter parses a Retry-After value given in seconds or as an HTTP date.
func retryAfter(value string, now time.Time) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}

	var d time.Duration
	if secs, err := strconv.Atoi(value); err == nil {
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(value); err == nil {
		d = at.Sub(now)
	} else {
		return 0, false
	}

	return min(max(d, 0), maxRetryAfter), true
}
