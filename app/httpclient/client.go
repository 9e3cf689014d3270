package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/politrack/disclosures/app/breaker"
)

const (
	DefaultMaxRetries   = 3
	DefaultRequestDelay = 2 * time.Second
)

// Client wraps every outbound call to one upstream source with a fixed
// inter-request delay, exponential backoff retries on transient errors and
// circuit breaker protection. One client per source; the limiter and the
// breaker are shared by every concurrent batch hitting that source.
type Client struct {
	source     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *breaker.Breaker
	maxRetries  int
	backoffBase time.Duration
	userAgent   string
	headers     map[string]string
}

func NewClient(source string, requestDelay time.Duration, timeout time.Duration,
	b *breaker.Breaker, userAgent string) *Client {
	if requestDelay <= 0 {
		requestDelay = DefaultRequestDelay
	}

	return &Client{
		source:      source,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Every(requestDelay), 1),
		breaker:     b,
		maxRetries:  DefaultMaxRetries,
		backoffBase: time.Second,
		userAgent:   userAgent,
	}
}

// SetHeader adds a header sent with every request, e.g. a referer some
// government endpoints insist on.
func (c *Client) SetHeader(key, value string) {
	if c.headers == nil {
		c.headers = make(map[string]string)
	}
	c.headers[key] = value
}

// Get fetches a URL and returns the response body.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, nil, "")
}

// Post sends a request body and returns the response body.
func (c *Client) Post(ctx context.Context, url string, body []byte, contentType string) ([]byte, error) {
	return c.do(ctx, http.MethodPost, url, body, contentType)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, contentType string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		// Checked per attempt: failures inside this loop can open the
		// circuit, and retries must not fire through an open breaker.
		if allowed, retryAfter := c.breaker.Allow(); !allowed {
			return nil, &CircuitOpenError{Source: c.source, RetryAfter: retryAfter}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		data, err := c.attempt(ctx, method, url, body, contentType)
		if err == nil {
			c.breaker.RecordSuccess()
			return data, nil
		}

		lastErr = err
		c.breaker.RecordFailure()

		if !IsTransient(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if attempt < c.maxRetries {
			delay := c.backoffBase * time.Duration(1<<uint(attempt-1))
			slog.Warn("Request failed, retrying",
				"source", c.source, "url", url,
				"attempt", attempt, "max_retries", c.maxRetries,
				"delay", delay.String(), "error", err)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) attempt(ctx context.Context, method, url string, body []byte, contentType string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// IsCircuitOpen reports whether err is a breaker rejection.
func IsCircuitOpen(err error) bool {
	var openErr *CircuitOpenError
	return errors.As(err, &openErr)
}
