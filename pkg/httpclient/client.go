// Package httpclient provides a retrying HTTP client with exponential
// backoff. Retries are limited to transient transport failures: network
// errors and retryable status codes. Application-level 4xx responses are
// never retried.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

type RetryStrategy int

const (
	NoRetry RetryStrategy = iota
	Retry
)

// RetryStrategyFunc classifies a response status code.
type RetryStrategyFunc func(statusCode int) RetryStrategy

// RetryAfterParser extracts a server-suggested retry delay from response
// headers, or 0 when absent.
type RetryAfterParser func(http.Header) time.Duration

type Client struct {
	client      *http.Client
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	parser      RetryAfterParser
	strategy    RetryStrategyFunc
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithMaxAttempts sets the total number of attempts, including the
// first one. Values below 1 are treated as 1.
func WithMaxAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts < 1 {
			attempts = 1
		}
		c.maxAttempts = attempts
	}
}

func WithBaseDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = delay
	}
}

func WithMaxDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.maxDelay = delay
	}
}

func WithRetryAfterParser(parser RetryAfterParser) Option {
	return func(c *Client) {
		c.parser = parser
	}
}

func WithRetryStrategy(strategy RetryStrategyFunc) Option {
	return func(c *Client) {
		c.strategy = strategy
	}
}

func New(opts ...Option) *Client {
	client := &Client{
		client:      &http.Client{Timeout: 60 * time.Second},
		maxAttempts: 3,
		baseDelay:   500 * time.Millisecond,
		maxDelay:    30 * time.Second,
		parser:      ParseRetryAfter,
		strategy:    DefaultRetryStrategy,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// DefaultRetryStrategy retries timeouts, rate limits, and server
// errors. Everything else, including all other 4xx, is final.
func DefaultRetryStrategy(statusCode int) RetryStrategy {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return Retry
	default:
		return NoRetry
	}
}

// Do issues the request, retrying transient failures with exponential
// backoff until the attempt budget is spent. The request body is
// replayed through req.GetBody on each retry.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var lastErr error
	var lastStatus int
	var retryAfter time.Duration

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("failed to recreate request body for retry: %w", err)
				}
				req.Body = body
			}

			// A server-suggested Retry-After wins over the computed
			// backoff; both are capped at maxDelay.
			delay := c.calculateDelay(attempt - 1)
			if retryAfter > delay {
				delay = retryAfter
				if c.maxDelay > 0 && delay > c.maxDelay {
					delay = c.maxDelay
				}
			}
			select {
			case <-time.After(delay):
			case <-req.Context().Done():
				return nil, req.Context().Err()
			}
		}

		resp, retryable, err := c.attemptRequest(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		retryAfter = 0
		if resp != nil {
			lastStatus = resp.StatusCode
			if c.parser != nil {
				retryAfter = c.parser(resp.Header)
			}
			resp.Body.Close()
		}
		if !retryable {
			return nil, lastErr
		}
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}
	}

	return nil, &RetryableError{
		StatusCode: lastStatus,
		Message:    fmt.Sprintf("max attempts (%d) exceeded", c.maxAttempts),
		Err:        lastErr,
	}
}

func (c *Client) attemptRequest(req *http.Request) (*http.Response, bool, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		// Network-level failure (timeout, connection reset): transient
		// unless the context was cancelled.
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, false, err
		}
		return nil, true, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, false, nil
	}

	retryable := c.strategy(resp.StatusCode) == Retry
	return resp, retryable, &StatusError{StatusCode: resp.StatusCode}
}

// calculateDelay returns baseDelay * 2^attempt, capped at maxDelay.
func (c *Client) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(math.Pow(2, float64(attempt))) * c.baseDelay
	if c.maxDelay > 0 && delay > c.maxDelay {
		return c.maxDelay
	}
	return delay
}
