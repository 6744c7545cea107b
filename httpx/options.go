package httpx

import (
	"time"
)

type Option func(*Client)

// WithTimeout bounds a whole request, reading the response body included.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxIdleConnsPerHost sizes the keep-alive pool used for one flag service.
func WithMaxIdleConnsPerHost(n int) Option {
	return func(c *Client) {
		c.transport.MaxIdleConnsPerHost = n
	}
}

// WithTracing records the phases of every request on the span found in its
// context and propagates the trace context to the server.
func WithTracing() Option {
	return func(c *Client) {
		c.tracing = true
	}
}

// WithMaxResponseBytes makes MakeHTTPRequest fail with ErrResponseTooLarge
// instead of buffering a body larger than n bytes. Zero means no limit.
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		c.maxResponseBytes = n
	}
}
