package crm

import (
	"net/http"
	"time"

	"github.com/okian/kpiboard/pkg/logger"
)

// Option configures a Client.
type Option func(*Client)

// WithToken sets a fixed bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = func() string { return token }
	}
}

// WithTokenFunc reads the bearer token on every request, so a session can
// replace it without rebuilding the client.
func WithTokenFunc(f func() string) Option {
	return func(c *Client) {
		if f != nil {
			c.token = f
		}
	}
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
