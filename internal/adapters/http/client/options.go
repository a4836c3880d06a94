package client

import (
	"net/http"
	"time"

	"github.com/okian/insightpipe/pkg/logger"
	"github.com/okian/insightpipe/pkg/metrics"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithHealthURL sets an explicit health endpoint instead of deriving one
// from the base URL.
func WithHealthURL(healthURL string) Option {
	return func(c *Client) {
		c.healthOverride = healthURL
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics manager requests are recorded on.
func WithMetrics(m *metrics.Manager) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTimeout bounds each round trip. Zero or negative leaves it unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRequestIDs toggles the X-Request-ID header.
func WithRequestIDs(enabled bool) Option {
	return func(c *Client) {
		c.requestIDs = enabled
	}
}

// SaveOption adjusts a SaveDocument call.
type SaveOption func(*saveSettings)

type saveSettings struct {
	overwrite bool
}

// WithOverwrite controls whether an existing document with the same title is
// replaced. Defaults to true.
func WithOverwrite(overwrite bool) SaveOption {
	return func(s *saveSettings) {
		s.overwrite = overwrite
	}
}
