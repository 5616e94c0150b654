package client

import (
	"time"

	"github.com/1broseidon/sqlai/common"
	"github.com/1broseidon/sqlai/internal/logging"
	"github.com/1broseidon/sqlai/transport"
)

// ClientOption is a function type for configuring the Client.
type ClientOption func(*Client)

// WithLogger sets the logger for the client.
// The provided logger will be used by the client, its transport and every provider it builds.
func WithLogger(logger logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithLogLevel sets the log level for the client.
// It is applied after all options, so it also reaches a logger given through WithLogger.
func WithLogLevel(level common.LogLevel) ClientOption {
	return func(c *Client) {
		c.level = &level
	}
}

// WithTransport replaces the HTTP transport shared by all providers.
func WithTransport(t transport.Poster) ClientOption {
	return func(c *Client) {
		c.transport = t
	}
}

// WithTimeout bounds each provider call. Defaults to common.DefaultTimeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithBaseURL points one provider at a different endpoint.
func WithBaseURL(provider, baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURLs[provider] = baseURL
	}
}

// WithRegistry replaces the builtin provider registry.
func WithRegistry(r *Registry) ClientOption {
	return func(c *Client) {
		c.registry = r
	}
}
