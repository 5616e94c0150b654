// Package providers holds what every vendor implementation is built from.
package providers

import (
	"time"

	"github.com/1broseidon/sqlai/common"
	"github.com/1broseidon/sqlai/internal/logging"
	"github.com/1broseidon/sqlai/transport"
)

// Config is handed to a provider factory on every resolution.
// Zero values are replaced by defaults in Normalize.
type Config struct {
	Transport transport.Poster
	Logger    logging.Logger
	Timeout   time.Duration
	// BaseURL overrides the vendor endpoint, scheme://host[:port].
	BaseURL string
}

// Normalize returns a copy of c with every unset field defaulted.
// defaultBaseURL is the vendor's production endpoint.
func (c Config) Normalize(defaultBaseURL string) Config {
	if c.Logger == nil {
		c.Logger = logging.NewNopLogger()
	}
	if c.Transport == nil {
		c.Transport = transport.New(transport.WithLogger(c.Logger))
	}
	if c.Timeout <= 0 {
		c.Timeout = common.DefaultTimeout
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	return c
}
