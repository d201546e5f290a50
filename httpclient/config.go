package httpclient

import (
	"fmt"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
)

// Config configures the HTTP client.
type Config struct {
	// Timeout bounds a whole request/response call. Defaults to 30s.
	// Streams are not subject to it.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Headers are default headers applied to every request and stream.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// HTTP2 enables HTTP/2 on the transport for TLS endpoints.
	HTTP2 bool `yaml:"http2" mapstructure:"http2"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	for k := range c.Headers {
		if k == "" {
			return fmt.Errorf("httpclient: empty header name")
		}
	}
	return nil
}
