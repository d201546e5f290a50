package rpc

import (
	"time"
)

// Config configures a Client. It is loaded with the config package under
// the "client" key by the CLI.
type Config struct {
	// BaseURL is the service root. A trailing "/" is added when missing.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	// Timeout bounds each request/response call. Zero uses the httpclient default.
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
	// StreamTimeout is the inactivity interval used when OpenStream is
	// given none. Zero disables reconnecting.
	StreamTimeout time.Duration `mapstructure:"stream_timeout" validate:"gte=0"`
	// Headers are sent with every call and stream.
	Headers map[string]string `mapstructure:"headers"`
	// HTTP2 enables HTTP/2 for TLS endpoints.
	HTTP2 bool `mapstructure:"http2"`
}
