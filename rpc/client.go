package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/rpcclient/config"
	"github.com/kbukum/rpcclient/httpclient"
	"github.com/kbukum/rpcclient/logger"
	"github.com/kbukum/rpcclient/observability"
	"github.com/kbukum/rpcclient/stream"
)

const (
	callPrefix   = "http/"
	streamPrefix = "sse/"
)

// ErrInvalidResponse is returned when a successful response body is not JSON.
var ErrInvalidResponse = errors.New("rpc: invalid response body")

// Client is safe for concurrent use. Besides the normalized base URL it
// holds only shared transport.
type Client struct {
	baseURL       string
	streamTimeout time.Duration
	http          *httpclient.Client
	dialer        stream.Dialer
	log           *logger.Logger
	streamLog     *logger.Logger
	metrics       *observability.ClientMetrics
}

type settings struct {
	cfg     Config
	http    *httpclient.Client
	dialer  stream.Dialer
	log     *logger.Logger
	metrics *observability.ClientMetrics
}

// Option configures a Client.
type Option func(*settings)

// WithTimeout sets the request/response call timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.cfg.Timeout = d }
}

// WithStreamTimeout sets the default stream inactivity interval.
func WithStreamTimeout(d time.Duration) Option {
	return func(s *settings) { s.cfg.StreamTimeout = d }
}

// WithHeaders adds default headers for calls and streams.
func WithHeaders(h map[string]string) Option {
	return func(s *settings) {
		if s.cfg.Headers == nil {
			s.cfg.Headers = make(map[string]string, len(h))
		}
		for k, v := range h {
			s.cfg.Headers[k] = v
		}
	}
}

// WithHTTPClient supplies a preconfigured request invoker. Timeout, header
// and HTTP2 settings are then taken from it.
func WithHTTPClient(c *httpclient.Client) Option {
	return func(s *settings) { s.http = c }
}

// WithDialer replaces the stream transport.
func WithDialer(d stream.Dialer) Option {
	return func(s *settings) { s.dialer = d }
}

// WithLogger overrides the component logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithMetrics overrides the metric instruments.
func WithMetrics(m *observability.ClientMetrics) Option {
	return func(s *settings) { s.metrics = m }
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	return NewFromConfig(Config{BaseURL: baseURL}, opts...)
}

// NewFromConfig validates cfg and creates a client.
func NewFromConfig(cfg Config, opts ...Option) (*Client, error) {
	s := settings{cfg: cfg}
	for _, opt := range opts {
		opt(&s)
	}
	if err := config.Validate(&s.cfg); err != nil {
		return nil, err
	}
	// A caller-supplied logger is used by every layer as is.
	component := func(name string) *logger.Logger {
		if s.log != nil {
			return s.log
		}
		return logger.Get(name)
	}
	if s.metrics == nil {
		s.metrics = observability.DefaultClientMetrics()
	}

	if s.http == nil {
		hc, err := httpclient.New(httpclient.Config{
			Timeout: s.cfg.Timeout,
			Headers: s.cfg.Headers,
			HTTP2:   s.cfg.HTTP2,
		}, httpclient.WithLogger(component("httpclient")), httpclient.WithMetrics(s.metrics))
		if err != nil {
			return nil, err
		}
		s.http = hc
	}
	if s.dialer == nil {
		s.dialer = &stream.SSEDialer{
			Client:  s.http.StreamClient(),
			Headers: s.cfg.Headers,
			Logger:  component("sse"),
		}
	}

	c := &Client{
		baseURL:       NormalizeBaseURL(s.cfg.BaseURL),
		streamTimeout: s.cfg.StreamTimeout,
		http:          s.http,
		dialer:        s.dialer,
		log:           component("rpc"),
		streamLog:     component("stream"),
		metrics:       s.metrics,
	}
	c.log.Debug("client created", logger.Fields(logger.FieldURL, c.baseURL))
	return c, nil
}

// NormalizeBaseURL appends "/" to u when missing.
func NormalizeBaseURL(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CallURL returns the request/response URL for path and params.
func (c *Client) CallURL(path string, params httpclient.Params) string {
	return c.baseURL + callPrefix + strings.TrimPrefix(path, "/") + httpclient.EncodeQuery(params)
}

// StreamURL returns the stream URL for path and params.
func (c *Client) StreamURL(path string, params httpclient.Params) string {
	return c.baseURL + streamPrefix + strings.TrimPrefix(path, "/") + httpclient.EncodeQuery(params)
}

// HTTPGet calls GET {base}http/{path}{query} and returns the decoded body.
func (c *Client) HTTPGet(ctx context.Context, path string, params httpclient.Params) (any, error) {
	var out any
	if err := c.get(ctx, path, params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// HTTPPost calls POST {base}http/{path}{query} with body as JSON and returns
// the decoded response body.
func (c *Client) HTTPPost(ctx context.Context, path string, body any, params httpclient.Params) (any, error) {
	var out any
	if err := c.post(ctx, path, body, params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params httpclient.Params, out any) error {
	url := c.CallURL(path, params)
	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return err
	}
	return decode(url, resp.Body, out)
}

func (c *Client) post(ctx context.Context, path string, body any, params httpclient.Params, out any) error {
	url := c.CallURL(path, params)
	resp, err := c.http.Post(ctx, url, body)
	if err != nil {
		return err
	}
	return decode(url, resp.Body, out)
}

// decode leaves out untouched for an empty body.
func decode(url string, body []byte, out any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w from %s: %v", ErrInvalidResponse, url, err)
	}
	return nil
}

// StreamOption configures one stream.
type StreamOption func(*stream.Options)

// WithErrorHandler receives payloads that could not be decoded.
func WithErrorHandler(fn stream.ErrorFunc) StreamOption {
	return func(o *stream.Options) { o.OnError = fn }
}

// OpenStream subscribes to {base}sse/{path}{query}. A positive timeout
// replaces the connection after that long without events; zero or negative
// falls back to the configured stream timeout. The session is returned
// immediately.
func (c *Client) OpenStream(path string, onData stream.DataFunc, params httpclient.Params, timeout time.Duration, opts ...StreamOption) *stream.Session {
	if timeout <= 0 {
		timeout = c.streamTimeout
	}
	o := stream.Options{
		URL:     c.StreamURL(path, params),
		OnData:  onData,
		Timeout: timeout,
		Dialer:  c.dialer,
		Logger:  c.streamLog,
		Metrics: c.metrics,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return stream.Open(o)
}
