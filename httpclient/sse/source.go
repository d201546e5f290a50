package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/kbukum/rpcclient/httpclient"
	"github.com/kbukum/rpcclient/logger"
	"github.com/kbukum/rpcclient/version"
)

// ReadyState mirrors the lifecycle of a browser EventSource.
type ReadyState int32

const (
	Connecting ReadyState = iota
	Open
	Closed
)

// String returns the state name.
func (s ReadyState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Handler receives one dispatched event.
type Handler func(*Event)

// ErrNotEventStream is returned when the server answers with a content type
// other than text/event-stream.
var ErrNotEventStream = errors.New("sse: response is not text/event-stream")

// Source is a single Server-Sent Events connection. Listeners run on the
// connection's read goroutine, one event at a time, in stream order.
type Source struct {
	client  *http.Client
	url     string
	headers http.Header
	log     *logger.Logger
	onOpen  func()
	onError func(error)

	mu          sync.RWMutex
	listeners   map[string][]Handler
	lastEventID string

	state     atomic.Int32
	ctx       context.Context
	cancel    context.CancelFunc
	openOnce  sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// Option configures a Source.
type Option func(*Source)

// WithHeader adds a request header sent on connect.
func WithHeader(key, value string) Option {
	return func(s *Source) { s.headers.Set(key, value) }
}

// WithLastEventID seeds the Last-Event-ID request header.
func WithLastEventID(id string) Option {
	return func(s *Source) { s.lastEventID = id }
}

// WithLogger overrides the component logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Source) { s.log = l }
}

// WithOpenHandler is called once the response headers have been accepted.
func WithOpenHandler(fn func()) Option {
	return func(s *Source) { s.onOpen = fn }
}

// WithErrorHandler is called when the connection fails or the response is
// rejected. It is not called after Close.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Source) { s.onError = fn }
}

// NewSource prepares a connection to url. Nothing is sent until Open.
func NewSource(client *http.Client, url string, opts ...Option) *Source {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Source{
		client:    client,
		url:       url,
		headers:   make(http.Header),
		log:       logger.Get("sse"),
		listeners: make(map[string][]Handler),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(int32(Connecting))
	return s
}

// AddListener registers h for events named event ("message" for unnamed
// events).
func (s *Source) AddListener(event string, h Handler) {
	s.mu.Lock()
	s.listeners[event] = append(s.listeners[event], h)
	s.mu.Unlock()
}

// Open starts the connection on a background goroutine. Calls after the
// first, or after Close, do nothing.
func (s *Source) Open() {
	s.openOnce.Do(func() {
		if s.ReadyState() == Closed {
			close(s.done)
			return
		}
		go s.run()
	})
}

// ReadyState returns the current state.
func (s *Source) ReadyState() ReadyState {
	return ReadyState(s.state.Load())
}

// LastEventID returns the most recent event id seen on the stream.
func (s *Source) LastEventID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastEventID
}

// Done is closed when the read goroutine has exited.
func (s *Source) Done() <-chan struct{} {
	return s.done
}

// Close moves the source to Closed and aborts the connection. It does not
// wait for the read goroutine, so it is safe to call from a listener.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		s.state.Store(int32(Closed))
		s.cancel()
	})
	return nil
}

func (s *Source) run() {
	defer close(s.done)
	defer s.state.Store(int32(Closed))

	resp, err := s.connect()
	if err != nil {
		s.fail(err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if !s.state.CompareAndSwap(int32(Connecting), int32(Open)) {
		return
	}
	s.log.Debug("stream open", logger.Fields(logger.FieldURL, s.url))
	if s.onOpen != nil {
		s.onOpen()
	}

	r := NewReader(resp.Body)
	for {
		ev, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Debug("stream ended", logger.Fields(logger.FieldURL, s.url))
				return
			}
			s.fail(httpclient.NewConnectionError(err))
			return
		}
		if s.ReadyState() == Closed {
			return
		}
		s.dispatch(ev)
	}
}

func (s *Source) connect() (*http.Response, error) {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, httpclient.NewValidationError(fmt.Sprintf("create request: %v", err))
	}
	req.Header.Set("User-Agent", version.UserAgent())
	for k, v := range s.headers {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if id := s.LastEventID(); id != "" {
		req.Header.Set("Last-Event-ID", id)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, httpclient.NewConnectionError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, httpclient.NewTransportError(resp.StatusCode, resp.Status, body)
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "text/event-stream" {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: got %q", ErrNotEventStream, resp.Header.Get("Content-Type"))
	}
	return resp, nil
}

func (s *Source) dispatch(ev *Event) {
	s.mu.Lock()
	if ev.ID != "" {
		s.lastEventID = ev.ID
	}
	handlers := s.listeners[ev.Name()]
	s.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

func (s *Source) fail(err error) {
	// Errors caused by Close are expected.
	if s.ctx.Err() != nil {
		return
	}
	s.state.Store(int32(Closed))
	s.log.WithError(err).Warn("stream failed", logger.Fields(logger.FieldURL, s.url))
	if s.onError != nil {
		s.onError(err)
	}
}
