package stream

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/rpcclient/logger"
	"github.com/kbukum/rpcclient/observability"
	"github.com/kbukum/rpcclient/watchdog"
)

// DataFunc receives one decoded event payload.
type DataFunc func(data any)

// ErrorFunc receives errors that are not delivered to DataFunc.
type ErrorFunc func(err error)

// Options configures a Session.
type Options struct {
	// URL is the stream endpoint, query included.
	URL string
	// OnData is called once per decoded event. Required.
	OnData DataFunc
	// Timeout is the inactivity interval after which the connection is
	// replaced. Zero or negative disables reconnecting.
	Timeout time.Duration
	// Dialer opens connections. Nil means an SSEDialer on http.DefaultClient.
	Dialer Dialer
	// OnError receives *ParseError values. Optional.
	OnError ErrorFunc
	// Logger overrides the stream component logger.
	Logger *logger.Logger
	// Metrics overrides the global client instruments.
	Metrics *observability.ClientMetrics
}

// Session is a live subscription. It is safe for concurrent use.
type Session struct {
	id      string
	url     string
	onData  DataFunc
	onError ErrorFunc
	dialer  Dialer
	log     *logger.Logger
	metrics *observability.ClientMetrics

	// set before the first dial and never replaced
	watchdog *watchdog.Watchdog

	gen    atomic.Uint64
	closed atomic.Bool

	mu         sync.Mutex
	conn       Conn
	reconnects int
}

// Open dials the first connection and returns the active session.
func Open(opts Options) *Session {
	s := &Session{
		id:      uuid.NewString(),
		url:     opts.URL,
		onData:  opts.OnData,
		onError: opts.OnError,
		dialer:  opts.Dialer,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
	if s.dialer == nil {
		s.dialer = &SSEDialer{}
	}
	if s.log == nil {
		s.log = logger.Get("stream")
	}
	if s.metrics == nil {
		s.metrics = observability.DefaultClientMetrics()
	}
	if s.onData == nil {
		s.onData = func(any) {}
	}
	s.log = s.log.WithFields(logger.Fields(logger.FieldSessionID, s.id, logger.FieldURL, s.url))

	s.mu.Lock()
	defer s.mu.Unlock()
	if opts.Timeout > 0 {
		s.watchdog = watchdog.New(opts.Timeout, s.reconnect)
	}
	s.dialLocked("")
	s.log.Debug("stream opened", logger.Fields(logger.FieldTimeout, opts.Timeout.Milliseconds()))
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// IsClosed reports whether the current underlying connection is closed. A
// dropped connection reads as closed until the next reconnect replaces it.
func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn == nil || s.conn.IsClosed()
}

// Reconnects returns how many times the connection has been replaced.
func (s *Session) Reconnects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnects
}

// Close ends the session: the watchdog is stopped, then the connection is
// closed. Later calls do nothing.
func (s *Session) Close() error {
	if s.watchdog != nil {
		s.watchdog.Stop()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return nil
	}
	s.closeConnLocked()
	s.closed.Store(true)
	s.log.Debug("stream closed", logger.Fields(logger.FieldAttempt, s.reconnects))
	return nil
}

// reconnect runs on the watchdog goroutine.
func (s *Session) reconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return
	}

	resume := ""
	if s.conn != nil {
		resume = lastEventID(s.conn)
	}
	s.closeConnLocked()
	s.reconnects++
	s.log.Info("no events within timeout, reconnecting", logger.Fields(
		logger.FieldAttempt, s.reconnects,
		logger.FieldTimeout, s.watchdog.Timeout().Milliseconds(),
	))
	s.metrics.RecordReconnect(context.Background())

	s.dialLocked(resume)
	s.watchdog.Feed()
}

func (s *Session) dialLocked(resume string) {
	gen := s.gen.Add(1)
	s.conn = s.dialer.Dial(s.url, resume, func(payload string) {
		s.handle(gen, payload)
	})
}

func (s *Session) closeConnLocked() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Close(); err != nil {
		s.log.WithError(err).Warn("closing connection failed")
	}
}

// handle runs on the connection's goroutine and takes no session lock.
func (s *Session) handle(gen uint64, payload string) {
	if s.closed.Load() || s.gen.Load() != gen {
		return
	}
	if s.watchdog != nil {
		s.watchdog.Feed()
	}

	var data any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		perr := &ParseError{Payload: payload, Err: err}
		s.log.WithError(perr).Error("dropping undecodable event", logger.Fields(logger.FieldBytes, len(payload)))
		s.metrics.RecordParseError(context.Background())
		if s.onError != nil {
			s.onError(perr)
		}
		return
	}

	s.metrics.RecordStreamEvent(context.Background())
	s.onData(data)
}
