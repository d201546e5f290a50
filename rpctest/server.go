package rpctest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/rpcclient/logger"
)

// DataEvent is the event name the client listens for.
const DataEvent = "data"

// Request is a recorded request/response call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// JSON decodes the recorded body into v.
func (r *Request) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// HandlerFunc answers one call. A nil body sends no content; []byte and
// string bodies are written as is; anything else is JSON-encoded.
type HandlerFunc func(req *Request) (status int, body any)

// Server is a fake RPC service backed by httptest.
type Server struct {
	srv       *httptest.Server
	hub       *hub
	log       *logger.Logger
	keepAlive time.Duration

	mu          sync.RWMutex
	handlers    map[string]HandlerFunc
	requests    []Request
	connections map[string]int
	muted       map[string]bool
	nextID      int
}

// Option configures a Server.
type Option func(*Server)

// WithKeepAlive sets the interval of keep-alive comments on streams.
// Comments keep the connection open but are not events.
func WithKeepAlive(d time.Duration) Option {
	return func(s *Server) { s.keepAlive = d }
}

// WithLogger overrides the component logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// NewServer starts a fake service on a loopback port.
func NewServer(opts ...Option) *Server {
	s := &Server{
		log:         logger.Get("rpctest"),
		keepAlive:   30 * time.Second,
		handlers:    make(map[string]HandlerFunc),
		connections: make(map[string]int),
		muted:       make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = newHub(s.log)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Any("/http/*path", s.serveCall)
	engine.GET("/sse/*path", s.serveStream)

	s.srv = httptest.NewServer(engine)
	return s
}

// URL returns the base URL, with a trailing slash.
func (s *Server) URL() string {
	return s.srv.URL + "/"
}

// Client returns an HTTP client configured for the server.
func (s *Server) Client() *http.Client {
	return s.srv.Client()
}

// Close disconnects all streams and shuts the server down.
func (s *Server) Close() {
	s.hub.closeAll()
	s.srv.Close()
}

// Handle registers h for method and path (without the "http/" prefix).
func (s *Server) Handle(method, path string, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[routeKey(method, path)] = h
}

// HandleJSON registers a fixed answer.
func (s *Server) HandleJSON(method, path string, status int, body any) {
	s.Handle(method, path, func(*Request) (int, any) { return status, body })
}

// Requests returns the recorded calls in arrival order.
func (s *Server) Requests() []Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Request(nil), s.requests...)
}

// Publish JSON-encodes v and sends it as a data event to every subscriber
// of path. It returns the number of subscribers reached.
func (s *Server) Publish(path string, v any) int {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.WithError(err).Error("publish: encode payload")
		return 0
	}
	return s.PublishRaw(path, DataEvent, string(data))
}

// PublishRaw sends payload verbatim as an event named event.
func (s *Server) PublishRaw(path, event, payload string) int {
	path = cleanPath(path)
	s.mu.Lock()
	if s.muted[path] {
		s.mu.Unlock()
		return 0
	}
	s.nextID++
	id := fmt.Sprint(s.nextID)
	s.mu.Unlock()

	return s.hub.broadcast(pathPattern(path), &Message{Event: event, ID: id, Data: []byte(payload)})
}

// Mute makes Publish on path a no-op while keeping its streams open, which
// looks like a stale connection to the client.
func (s *Server) Mute(path string, muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted[cleanPath(path)] = muted
}

// DropStreams ends every open stream on path from the server side.
func (s *Server) DropStreams(path string) int {
	return s.hub.drop(pathPattern(cleanPath(path)))
}

// Subscribers returns the number of open streams on path.
func (s *Server) Subscribers(path string) int {
	return s.hub.count(pathPattern(cleanPath(path)))
}

// Connections returns how many streams have ever been opened on path.
func (s *Server) Connections(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connections[cleanPath(path)]
}

func (s *Server) serveCall(c *gin.Context) {
	path := cleanPath(c.Param("path"))
	body, _ := io.ReadAll(c.Request.Body)
	req := Request{
		Method: c.Request.Method,
		Path:   path,
		Query:  c.Request.URL.Query(),
		Header: c.Request.Header.Clone(),
		Body:   body,
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	h, ok := s.handlers[routeKey(req.Method, path)]
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no handler for " + req.Method + " " + path})
		return
	}

	status, out := h(&req)
	switch v := out.(type) {
	case nil:
		c.Status(status)
	case []byte:
		c.Data(status, "application/json", v)
	case string:
		c.Data(status, "application/json", []byte(v))
	default:
		c.JSON(status, v)
	}
}

func (s *Server) serveStream(c *gin.Context) {
	path := cleanPath(c.Param("path"))
	w := c.Writer
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sub := newSubscriber(path + ":" + uuid.NewString())
	s.mu.Lock()
	s.connections[path]++
	s.mu.Unlock()
	s.hub.register(sub)
	defer s.hub.unregister(sub)

	connected, _ := json.Marshal(gin.H{
		"client_id":     sub.id,
		"last_event_id": c.GetHeader("Last-Event-ID"),
	})
	writeEvent(w, &Message{Event: "connected", Data: connected})
	flusher.Flush()

	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			s.log.Debug("subscriber disconnected", logger.Fields("client_id", sub.id))
			return
		case msg, ok := <-sub.events:
			if !ok {
				return
			}
			writeEvent(w, msg)
			flusher.Flush()
		case <-keepAlive.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, msg *Message) {
	if msg.Event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	if msg.ID != "" {
		_, _ = fmt.Fprintf(w, "id: %s\n", msg.ID)
	}
	for _, line := range strings.Split(string(msg.Data), "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = io.WriteString(w, "\n")
}

func cleanPath(p string) string {
	return strings.Trim(p, "/")
}

func routeKey(method, path string) string {
	return strings.ToUpper(method) + " " + cleanPath(path)
}
