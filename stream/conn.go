package stream

import (
	"net/http"

	"github.com/kbukum/rpcclient/httpclient/sse"
	"github.com/kbukum/rpcclient/logger"
)

// EventFunc receives the raw payload of one data event.
type EventFunc func(payload string)

// Conn is one underlying push connection.
//
// Close must not wait for an in-flight EventFunc to return.
type Conn interface {
	IsClosed() bool
	Close() error
}

// Dialer opens connections. Events must be delivered on a goroutine owned
// by the connection, never from inside Dial. lastEventID is the resume
// point of the connection being replaced, or empty.
type Dialer interface {
	Dial(url, lastEventID string, onEvent EventFunc) Conn
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(url, lastEventID string, onEvent EventFunc) Conn

// Dial calls f.
func (f DialerFunc) Dial(url, lastEventID string, onEvent EventFunc) Conn {
	return f(url, lastEventID, onEvent)
}

// DataEvent is the event name that carries payloads.
const DataEvent = "data"

// SSEDialer dials Server-Sent Events connections and forwards events named
// DataEvent.
type SSEDialer struct {
	// Client is used without a call timeout. Nil means http.DefaultClient.
	Client *http.Client
	// Headers are sent with every connection attempt.
	Headers map[string]string
	// Logger overrides the sse component logger.
	Logger *logger.Logger
}

// Dial opens an SSE connection to url. It returns immediately; connecting
// happens in the background.
func (d *SSEDialer) Dial(url, lastEventID string, onEvent EventFunc) Conn {
	opts := make([]sse.Option, 0, len(d.Headers)+2)
	for k, v := range d.Headers {
		opts = append(opts, sse.WithHeader(k, v))
	}
	if lastEventID != "" {
		opts = append(opts, sse.WithLastEventID(lastEventID))
	}
	if d.Logger != nil {
		opts = append(opts, sse.WithLogger(d.Logger))
	}

	src := sse.NewSource(d.Client, url, opts...)
	src.AddListener(DataEvent, func(ev *sse.Event) { onEvent(ev.Data) })
	src.Open()
	return &sseConn{src: src}
}

type sseConn struct {
	src *sse.Source
}

func (c *sseConn) IsClosed() bool      { return c.src.ReadyState() == sse.Closed }
func (c *sseConn) Close() error        { return c.src.Close() }
func (c *sseConn) LastEventID() string { return c.src.LastEventID() }

// lastEventID returns the resume point of conn if it tracks one.
func lastEventID(conn Conn) string {
	if r, ok := conn.(interface{ LastEventID() string }); ok {
		return r.LastEventID()
	}
	return ""
}
