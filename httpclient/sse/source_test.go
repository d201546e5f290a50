package sse

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/rpcclient/httpclient"
	"github.com/kbukum/rpcclient/logger"
)

// eventServer streams the given frames then holds the connection open until
// the client goes away.
func eventServer(t *testing.T, frames ...string) (*httptest.Server, <-chan http.Header) {
	t.Helper()
	headers := make(chan http.Header, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for _, f := range frames {
			fmt.Fprint(w, f)
			flusher.Flush()
		}
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv, headers
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSource_DispatchesNamedEvents(t *testing.T) {
	srv, headers := eventServer(t,
		": keepalive\n\n",
		"event: data\nid: 1\ndata: {\"n\":1}\n\n",
		"data: unnamed\n\n",
		"event: data\nid: 2\ndata: {\"n\":2}\n\n",
	)

	var mu sync.Mutex
	var got, messages []string
	src := NewSource(srv.Client(), srv.URL, WithLogger(logger.Nop()), WithHeader("X-Client", "test"))
	src.AddListener("data", func(ev *Event) {
		mu.Lock()
		got = append(got, ev.Data)
		mu.Unlock()
	})
	src.AddListener("message", func(ev *Event) {
		mu.Lock()
		messages = append(messages, ev.Data)
		mu.Unlock()
	})

	if src.ReadyState() != Connecting {
		t.Fatalf("expected connecting before open, got %s", src.ReadyState())
	}
	src.Open()
	defer src.Close()

	waitFor(t, "two data events", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	})

	mu.Lock()
	if got[0] != `{"n":1}` || got[1] != `{"n":2}` {
		t.Errorf("unexpected data events %v", got)
	}
	if len(messages) != 1 || messages[0] != "unnamed" {
		t.Errorf("unexpected message events %v", messages)
	}
	mu.Unlock()

	if src.ReadyState() != Open {
		t.Errorf("expected open, got %s", src.ReadyState())
	}
	if src.LastEventID() != "2" {
		t.Errorf("expected last event id 2, got %q", src.LastEventID())
	}

	h := <-headers
	if h.Get("Accept") != "text/event-stream" {
		t.Errorf("expected Accept header, got %q", h.Get("Accept"))
	}
	if h.Get("Cache-Control") != "no-cache" {
		t.Errorf("expected Cache-Control header, got %q", h.Get("Cache-Control"))
	}
	if h.Get("X-Client") != "test" {
		t.Errorf("expected custom header, got %q", h.Get("X-Client"))
	}
	if h.Get("Last-Event-ID") != "" {
		t.Errorf("unexpected Last-Event-ID %q", h.Get("Last-Event-ID"))
	}
}

func TestSource_SendsLastEventID(t *testing.T) {
	srv, headers := eventServer(t)
	src := NewSource(srv.Client(), srv.URL, WithLogger(logger.Nop()), WithLastEventID("41"))
	src.Open()
	defer src.Close()

	select {
	case h := <-headers:
		if h.Get("Last-Event-ID") != "41" {
			t.Errorf("expected Last-Event-ID 41, got %q", h.Get("Last-Event-ID"))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the request")
	}
}

func TestSource_CloseStopsDelivery(t *testing.T) {
	srv, _ := eventServer(t, "event: data\ndata: 1\n\n")
	opened := make(chan struct{})
	errs := make(chan error, 1)
	src := NewSource(srv.Client(), srv.URL,
		WithLogger(logger.Nop()),
		WithOpenHandler(func() { close(opened) }),
		WithErrorHandler(func(err error) { errs <- err }),
	)
	src.AddListener("data", func(*Event) {})
	src.Open()

	<-opened
	if err := src.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	select {
	case <-src.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("read goroutine did not exit after Close")
	}
	if src.ReadyState() != Closed {
		t.Errorf("expected closed, got %s", src.ReadyState())
	}
	select {
	case err := <-errs:
		t.Errorf("Close must not report an error, got %v", err)
	default:
	}
}

func TestSource_CloseFromListener(t *testing.T) {
	srv, _ := eventServer(t, "event: data\ndata: 1\n\n", "event: data\ndata: 2\n\n")
	src := NewSource(srv.Client(), srv.URL, WithLogger(logger.Nop()))

	var mu sync.Mutex
	count := 0
	src.AddListener("data", func(*Event) {
		mu.Lock()
		count++
		mu.Unlock()
		_ = src.Close()
	})
	src.Open()

	select {
	case <-src.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("source did not stop")
	}
	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("expected delivery to stop after Close, got %d events", count)
	}
}

func TestSource_CloseBeforeOpen(t *testing.T) {
	src := NewSource(nil, "http://127.0.0.1:1/", WithLogger(logger.Nop()))
	_ = src.Close()
	src.Open()

	select {
	case <-src.Done():
	case <-time.After(time.Second):
		t.Fatal("expected Done to be closed")
	}
	if src.ReadyState() != Closed {
		t.Errorf("expected closed, got %s", src.ReadyState())
	}
}

func TestSource_RejectsResponses(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(error) bool
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			check: func(err error) bool {
				return httpclient.IsTransport(err) && httpclient.IsServerError(err)
			},
		},
		{
			name: "wrong content type",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte("{}"))
			},
			check: func(err error) bool { return errors.Is(err, ErrNotEventStream) },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			errs := make(chan error, 1)
			src := NewSource(srv.Client(), srv.URL, WithLogger(logger.Nop()), WithErrorHandler(func(err error) { errs <- err }))
			src.Open()
			defer src.Close()

			select {
			case err := <-errs:
				if !tc.check(err) {
					t.Errorf("unexpected error %v", err)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("expected an error")
			}
			<-src.Done()
			if src.ReadyState() != Closed {
				t.Errorf("expected closed, got %s", src.ReadyState())
			}
		})
	}
}

func TestSource_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	errs := make(chan error, 1)
	src := NewSource(http.DefaultClient, url, WithLogger(logger.Nop()), WithErrorHandler(func(err error) { errs <- err }))
	src.Open()

	select {
	case err := <-errs:
		if !httpclient.IsNetwork(err) {
			t.Errorf("expected network error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected an error")
	}
}

func TestSource_ServerEndsStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: data\ndata: last\n\n")
	}))
	defer srv.Close()

	src := NewSource(srv.Client(), srv.URL, WithLogger(logger.Nop()))
	got := make(chan string, 1)
	src.AddListener("data", func(ev *Event) { got <- ev.Data })
	src.Open()

	select {
	case d := <-got:
		if d != "last" {
			t.Errorf("unexpected data %q", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected event before stream end")
	}
	<-src.Done()
	if src.ReadyState() != Closed {
		t.Errorf("expected closed after stream end, got %s", src.ReadyState())
	}
}

func TestReadyStateString(t *testing.T) {
	tests := map[ReadyState]string{
		Connecting:     "connecting",
		Open:           "open",
		Closed:         "closed",
		ReadyState(99): "unknown",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("String() = %q, want %q", s.String(), want)
		}
	}
}
