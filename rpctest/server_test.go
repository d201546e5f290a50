package rpctest

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/rpcclient/httpclient/sse"
	"github.com/kbukum/rpcclient/logger"
)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	srv := NewServer(append([]Option{WithLogger(logger.Nop())}, opts...)...)
	t.Cleanup(srv.Close)
	return srv
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

func TestServer_HandleJSON(t *testing.T) {
	srv := newTestServer(t)
	srv.HandleJSON(http.MethodGet, "items", http.StatusOK, map[string]int{"n": 3})

	resp, err := srv.Client().Get(srv.URL() + "http/items?id=1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if strings.TrimSpace(string(body)) != `{"n":3}` {
		t.Errorf("unexpected body %s", body)
	}

	reqs := srv.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 recorded request, got %d", len(reqs))
	}
	if reqs[0].Path != "items" || reqs[0].Query.Get("id") != "1" {
		t.Errorf("unexpected recorded request %+v", reqs[0])
	}
}

func TestServer_HandlerSeesBody(t *testing.T) {
	srv := newTestServer(t)
	srv.Handle(http.MethodPost, "/echo/", func(req *Request) (int, any) {
		var in map[string]any
		if err := req.JSON(&in); err != nil {
			return http.StatusBadRequest, map[string]string{"error": err.Error()}
		}
		return http.StatusOK, in
	})

	resp, err := srv.Client().Post(srv.URL()+"http/echo", "application/json", strings.NewReader(`{"a":"b"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if strings.TrimSpace(string(body)) != `{"a":"b"}` {
		t.Errorf("unexpected echo %s", body)
	}
}

func TestServer_RawAndEmptyBodies(t *testing.T) {
	srv := newTestServer(t)
	srv.HandleJSON(http.MethodGet, "raw", http.StatusOK, "[1,2]")
	srv.HandleJSON(http.MethodGet, "empty", http.StatusNoContent, nil)

	resp, err := srv.Client().Get(srv.URL() + "http/raw")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "[1,2]" {
		t.Errorf("unexpected raw body %q", body)
	}

	resp, err = srv.Client().Get(srv.URL() + "http/empty")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
}

func TestServer_UnknownRoute(t *testing.T) {
	srv := newTestServer(t)
	resp, err := srv.Client().Get(srv.URL() + "http/missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func openSource(t *testing.T, srv *Server, path string) (*sse.Source, <-chan *sse.Event) {
	t.Helper()
	events := make(chan *sse.Event, 16)
	src := sse.NewSource(srv.Client(), srv.URL()+"sse/"+path, sse.WithLogger(logger.Nop()))
	src.AddListener(DataEvent, func(ev *sse.Event) { events <- ev })
	src.Open()
	t.Cleanup(func() { _ = src.Close() })
	waitFor(t, "subscriber", func() bool { return srv.Subscribers(path) > 0 })
	return src, events
}

func TestServer_PublishReachesSubscribers(t *testing.T) {
	srv := newTestServer(t)
	_, events := openSource(t, srv, "feed")

	if n := srv.Publish("feed", map[string]string{"k": "v"}); n != 1 {
		t.Fatalf("expected 1 subscriber reached, got %d", n)
	}
	if n := srv.Publish("other", 1); n != 0 {
		t.Errorf("expected no subscribers on other path, got %d", n)
	}

	select {
	case ev := <-events:
		if ev.Data != `{"k":"v"}` {
			t.Errorf("unexpected data %q", ev.Data)
		}
		if ev.ID == "" {
			t.Error("expected an event id")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	if srv.Connections("feed") != 1 {
		t.Errorf("expected 1 connection, got %d", srv.Connections("feed"))
	}
}

func TestServer_MultiLinePayload(t *testing.T) {
	srv := newTestServer(t)
	_, events := openSource(t, srv, "lines")

	srv.PublishRaw("lines", DataEvent, "a\nb")
	select {
	case ev := <-events:
		if ev.Data != "a\nb" {
			t.Errorf("unexpected data %q", ev.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestServer_Mute(t *testing.T) {
	srv := newTestServer(t)
	_, events := openSource(t, srv, "feed")

	srv.Mute("feed", true)
	if n := srv.Publish("feed", 1); n != 0 {
		t.Errorf("muted publish should reach nobody, got %d", n)
	}
	if srv.Subscribers("feed") != 1 {
		t.Error("mute must keep the stream open")
	}

	srv.Mute("feed", false)
	srv.Publish("feed", 2)
	select {
	case ev := <-events:
		if ev.Data != "2" {
			t.Errorf("expected only the unmuted event, got %q", ev.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event after unmute")
	}
}

func TestServer_DropStreams(t *testing.T) {
	srv := newTestServer(t)
	src, _ := openSource(t, srv, "feed")

	if n := srv.DropStreams("feed"); n != 1 {
		t.Fatalf("expected 1 stream dropped, got %d", n)
	}
	select {
	case <-src.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client did not see the stream end")
	}
	if src.ReadyState() != sse.Closed {
		t.Errorf("expected closed source, got %s", src.ReadyState())
	}
	if srv.Subscribers("feed") != 0 {
		t.Errorf("expected no subscribers, got %d", srv.Subscribers("feed"))
	}
}

func TestServer_KeepAliveIsNotAnEvent(t *testing.T) {
	srv := newTestServer(t, WithKeepAlive(10*time.Millisecond))
	_, events := openSource(t, srv, "quiet")

	select {
	case ev := <-events:
		t.Fatalf("keep-alive must not produce data events, got %+v", ev)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestPathPattern(t *testing.T) {
	tests := []struct {
		path, id string
		match    bool
	}{
		{"feed", "feed:abc", true},
		{"feed", "feeds:abc", false},
		{"a/b", "a/b:abc", true},
		{"q*", "q*:abc", true},
		{"q*", "qq:abc", false},
	}
	for _, tc := range tests {
		h := newHub(logger.Nop())
		h.register(newSubscriber(tc.id))
		if got := h.count(pathPattern(tc.path)) == 1; got != tc.match {
			t.Errorf("pathPattern(%q) vs %q: match = %v, want %v", tc.path, tc.id, got, tc.match)
		}
	}
}
