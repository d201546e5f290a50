// Package rpctest provides an in-process fake of the RPC service for tests
// and local experiments.
//
// Request/response handlers are registered per method and path and served
// under /http/. Streams are served under /sse/ and fed with Publish.
//
//	srv := rpctest.NewServer()
//	defer srv.Close()
//	srv.HandleJSON(http.MethodGet, "items", http.StatusOK, map[string]int{"n": 3})
//	srv.Publish("feed", map[string]string{"k": "v"})
package rpctest
