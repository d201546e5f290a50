// Package sse implements the client side of Server-Sent Events: a Reader
// that parses a text/event-stream body and a Source that owns one HTTP
// connection and dispatches parsed events to named listeners.
//
// A Source connects once. When the stream ends or fails it moves to
// Closed and stays there; reviving a stream is the caller's decision.
package sse
