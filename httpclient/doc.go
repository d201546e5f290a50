// Package httpclient is the request/response half of the RPC client: a thin
// HTTP client that sends GET and JSON POST requests, classifies failures
// into network and transport errors, and encodes flat query parameters.
//
// The sse subpackage provides the server-push half on top of the same
// transport.
//
//	c, err := httpclient.New(httpclient.Config{Timeout: 10 * time.Second})
//	resp, err := c.Get(ctx, "http://host/http/items"+httpclient.EncodeQuery(httpclient.Params{"id": 1}))
//	if httpclient.IsTransport(err) {
//	    // non-2xx, see err.(*httpclient.Error).StatusCode
//	}
//
// Calls are never retried.
package httpclient
