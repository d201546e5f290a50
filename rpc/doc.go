// Package rpc is the entry point of the client. A Client is bound to one
// service base URL and exposes JSON calls under "http/" and self-healing
// event streams under "sse/".
//
//	c, err := rpc.New("http://localhost:8080")
//	v, err := c.HTTPGet(ctx, "items", httpclient.Params{"id": 1})
//
//	s := c.OpenStream("feed", func(v any) { fmt.Println(v) }, nil, 30*time.Second)
//	defer s.Close()
//
// Typed variants decode into a caller type:
//
//	items, err := rpc.Get[[]Item](ctx, c, "items", nil)
package rpc
