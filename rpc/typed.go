package rpc

import (
	"context"

	"github.com/kbukum/rpcclient/httpclient"
)

// Get calls GET on path and decodes the response into T. An empty body
// yields the zero value.
func Get[T any](ctx context.Context, c *Client, path string, params httpclient.Params) (T, error) {
	var out T
	if err := c.get(ctx, path, params, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Post calls POST on path with body and decodes the response into T.
func Post[T any](ctx context.Context, c *Client, path string, body any, params httpclient.Params) (T, error) {
	var out T
	if err := c.post(ctx, path, body, params, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
