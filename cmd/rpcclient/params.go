package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/kbukum/rpcclient/httpclient"
)

// parseParams turns "key=value" arguments into query parameters. A later
// repeat of the same key wins.
func parseParams(args []string) (httpclient.Params, error) {
	if len(args) == 0 {
		return nil, nil
	}
	params := make(httpclient.Params, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", arg)
		}
		params[k] = v
	}
	return params, nil
}

func printJSON(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
