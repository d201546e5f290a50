package httpclient

import (
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Params is a flat set of query parameters with scalar values.
type Params map[string]any

// EncodeQuery renders params as "?k1=v1&k2=v2" with keys in ascending order.
// Values are stringified but not escaped. Empty params yield "".
func EncodeQuery(params Params) string {
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(cast.ToString(params[k]))
	}
	return b.String()
}
