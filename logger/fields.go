package logger

import (
	"time"
)

// Standard field key constants for structured logging.
const (
	FieldComponent = "component"
	FieldSessionID = "session_id"
	FieldURL       = "url"
	FieldMethod    = "method"
	FieldStatus    = "status"
	FieldEvent     = "event"
	FieldState     = "state"
	FieldAttempt   = "attempt"
	FieldTimeout   = "timeout_ms"
	FieldBytes     = "bytes"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	log.Debug("dialing", logger.Fields(logger.FieldURL, url))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for a failed operation against url.
func ErrorFields(url string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldURL:   url,
		FieldError: err.Error(),
	}
}

// DurationFields creates fields for a timed call.
func DurationFields(method, url string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldMethod:   method,
		FieldURL:      url,
		FieldDuration: d.Milliseconds(),
	}
}
