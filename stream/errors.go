package stream

import "fmt"

const maxPayloadInError = 256

// ParseError reports a data event whose payload is not valid JSON.
type ParseError struct {
	Payload string
	Err     error
}

func (e *ParseError) Error() string {
	p := e.Payload
	if len(p) > maxPayloadInError {
		p = p[:maxPayloadInError] + "..."
	}
	return fmt.Sprintf("stream: invalid JSON payload %q: %v", p, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
