package httpclient

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewTransportError(t *testing.T) {
	tests := []struct {
		status    int
		raw       string
		code      ErrorCode
		text      string
		retryable bool
	}{
		{500, "500 Internal Server Error", ErrCodeServer, "Internal Server Error", true},
		{503, "", ErrCodeServer, "Service Unavailable", true},
		{401, "401 Unauthorized", ErrCodeAuth, "Unauthorized", false},
		{403, "", ErrCodeAuth, "Forbidden", false},
		{404, "404 Not Found", ErrCodeNotFound, "Not Found", false},
		{429, "", ErrCodeRateLimit, "Too Many Requests", true},
		{422, "422 Custom Reason", ErrCodeValidation, "Custom Reason", false},
		{302, "", ErrCodeServer, "Found", false},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("HTTP_%d", tc.status), func(t *testing.T) {
			err := NewTransportError(tc.status, tc.raw, []byte("b"))
			if err.Code != tc.code {
				t.Errorf("code = %s, want %s", err.Code, tc.code)
			}
			if err.Status != tc.text {
				t.Errorf("status = %q, want %q", err.Status, tc.text)
			}
			if err.Retryable != tc.retryable {
				t.Errorf("retryable = %v, want %v", err.Retryable, tc.retryable)
			}
			if !IsTransport(err) {
				t.Error("expected IsTransport")
			}
		})
	}
}

func TestClassifyStatusCode(t *testing.T) {
	for _, code := range []int{200, 201, 204, 299} {
		if err := ClassifyStatusCode(code, nil); err != nil {
			t.Errorf("ClassifyStatusCode(%d) = %v, want nil", code, err)
		}
	}
	if err := ClassifyStatusCode(500, nil); err == nil || err.StatusCode != 500 {
		t.Errorf("expected server error, got %v", err)
	}
}

func TestErrorPredicates(t *testing.T) {
	underlying := errors.New("dial tcp: refused")
	wrapped := fmt.Errorf("calling: %w", NewConnectionError(underlying))

	if !IsNetwork(wrapped) || !IsConnection(wrapped) || !IsRetryable(wrapped) {
		t.Error("expected wrapped connection error to be network, connection and retryable")
	}
	if !errors.Is(wrapped, underlying) {
		t.Error("expected Unwrap to expose the underlying error")
	}
	if !IsTimeout(NewTimeoutError(errors.New("deadline"))) {
		t.Error("expected IsTimeout")
	}
	if !IsAuth(NewTransportError(401, "", nil)) {
		t.Error("expected IsAuth")
	}
	if !IsNotFound(NewTransportError(404, "", nil)) {
		t.Error("expected IsNotFound")
	}
	if !IsRateLimit(NewTransportError(429, "", nil)) {
		t.Error("expected IsRateLimit")
	}
	if !IsServerError(NewTransportError(502, "", nil)) {
		t.Error("expected IsServerError")
	}

	plain := errors.New("plain")
	if IsNetwork(plain) || IsTransport(plain) || IsRetryable(plain) {
		t.Error("plain errors match no predicate")
	}
	v := NewValidationError("bad")
	if IsNetwork(v) || IsTransport(v) {
		t.Error("validation error is neither network nor transport")
	}
}

func TestErrorMessage(t *testing.T) {
	err := NewTransportError(500, "500 Internal Server Error", nil)
	want := "httpclient: server (HTTP 500): HTTP 500 Internal Server Error"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	conn := NewConnectionError(errors.New("refused"))
	if conn.Error() != "httpclient: connection: refused" {
		t.Errorf("unexpected message %q", conn.Error())
	}
}

func TestErrorCodeString(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeTimeout:    "timeout",
		ErrCodeConnection: "connection",
		ErrCodeAuth:       "auth",
		ErrCodeNotFound:   "not_found",
		ErrCodeRateLimit:  "rate_limit",
		ErrCodeValidation: "validation",
		ErrCodeServer:     "server",
		ErrorCode(99):     "unknown",
	}
	for code, want := range tests {
		if code.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(code), code.String(), want)
		}
	}
}
