package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// StatusError is returned for a response outside the 2xx range.
type StatusError struct {
	StatusCode int
	Message    string // server supplied "message" or "error" field, if any
	Body       []byte
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func newStatusError(r *Response) *StatusError {
	e := &StatusError{StatusCode: r.StatusCode, Body: r.Body}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(r.Body, &body) == nil {
		e.Message = body.Message
		if e.Message == "" {
			e.Message = body.Error
		}
	}
	return e
}

// TransportError is returned when no HTTP response was received.
type TransportError struct {
	Timeout bool // the request or client deadline expired
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return "request timed out: " + e.Err.Error()
	}
	return "no response: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func newTransportError(err error) *TransportError {
	timeout := errors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		timeout = true
	}
	return &TransportError{Timeout: timeout, Err: err}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
