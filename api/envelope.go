// Package api holds the wire types of the booking platform's REST backend.
// Responses are decoded and validated here, at the HTTP boundary.
package api

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/travelbook/admin-console/httpclient"
	apperrors "github.com/travelbook/admin-console/internal/errors"
)

// ErrUnexpectedResponse is returned when a 2xx body doesn't have the expected shape.
var ErrUnexpectedResponse = apperrors.ErrUnexpectedResponse

// Envelope is the backend's standard {success, data, message} wrapper.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

// EnvelopeError is a 2xx response that reported success=false or lacked
// required data. Message is the server's explanation, if any.
type EnvelopeError struct {
	Message string
}

func (e *EnvelopeError) Error() string {
	if e.Message == "" {
		return ErrUnexpectedResponse.Error()
	}
	return ErrUnexpectedResponse.Error() + ": " + e.Message
}

func (e *EnvelopeError) Unwrap() error {
	return ErrUnexpectedResponse
}

// ID is an opaque identifier the backend may send as a JSON string or number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Wrap(err, "[ID.UnmarshalJSON] neither string nor number")
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Unwrap returns the "data" member of an enveloped body, or the body itself
// when it isn't an envelope. A success=false envelope is an *EnvelopeError.
func Unwrap(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, errors.Wrap(ErrUnexpectedResponse, err.Error())
	}
	rawSuccess, enveloped := probe["success"]
	if !enveloped {
		return trimmed, nil
	}

	var success bool
	_ = json.Unmarshal(rawSuccess, &success)
	if !success {
		var message string
		_ = json.Unmarshal(probe["message"], &message)
		return nil, &EnvelopeError{Message: message}
	}
	return probe["data"], nil
}

// DecodeData decodes a 2xx response that may or may not be enveloped.
func DecodeData[T any](resp *httpclient.Response) (T, error) {
	var out T
	if !resp.JSON {
		return out, errors.Wrap(ErrUnexpectedResponse, "content type is not json")
	}
	data, err := Unwrap(resp.Body)
	if err != nil {
		return out, err
	}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, errors.Wrap(ErrUnexpectedResponse, err.Error())
	}
	return out, nil
}
