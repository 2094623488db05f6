package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/travelbook/admin-console/api"
	"github.com/travelbook/admin-console/httpclient"
	apperrors "github.com/travelbook/admin-console/internal/errors"
)

// Operation names the auth call an error came from. Each has its own message table.
type Operation string

const (
	OpLogin   Operation = "login"
	OpSignup  Operation = "signup"
	OpRefresh Operation = "refresh"
	OpLogout  Operation = "logout"
	OpProfile Operation = "profile"
	OpCatalog Operation = "catalog"
)

// Kind is the classified cause of a failed auth operation.
type Kind int

const (
	KindUnknown Kind = iota
	KindBadCredentials
	KindSessionExpired
	KindBadRequest
	KindConflict
	KindInvalidInput
	KindRateLimited
	KindServer
	KindTimeout
	KindNoResponse
	KindUnexpectedResponse
	KindStorage
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindBadCredentials:     "bad_credentials",
	KindSessionExpired:     "session_expired",
	KindBadRequest:         "bad_request",
	KindConflict:           "conflict",
	KindInvalidInput:       "invalid_input",
	KindRateLimited:        "rate_limited",
	KindServer:             "server",
	KindTimeout:            "timeout",
	KindNoResponse:         "no_response",
	KindUnexpectedResponse: "unexpected_response",
	KindStorage:            "storage",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// User facing messages.
const (
	MsgGeneric        = "Something went wrong. Please try again."
	MsgBadCredentials = "The username or password you entered is incorrect. Please try again."
	MsgLoginInvalid   = "Please enter a valid username and password."
	MsgLoginRateLimit = "Too many login attempts. Please wait a moment and try again."
	MsgRateLimited    = "Too many requests. Please wait a moment and try again."
	MsgServer         = "The server is having trouble right now. Please try again later."
	MsgTimeout        = "The request timed out. Please check your connection and try again."
	MsgNoResponse     = "Unable to reach the server. Please check your internet connection."
	MsgSignupBad      = "Some of the details you entered are invalid. Please review the form and try again."
	MsgSignupConflict = "An account with this username or email already exists."
	MsgSignupInvalid  = "Please fill in all required fields correctly."
	MsgSessionExpired = "Your session has expired. Please sign in again."
)

var (
	loginMessages = map[Kind]string{
		KindBadCredentials: MsgBadCredentials,
		KindInvalidInput:   MsgLoginInvalid,
		KindRateLimited:    MsgLoginRateLimit,
	}
	signupMessages = map[Kind]string{
		KindBadRequest:   MsgSignupBad,
		KindConflict:     MsgSignupConflict,
		KindInvalidInput: MsgSignupInvalid,
	}
	commonMessages = map[Kind]string{
		KindSessionExpired: MsgSessionExpired,
		KindRateLimited:    MsgRateLimited,
		KindServer:         MsgServer,
		KindTimeout:        MsgTimeout,
		KindNoResponse:     MsgNoResponse,
	}
)

// Error is what every public auth operation fails with. Error() is the
// display message; the underlying cause is available through Unwrap.
type Error struct {
	Op      Operation
	Kind    Kind
	Status  int // HTTP status, 0 when no response was received
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindFor maps an HTTP status to a Kind using the table of op.
func KindFor(op Operation, status int) Kind {
	if status >= http.StatusInternalServerError {
		return KindServer
	}
	switch op {
	case OpLogin:
		switch status {
		case http.StatusUnauthorized:
			return KindBadCredentials
		case http.StatusUnprocessableEntity:
			return KindInvalidInput
		case http.StatusTooManyRequests:
			return KindRateLimited
		}
	case OpSignup:
		switch status {
		case http.StatusBadRequest:
			return KindBadRequest
		case http.StatusConflict:
			return KindConflict
		case http.StatusUnprocessableEntity:
			return KindInvalidInput
		}
	default:
		switch status {
		case http.StatusUnauthorized:
			return KindSessionExpired
		case http.StatusTooManyRequests:
			return KindRateLimited
		}
	}
	return KindUnknown
}

// MessageFor returns the display message for kind in the table of op, or
// the generic fallback. Storage and malformed-reply failures have no entry of
// their own.
func MessageFor(op Operation, kind Kind) string {
	var table map[Kind]string
	switch op {
	case OpLogin:
		table = loginMessages
	case OpSignup:
		table = signupMessages
	}
	if msg, ok := table[kind]; ok {
		return msg
	}
	if msg, ok := commonMessages[kind]; ok {
		return msg
	}
	return MsgGeneric
}

// Classify turns any failure of op into an *Error. An *Error passes through
// unchanged; nil stays nil.
func Classify(op Operation, err error) *Error {
	if err == nil {
		return nil
	}
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr
	}

	e := &Error{Op: op, Err: err}

	var (
		statusErr    *httpclient.StatusError
		transportErr *httpclient.TransportError
		envelopeErr  *api.EnvelopeError
		invalid      validator.ValidationErrors
	)
	switch {
	case errors.As(err, &statusErr):
		e.Status = statusErr.StatusCode
		e.Kind = KindFor(op, statusErr.StatusCode)
		if e.Kind == KindUnknown && statusErr.Message != "" {
			e.Message = statusErr.Message
		}
	case errors.As(err, &transportErr):
		e.Kind = KindNoResponse
		if transportErr.Timeout {
			e.Kind = KindTimeout
		}
	case errors.Is(err, context.DeadlineExceeded):
		e.Kind = KindTimeout
	case errors.As(err, &envelopeErr):
		e.Kind = KindUnexpectedResponse
		e.Message = envelopeErr.Message
	case errors.Is(err, apperrors.ErrUnexpectedResponse):
		e.Kind = KindUnexpectedResponse
	case errors.As(err, &invalid):
		e.Kind = KindInvalidInput
	case errors.Is(err, apperrors.ErrStorage):
		e.Kind = KindStorage
	case errors.Is(err, apperrors.ErrNoSession), errors.Is(err, apperrors.ErrNoRefreshToken):
		e.Kind = KindSessionExpired
	}

	if e.Message == "" {
		e.Message = MessageFor(op, e.Kind)
	}
	return e
}
