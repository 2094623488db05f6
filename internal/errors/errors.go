package errors

import "errors"

// Common error types for the admin console client
var (
	// Session errors
	ErrNotFound       = errors.New("not found")
	ErrNoSession      = errors.New("no active session")
	ErrNoRefreshToken = errors.New("no refresh token stored")
	ErrStorage        = errors.New("session storage unavailable")

	// Token errors
	ErrInvalidToken = errors.New("invalid token")

	// Transport errors
	ErrUnexpectedResponse = errors.New("unexpected response shape")
	ErrNotJSON            = errors.New("response body is not json")

	// Lifecycle errors
	ErrNotInitialized = errors.New("not initialized")
	ErrInvalidConfig  = errors.New("invalid configuration")
)
