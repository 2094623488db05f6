package sessions

import (
	apperrors "github.com/travelbook/admin-console/internal/errors"
)

// ErrNotFound is returned by a Backend for a key that was never written or was removed.
var ErrNotFound = apperrors.ErrNotFound

// Backend is persistent key-value storage for serialized session records.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Read returns the bytes stored under key, or ErrNotFound
	Read(key string) ([]byte, error)

	// Write stores value under key, replacing any previous value
	Write(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}
