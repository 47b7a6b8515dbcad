package credstore

import "errors"

var (
	// ErrNotFound indicates the key has no value in the backend.
	ErrNotFound = errors.New("credstore: key not found")

	// ErrNoKV indicates a Store was created without a backend.
	ErrNoKV = errors.New("credstore: kv backend is required")

	// ErrInvalidSession indicates a write that would violate the session
	// invariant (a refresh token without an access token).
	ErrInvalidSession = errors.New("credstore: refresh token requires access token")

	// ErrCorruptProfile indicates the stored user profile could not be decoded.
	ErrCorruptProfile = errors.New("credstore: stored user profile is not valid JSON")
)
