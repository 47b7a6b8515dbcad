package apiclient

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrNetwork indicates the request never produced an HTTP response.
	ErrNetwork = errors.New("apiclient: network error")

	// ErrUnauthorized indicates a protected endpoint rejected the access
	// token and the refresh path could not recover.
	ErrUnauthorized = errors.New("apiclient: unauthorized")

	// ErrInvalidCredentials indicates the login endpoint rejected the
	// email/password pair. Deliberately covers both wrong-password and
	// unknown-account to avoid account enumeration.
	ErrInvalidCredentials = errors.New("apiclient: invalid credentials")

	// ErrConflict indicates the server rejected a registration payload,
	// e.g. the email is already taken.
	ErrConflict = errors.New("apiclient: registration rejected")

	// ErrInvalidOTP indicates the verification code was wrong or expired.
	ErrInvalidOTP = errors.New("apiclient: invalid otp")

	// ErrRefreshFailed indicates the refresh token was rejected; stored
	// credentials have been cleared by the time this is returned.
	ErrRefreshFailed = errors.New("apiclient: token refresh failed")

	// ErrGoogleExchange indicates the backend rejected the Google identity
	// token.
	ErrGoogleExchange = errors.New("apiclient: google token exchange failed")
)

// APIError carries the HTTP status and whatever error payload the server
// returned. Field messages keep the server's wording so screens can surface
// the first field-specific message verbatim.
type APIError struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("apiclient: server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("apiclient: server returned %d", e.Status)
}

// FirstFieldError returns the first field-specific message, or the top-level
// message, or an empty string. Fields are visited in name order so the
// surfaced message is stable across calls.
func (e *APIError) FirstFieldError() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	for _, field := range fields {
		if messages := e.Fields[field]; len(messages) > 0 {
			return messages[0]
		}
	}
	return e.Message
}
