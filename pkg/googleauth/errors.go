package googleauth

import "errors"

var (
	// ErrCanceled indicates the user dismissed the consent screen. Callers
	// treat it as a silent no-op, not a failure.
	ErrCanceled = errors.New("googleauth: sign-in canceled by user")

	// ErrNoEmail indicates Google did not return an email for the account.
	ErrNoEmail = errors.New("googleauth: provider returned no email")

	// ErrSignInFailed indicates the identity could not be obtained.
	ErrSignInFailed = errors.New("googleauth: sign-in failed")
)
