package googleauth

import "context"

// Identity is the normalized result of a provider sign-in.
type Identity struct {
	// Token is the provider access token, forwarded to the backend's
	// exchange endpoint for new accounts.
	Token string
	// Email as asserted by the provider.
	Email string
	// Name is the display name (optional).
	Name string
	// EmailVerified reports whether the provider asserts ownership of the
	// address.
	EmailVerified bool
}

// IdentityProvider abstracts the interactive third-party sign-in behind a
// minimal interface. Implementations encapsulate all protocol details and
// return ErrCanceled when the user backs out.
type IdentityProvider interface {
	// SignIn runs the interactive consent step and returns the obtained
	// identity.
	SignIn(ctx context.Context) (Identity, error)
}
