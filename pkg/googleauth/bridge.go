package googleauth

import (
	"context"
	"errors"
	"log/slog"
)

// EmailChecker answers whether an email already has an account; satisfied by
// the API client.
type EmailChecker interface {
	CheckEmail(ctx context.Context, email string) (bool, error)
}

// Result is the outcome of a bridge sign-in.
type Result struct {
	// Success reports that an identity was obtained and classified.
	Success bool
	// Canceled reports the user backed out; no error is surfaced.
	Canceled bool
	// Identity holds the provider token, email, and name when Success.
	Identity Identity
	// IsNewUser reports that no account exists for the identity's email.
	IsNewUser bool
	// Err holds the failure when neither Success nor Canceled.
	Err error
}

// Bridge obtains a third-party identity and classifies it against the
// backend so the credential flow can pick its branch.
type Bridge struct {
	provider IdentityProvider
	checker  EmailChecker
	log      *slog.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger used for sign-in diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(b *Bridge) {
		if log != nil {
			b.log = log
		}
	}
}

// NewBridge creates a Bridge.
func NewBridge(provider IdentityProvider, checker EmailChecker, opts ...Option) (*Bridge, error) {
	if provider == nil {
		return nil, errors.New("googleauth: identity provider is required")
	}
	if checker == nil {
		return nil, errors.New("googleauth: email checker is required")
	}

	b := &Bridge{provider: provider, checker: checker, log: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// SignIn runs the provider's interactive step and reports whether the
// account is new. Cancellation comes back as a non-error no-op.
func (b *Bridge) SignIn(ctx context.Context) Result {
	identity, err := b.provider.SignIn(ctx)
	if errors.Is(err, ErrCanceled) {
		b.log.DebugContext(ctx, "google sign-in canceled")
		return Result{Canceled: true}
	}
	if err != nil {
		b.log.WarnContext(ctx, "google sign-in failed", slog.Any("error", err))
		return Result{Err: err}
	}

	registered, err := b.checker.CheckEmail(ctx, identity.Email)
	if err != nil {
		return Result{Err: err}
	}

	return Result{
		Success:   true,
		Identity:  identity,
		IsNewUser: !registered,
	}
}
