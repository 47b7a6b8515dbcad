// Package bootstrap decides where the app lands on process start: straight
// into the authenticated shell, or onto the landing/login screen. The
// decision is optimistic: any stored access token counts as signed in, and
// a background refresh (when a refresh token exists) quietly repairs an
// expired one. A session whose tokens are both dead surfaces later through
// the first 401 some screen observes.
package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jobdeck/jobdeck-go/pkg/apiclient"
	"github.com/jobdeck/jobdeck-go/pkg/credstore"
)

// Target is the initial navigation destination.
type Target string

const (
	// TargetAuthenticated routes into the signed-in shell.
	TargetAuthenticated Target = "authenticated"
	// TargetLanding routes to the landing/login screen.
	TargetLanding Target = "landing"
)

// Bootstrapper runs once at startup.
type Bootstrapper struct {
	store *credstore.Store
	api   *apiclient.Client
	log   *slog.Logger

	wg sync.WaitGroup
}

// Option configures a Bootstrapper.
type Option func(*Bootstrapper)

// WithLogger sets the logger for startup diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(b *Bootstrapper) {
		if log != nil {
			b.log = log
		}
	}
}

// New creates a Bootstrapper.
func New(store *credstore.Store, api *apiclient.Client, opts ...Option) (*Bootstrapper, error) {
	if store == nil {
		return nil, errors.New("bootstrap: credential store is required")
	}
	if api == nil {
		return nil, errors.New("bootstrap: api client is required")
	}

	b := &Bootstrapper{store: store, api: api, log: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Run reads the stored session and picks the navigation target. When an
// access and refresh token are both present it also kicks a background
// refresh whose outcome is never surfaced to the UI; navigation does not
// wait for it. An unreadable store counts as unauthenticated.
func (b *Bootstrapper) Run(ctx context.Context) Target {
	sess, err := b.store.Session(ctx)
	if err != nil {
		b.log.WarnContext(ctx, "credential store unreadable at startup", slog.Any("error", err))
		return TargetLanding
	}

	if !sess.IsAuthenticated() {
		return TargetLanding
	}

	if sess.RefreshToken != "" {
		// Fire-and-forget: detached from the startup context so early
		// navigation cannot cancel it.
		refreshCtx := context.WithoutCancel(ctx)
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := b.api.Refresh(refreshCtx); err != nil {
				b.log.DebugContext(refreshCtx, "startup refresh failed", slog.Any("error", err))
				return
			}
			b.log.DebugContext(refreshCtx, "startup refresh completed")
		}()
	}

	return TargetAuthenticated
}

// Wait blocks until the background refresh (if any) finishes. Intended for
// tests and orderly shutdown.
func (b *Bootstrapper) Wait() {
	b.wg.Wait()
}
