package jobdeck

import (
	"context"
	"log/slog"

	"github.com/caarlos0/env/v11"

	"github.com/jobdeck/jobdeck-go/pkg/apiclient"
	"github.com/jobdeck/jobdeck-go/pkg/authflow"
	"github.com/jobdeck/jobdeck-go/pkg/bootstrap"
	"github.com/jobdeck/jobdeck-go/pkg/credstore"
	"github.com/jobdeck/jobdeck-go/pkg/googleauth"
	"github.com/jobdeck/jobdeck-go/pkg/logger"
)

// App wires the auth engine together. Construct one per process.
type App struct {
	// Store owns the persisted session credentials.
	Store *credstore.Store
	// API is the shared request client; all protected calls go through it.
	API *apiclient.Client
	// Bootstrapper picks the first screen on startup.
	Bootstrapper *bootstrap.Bootstrapper

	bridge *googleauth.Bridge
	log    *slog.Logger
}

type appOptions struct {
	kv      credstore.KV
	log     *slog.Logger
	consent googleauth.ConsentFunc
}

// Option configures App construction.
type Option func(*appOptions)

// WithKV replaces the default encrypted-file backend, e.g. with the
// platform's secure storage binding.
func WithKV(kv credstore.KV) Option {
	return func(o *appOptions) { o.kv = kv }
}

// WithLogger sets the logger shared by all components.
func WithLogger(log *slog.Logger) Option {
	return func(o *appOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// WithGoogleConsent enables Google sign-in. The consent func presents the
// OAuth browser step; Google app credentials come from the environment.
func WithGoogleConsent(consent googleauth.ConsentFunc) Option {
	return func(o *appOptions) { o.consent = consent }
}

// New builds the App from the environment config.
func New(opts ...Option) (*App, error) {
	options := &appOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.log == nil {
		// No host-supplied logger: build one and make it the process
		// default so library-internal slog.Default() calls line up.
		options.log = logger.New(logger.WithComponent("jobdeck"))
		logger.SetAsDefault(options.log)
	}

	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	kv := options.kv
	if kv == nil {
		kv, err = credstore.NewFileKV(cfg.CredentialsPath, cfg.CredentialsSecret)
		if err != nil {
			return nil, err
		}
	}

	store, err := credstore.New(kv)
	if err != nil {
		return nil, err
	}

	api, err := apiclient.New(cfg.API, store, apiclient.WithLogger(options.log))
	if err != nil {
		return nil, err
	}

	booter, err := bootstrap.New(store, api, bootstrap.WithLogger(options.log))
	if err != nil {
		return nil, err
	}

	app := &App{
		Store:        store,
		API:          api,
		Bootstrapper: booter,
		log:          options.log,
	}

	if options.consent != nil {
		var googleCfg googleauth.Config
		if err := env.Parse(&googleCfg); err != nil {
			return nil, err
		}
		provider, err := googleauth.NewGoogleProvider(googleCfg, options.consent)
		if err != nil {
			return nil, err
		}
		app.bridge, err = googleauth.NewBridge(provider, api, googleauth.WithLogger(options.log))
		if err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Start reads the stored session and returns the initial navigation target.
func (a *App) Start(ctx context.Context) bootstrap.Target {
	return a.Bootstrapper.Run(ctx)
}

// NewFlow creates a credential flow for one login screen instance. The
// Google branch is wired in when the App was built with consent support.
func (a *App) NewFlow(opts ...authflow.Option) (*authflow.Flow, error) {
	base := []authflow.Option{authflow.WithLogger(a.log)}
	if a.bridge != nil {
		base = append(base, authflow.WithGoogleBridge(a.bridge))
	}
	return authflow.New(a.API, a.Store, append(base, opts...)...)
}

// Logout clears the stored credentials.
func (a *App) Logout(ctx context.Context) error {
	return a.Store.Clear(ctx)
}
