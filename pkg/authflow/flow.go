package authflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/jobdeck/jobdeck-go/pkg/apiclient"
	"github.com/jobdeck/jobdeck-go/pkg/credstore"
	"github.com/jobdeck/jobdeck-go/pkg/googleauth"
	"github.com/jobdeck/jobdeck-go/pkg/otp"
	"github.com/jobdeck/jobdeck-go/pkg/validator"
)

// User-facing notices. Login failures deliberately use one message for
// wrong-password and unknown-account to avoid account enumeration.
const (
	NoticeInvalidCredentials = "Invalid credentials"
	NoticeInvalidOTP         = "Invalid OTP"
	NoticeNetwork            = "Something went wrong. Check your connection and try again."
	NoticeGoogleFailed       = "Google sign-in failed. Please try again."
	NoticeRegistration       = "Registration failed. Please try again."
)

// Data is a snapshot of the flow's collected fields.
type Data struct {
	// Email is the live email field, prefilled by the Google branch.
	Email string
	// Name and Company are registration form fields; Name may be
	// prefilled by the Google branch.
	Name    string
	Company string
	// SelectedCategory is the chosen problem category.
	SelectedCategory string
	// ConfirmedEmail is the address the registration was accepted for.
	// OTP verification submits against this, not the live field, so
	// editing the email after registering cannot redirect the code check.
	ConfirmedEmail string
	// IsNewUser is determined exactly once per flow, by the email check
	// or the Google branch.
	IsNewUser bool
	// IsGoogleSignIn marks flows that entered through Google.
	IsGoogleSignIn bool
}

// Details carries the registration form fields into Register.
type Details struct {
	Name     string
	Company  string
	Category string
	// Password is ignored for Google-originated registrations.
	Password string
}

// NoticeFunc receives user-facing notices as they are raised.
type NoticeFunc func(notice string)

// Flow orchestrates one interactive credential session. Create one per login
// screen instance and discard it after StateAuthenticated (or on unmount).
//
// All methods are safe for concurrent use; operations that hit the network
// are mutually exclusive per flow and fail fast with ErrBusy.
type Flow struct {
	api    *apiclient.Client
	store  *credstore.Store
	bridge *googleauth.Bridge
	log    *slog.Logger
	notify NoticeFunc

	mu          sync.Mutex
	m           *machine
	busy        bool
	data        Data
	collector   *otp.Collector
	notice      string
	regPayload  apiclient.RegistrationPayload
	googleToken string

	noticeMu    sync.Mutex
	noticeQueue []string
	dispatching bool
}

// Option configures a Flow.
type Option func(*Flow)

// WithGoogleBridge enables the Google sign-in branch.
func WithGoogleBridge(bridge *googleauth.Bridge) Option {
	return func(f *Flow) { f.bridge = bridge }
}

// WithOTPLength overrides the verification code length (default 6).
func WithOTPLength(length int) Option {
	return func(f *Flow) { f.collector = otp.MustNew(length) }
}

// WithLogger sets the logger used for flow diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(f *Flow) {
		if log != nil {
			f.log = log
		}
	}
}

// WithNoticeFunc registers a callback invoked whenever a user-facing notice
// is raised. Notices are delivered one at a time from a background goroutine,
// in the order they were raised.
func WithNoticeFunc(fn NoticeFunc) Option {
	return func(f *Flow) { f.notify = fn }
}

// New creates a Flow in StateEmailEntry.
func New(api *apiclient.Client, store *credstore.Store, opts ...Option) (*Flow, error) {
	if api == nil {
		return nil, errors.New("authflow: api client is required")
	}
	if store == nil {
		return nil, errors.New("authflow: credential store is required")
	}

	f := &Flow{
		api:       api,
		store:     store,
		log:       slog.Default(),
		m:         newMachine(),
		collector: otp.MustNew(otp.DefaultLength),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// State returns the current state tag.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.m.current
}

// Data returns a snapshot of the collected fields.
func (f *Flow) Data() Data {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data
}

// Notice returns the current user-facing message, empty when none.
func (f *Flow) Notice() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notice
}

// IsLoading reports whether a network operation is in flight.
func (f *Flow) IsLoading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

// OTP exposes the collector so the screen can wire its digit boxes directly.
// Only touch it from the UI goroutine.
func (f *Flow) OTP() *otp.Collector {
	return f.collector
}

// Display hints, derived from the state tag.

// ShowPassword reports whether the password box should render.
func (f *Flow) ShowPassword() bool { return f.State() == StatePasswordEntry }

// ShowRegistration reports whether the registration form should render.
func (f *Flow) ShowRegistration() bool {
	s := f.State()
	return s == StateRegistrationDetails || s == StateRegistering
}

// ShowOTP reports whether the OTP boxes should render.
func (f *Flow) ShowOTP() bool { return f.State() == StateAwaitingOTP }

// RequiresPassword reports whether the registration form needs a password
// field; Google-originated registrations omit it.
func (f *Flow) RequiresPassword() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !(f.data.IsGoogleSignIn && f.data.IsNewUser)
}

// SubmitEmail checks whether the address has an account and branches into
// the password or registration step. Any prior password/OTP state is
// cleared.
func (f *Flow) SubmitEmail(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := validator.Apply(validator.ValidEmail("email", email)); err != nil {
		f.raise(validationNotice(err))
		return err
	}

	if err := f.begin(StateEmailEntry, eventSubmitEmail); err != nil {
		return err
	}
	defer f.end()

	f.mu.Lock()
	f.collector.Reset()
	if err := f.m.fire(eventSubmitEmail); err != nil {
		f.mu.Unlock()
		return err
	}
	f.mu.Unlock()

	registered, err := f.api.CheckEmail(ctx, email)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.raiseLocked(NoticeNetwork)
		return errors.Join(err, f.m.fire(eventEmailCheckFailed))
	}

	f.data.Email = email
	f.data.IsNewUser = !registered
	if registered {
		return f.m.fire(eventEmailRegistered)
	}
	return f.m.fire(eventEmailUnregistered)
}

// Login submits the password for the current email. On success the session
// lands in the credential store and the flow is terminal.
func (f *Flow) Login(ctx context.Context, password string) error {
	if err := validator.Apply(validator.Required("password", password)); err != nil {
		f.raise(validationNotice(err))
		return err
	}

	if err := f.begin(StatePasswordEntry, eventLoginSucceeded); err != nil {
		return err
	}
	defer f.end()

	result, err := f.api.Login(ctx, f.Data().Email, password)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		if errors.Is(err, apiclient.ErrInvalidCredentials) {
			f.raiseLocked(NoticeInvalidCredentials)
		} else {
			f.raiseLocked(NoticeNetwork)
		}
		return err
	}

	if err := f.store.SetSession(ctx, result.Session()); err != nil {
		f.raiseLocked(NoticeNetwork)
		return err
	}
	return f.m.fire(eventLoginSucceeded)
}

// Register validates the form locally, then submits it. Standard flows move
// on to OTP verification; Google-originated flows complete through the token
// exchange and are terminal on success. Validation failures surface without
// any network call.
func (f *Flow) Register(ctx context.Context, details Details) error {
	googleReg := func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.data.IsGoogleSignIn && f.data.IsNewUser
	}()

	rules := []validator.Rule{
		validator.Required("name", details.Name),
		validator.Required("company", details.Company),
		validator.Required("category", details.Category),
	}
	if !googleReg {
		rules = append(rules, validator.Required("password", details.Password))
	}
	if err := validator.Apply(rules...); err != nil {
		f.raise(validationNotice(err))
		return err
	}

	if err := f.begin(StateRegistrationDetails, eventSubmitRegistration); err != nil {
		return err
	}
	defer f.end()

	f.mu.Lock()
	f.data.Name = details.Name
	f.data.Company = details.Company
	f.data.SelectedCategory = details.Category
	payload := apiclient.RegistrationPayload{
		Email:           f.data.Email,
		Name:            details.Name,
		Company:         details.Company,
		ProblemCategory: details.Category,
	}
	if !googleReg {
		payload.Password = details.Password
	}
	if err := f.m.fire(eventSubmitRegistration); err != nil {
		f.mu.Unlock()
		return err
	}
	f.mu.Unlock()

	if err := f.api.Register(ctx, payload); err != nil {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.raiseLocked(registrationNotice(err))
		return errors.Join(err, f.m.fire(eventRegistrationRejected))
	}

	if googleReg {
		return f.completeGoogleRegistration(ctx)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.data.ConfirmedEmail = f.data.Email
	f.regPayload = payload
	f.collector.Reset()
	return f.m.fire(eventRegistrationAccepted)
}

// completeGoogleRegistration trades the Google identity token for a session.
func (f *Flow) completeGoogleRegistration(ctx context.Context) error {
	f.mu.Lock()
	token := f.googleToken
	f.mu.Unlock()

	result, err := f.api.GoogleExchange(ctx, token)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.raiseLocked(NoticeGoogleFailed)
		return errors.Join(err, f.m.fire(eventRegistrationRejected))
	}
	if err := f.store.SetSession(ctx, result.Session()); err != nil {
		f.raiseLocked(NoticeNetwork)
		return errors.Join(err, f.m.fire(eventRegistrationRejected))
	}
	return f.m.fire(eventGoogleRegistered)
}

// SubmitOTP sends the collected code against the confirmed email. A no-op
// without network traffic while any slot is empty.
func (f *Flow) SubmitOTP(ctx context.Context) error {
	if err := f.begin(StateAwaitingOTP, eventOTPVerified); err != nil {
		return err
	}
	defer f.end()

	f.mu.Lock()
	if !f.collector.IsComplete() {
		f.mu.Unlock()
		return ErrOTPIncomplete
	}
	email := f.data.ConfirmedEmail
	code := f.collector.String()
	f.mu.Unlock()

	result, err := f.api.VerifyOTP(ctx, email, code)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		if errors.Is(err, apiclient.ErrInvalidOTP) {
			f.raiseLocked(NoticeInvalidOTP)
		} else {
			f.raiseLocked(NoticeNetwork)
		}
		return err
	}

	if err := f.store.SetSession(ctx, result.Session()); err != nil {
		f.raiseLocked(NoticeNetwork)
		return err
	}
	return f.m.fire(eventOTPVerified)
}

// ResendOTP re-runs the accepted registration with the identical payload so
// the backend dispatches a fresh code. Entered digits are kept and the state
// does not change. Serialized against SubmitOTP through the busy latch.
func (f *Flow) ResendOTP(ctx context.Context) error {
	if err := f.begin(StateAwaitingOTP, eventOTPVerified); err != nil {
		return err
	}
	defer f.end()

	payload := func() apiclient.RegistrationPayload {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.regPayload
	}()

	if err := f.api.Register(ctx, payload); err != nil {
		f.raise(registrationNotice(err))
		return err
	}
	return nil
}

// SignInWithGoogle runs the Google branch: obtain an identity, then route
// existing users into the password step (still required) and new users into
// the registration form with email and name prefilled. User cancellation
// returns to the email step without a notice.
func (f *Flow) SignInWithGoogle(ctx context.Context) error {
	if f.bridge == nil {
		return errors.New("authflow: google sign-in is not configured")
	}

	if err := f.begin(StateEmailEntry, eventGoogleSignIn); err != nil {
		return err
	}
	defer f.end()

	f.mu.Lock()
	if err := f.m.fire(eventGoogleSignIn); err != nil {
		f.mu.Unlock()
		return err
	}
	f.mu.Unlock()

	result := f.bridge.SignIn(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if result.Canceled {
		return f.m.fire(eventGoogleCanceled)
	}
	if result.Err != nil {
		f.raiseLocked(NoticeGoogleFailed)
		return errors.Join(result.Err, f.m.fire(eventGoogleFailed))
	}

	f.data.Email = normalizeEmail(result.Identity.Email)
	f.data.Name = result.Identity.Name
	f.data.IsGoogleSignIn = true
	f.data.IsNewUser = result.IsNewUser
	f.googleToken = result.Identity.Token

	if result.IsNewUser {
		return f.m.fire(eventGoogleNewUser)
	}
	return f.m.fire(eventGoogleExistingUser)
}

// begin acquires the busy latch after checking the operation is legal in the
// current state. The event is only probed here, not fired: it confirms the
// flow can still make progress from this state.
func (f *Flow) begin(required State, probe Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.m.current == StateAuthenticated {
		return ErrFlowFinished
	}
	if f.busy {
		return ErrBusy
	}
	if f.m.current != required {
		return &ErrNoTransition{State: f.m.current, Event: probe}
	}
	f.busy = true
	f.notice = ""
	return nil
}

func (f *Flow) end() {
	f.mu.Lock()
	f.busy = false
	f.mu.Unlock()
}

func (f *Flow) raise(notice string) {
	f.mu.Lock()
	f.raiseLocked(notice)
	f.mu.Unlock()
}

func (f *Flow) raiseLocked(notice string) {
	f.notice = notice
	if f.notify == nil {
		return
	}
	// Delivery happens off the flow's lock so the callback can read flow
	// state, but through a single dispatcher so notices arrive in the
	// order they were raised.
	f.noticeMu.Lock()
	f.noticeQueue = append(f.noticeQueue, notice)
	if !f.dispatching {
		f.dispatching = true
		go f.dispatchNotices()
	}
	f.noticeMu.Unlock()
}

func (f *Flow) dispatchNotices() {
	for {
		f.noticeMu.Lock()
		if len(f.noticeQueue) == 0 {
			f.dispatching = false
			f.noticeMu.Unlock()
			return
		}
		notice := f.noticeQueue[0]
		f.noticeQueue = f.noticeQueue[1:]
		f.noticeMu.Unlock()
		f.notify(notice)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validationNotice extracts the first message of a validation failure.
func validationNotice(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return ve.First()
	}
	return err.Error()
}

// registrationNotice prefers the server's first field-specific message.
func registrationNotice(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.FirstFieldError(); msg != "" {
			return msg
		}
	}
	if errors.Is(err, apiclient.ErrNetwork) {
		return NoticeNetwork
	}
	return NoticeRegistration
}
