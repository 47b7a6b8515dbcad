package authflow

// State is a tag for one step of the credential flow.
type State string

// Event names a trigger that moves the flow between states.
type Event string

const (
	// StateEmailEntry is the initial state: the user is typing an email.
	StateEmailEntry State = "email_entry"
	// StateCheckingEmail covers the email-registration round trip.
	StateCheckingEmail State = "checking_email"
	// StatePasswordEntry asks an existing user for their password.
	StatePasswordEntry State = "password_entry"
	// StateRegistrationDetails collects the new-user profile form.
	StateRegistrationDetails State = "registration_details"
	// StateRegistering covers the registration round trip.
	StateRegistering State = "registering"
	// StateAwaitingOTP waits for the emailed verification code.
	StateAwaitingOTP State = "awaiting_otp"
	// StateGoogleEntry covers the interactive Google sign-in step.
	StateGoogleEntry State = "google_entry"
	// StateAuthenticated is terminal: credentials are in the store.
	StateAuthenticated State = "authenticated"
)

const (
	eventSubmitEmail          Event = "submit_email"
	eventEmailRegistered      Event = "email_registered"
	eventEmailUnregistered    Event = "email_unregistered"
	eventEmailCheckFailed     Event = "email_check_failed"
	eventLoginSucceeded       Event = "login_succeeded"
	eventSubmitRegistration   Event = "submit_registration"
	eventRegistrationAccepted Event = "registration_accepted"
	eventRegistrationRejected Event = "registration_rejected"
	eventGoogleRegistered     Event = "google_registered"
	eventOTPVerified          Event = "otp_verified"
	eventGoogleSignIn         Event = "google_sign_in"
	eventGoogleExistingUser   Event = "google_existing_user"
	eventGoogleNewUser        Event = "google_new_user"
	eventGoogleCanceled       Event = "google_canceled"
	eventGoogleFailed         Event = "google_failed"
)

// machine is the flow's transition table. Failed server round trips that
// leave the user on the same screen (wrong password, wrong OTP) have no
// transition at all: the state simply does not change.
type machine struct {
	current State
	table   map[State]map[Event]State
}

func newMachine() *machine {
	return &machine{
		current: StateEmailEntry,
		table: map[State]map[Event]State{
			StateEmailEntry: {
				eventSubmitEmail:  StateCheckingEmail,
				eventGoogleSignIn: StateGoogleEntry,
			},
			StateCheckingEmail: {
				eventEmailRegistered:   StatePasswordEntry,
				eventEmailUnregistered: StateRegistrationDetails,
				eventEmailCheckFailed:  StateEmailEntry,
			},
			StatePasswordEntry: {
				eventLoginSucceeded: StateAuthenticated,
			},
			StateRegistrationDetails: {
				eventSubmitRegistration: StateRegistering,
			},
			StateRegistering: {
				eventRegistrationAccepted: StateAwaitingOTP,
				eventRegistrationRejected: StateRegistrationDetails,
				eventGoogleRegistered:     StateAuthenticated,
			},
			StateAwaitingOTP: {
				eventOTPVerified: StateAuthenticated,
			},
			StateGoogleEntry: {
				eventGoogleExistingUser: StatePasswordEntry,
				eventGoogleNewUser:      StateRegistrationDetails,
				eventGoogleCanceled:     StateEmailEntry,
				eventGoogleFailed:       StateEmailEntry,
			},
		},
	}
}

// fire applies event to the current state. The caller (Flow) serializes
// access, so the machine itself carries no lock.
func (m *machine) fire(event Event) error {
	next, ok := m.table[m.current][event]
	if !ok {
		return &ErrNoTransition{State: m.current, Event: event}
	}
	m.current = next
	return nil
}
