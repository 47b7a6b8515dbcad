// Package authflow drives the interactive login/registration sequence: email
// check, password or registration details, OTP verification, and the Google
// sign-in branch.
//
// The flow is an explicit state machine. Each screen-visible step is a state
// tag; what the screen should render (password box, OTP boxes, registration
// form) is derived from the tag, never stored as independent flags, so
// impossible combinations cannot be represented. One flow instance lives for
// one login session and is discarded once it reaches StateAuthenticated.
//
// Every network-triggering operation holds the flow's busy latch for its
// duration: re-submitting the same step, or racing an OTP resend against a
// submit, waits out as ErrBusy instead of issuing duplicate requests.
package authflow
