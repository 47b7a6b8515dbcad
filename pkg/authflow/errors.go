package authflow

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy indicates another operation of this flow is still in flight.
	ErrBusy = errors.New("authflow: operation already in progress")

	// ErrOTPIncomplete indicates a submit was attempted before every OTP
	// slot was filled; no network call was issued.
	ErrOTPIncomplete = errors.New("authflow: otp is incomplete")

	// ErrFlowFinished indicates an operation on a flow that already
	// reached its terminal state.
	ErrFlowFinished = errors.New("authflow: flow already authenticated")
)

// ErrNoTransition indicates an operation that is not legal in the current
// state, e.g. submitting an OTP before registering.
type ErrNoTransition struct {
	State State
	Event Event
}

func (e *ErrNoTransition) Error() string {
	return fmt.Sprintf("authflow: no transition from state %q for event %q", e.State, e.Event)
}
