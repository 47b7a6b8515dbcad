package otp

import "errors"

var (
	// ErrInvalidLength is returned when a collector is created with a
	// non-positive slot count.
	ErrInvalidLength = errors.New("otp: length must be positive")

	// ErrIndexOutOfRange is returned when a slot index is outside the
	// fixed sequence bounds.
	ErrIndexOutOfRange = errors.New("otp: slot index out of range")
)
