// Package validator provides the client-side field checks that run before
// any network call: required fields and email format. Validation failures
// never reach the backend.
package validator

import (
	"fmt"
	"net/mail"
	"strings"
)

// ValidationError describes a single failed check on a named field.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors collects all failed checks of one submission.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}

	var parts []string
	for _, err := range ve {
		parts = append(parts, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// First returns the first failure message, for screens that surface a single
// notice.
func (ve ValidationErrors) First() string {
	if len(ve) == 0 {
		return ""
	}
	return ve[0].Message
}

// Rule is a single check against a field value.
type Rule struct {
	Field   string
	Message string
	Check   func() bool
}

// Apply runs all rules and returns the collected failures, or nil when every
// rule passes.
func Apply(rules ...Rule) error {
	var errs ValidationErrors
	for _, rule := range rules {
		if !rule.Check() {
			errs = append(errs, ValidationError{Field: rule.Field, Message: rule.Message})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Required fails when the value is empty after trimming whitespace.
func Required(field, value string) Rule {
	return Rule{
		Field:   field,
		Message: fmt.Sprintf("%s is required", field),
		Check: func() bool {
			return strings.TrimSpace(value) != ""
		},
	}
}

// ValidEmail fails when the value does not parse as a bare RFC 5322 address.
func ValidEmail(field, value string) Rule {
	return Rule{
		Field:   field,
		Message: "enter a valid email address",
		Check: func() bool {
			trimmed := strings.TrimSpace(value)
			if trimmed == "" {
				return false
			}
			addr, err := mail.ParseAddress(trimmed)
			// Reject display-name forms like "Jane <jane@example.com>".
			return err == nil && addr.Address == trimmed
		},
	}
}

// MinLength fails when the value is shorter than min characters.
func MinLength(field, value string, min int) Rule {
	return Rule{
		Field:   field,
		Message: fmt.Sprintf("%s must be at least %d characters", field, min),
		Check: func() bool {
			return len([]rune(value)) >= min
		},
	}
}
