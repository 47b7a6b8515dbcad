package otp

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultLength is the code length used by the standard registration flow.
	DefaultLength = 6
	// ShortLength is used by deployments that dispatch four-digit codes.
	ShortLength = 4
)

// Collector holds a fixed-length ordered sequence of single-character slots
// and tracks which slot should receive the next keystroke. It models the
// one-box-per-digit OTP input: typing a digit advances focus, deleting a
// digit moves focus back.
//
// Collector is not safe for concurrent use; it belongs to a single flow
// instance on the UI goroutine.
type Collector struct {
	slots []string
	focus int
}

// New creates a collector with the given number of slots.
// Length is fixed for the lifetime of the collector.
func New(length int) (*Collector, error) {
	if length <= 0 {
		return nil, ErrInvalidLength
	}
	return &Collector{slots: make([]string, length)}, nil
}

// MustNew creates a collector and panics on invalid length.
func MustNew(length int) *Collector {
	c, err := New(length)
	if err != nil {
		panic(err)
	}
	return c
}

// Length returns the fixed number of slots.
func (c *Collector) Length() int {
	return len(c.slots)
}

// Focus returns the index of the slot that should receive input next.
func (c *Collector) Focus() int {
	return c.focus
}

// SetDigit writes value into the slot at index. A non-empty value keeps its
// first character and advances focus to the next slot; an empty value clears
// the slot and moves focus to the previous one. Focus moves are no-ops at
// the sequence boundaries.
func (c *Collector) SetDigit(index int, value string) error {
	if index < 0 || index >= len(c.slots) {
		return ErrIndexOutOfRange
	}

	if value == "" {
		c.slots[index] = ""
		if index > 0 {
			c.focus = index - 1
		} else {
			c.focus = 0
		}
		return nil
	}

	// Paste or fast typing can deliver more than one rune; keep the first.
	c.slots[index] = string([]rune(value)[0])
	if index < len(c.slots)-1 {
		c.focus = index + 1
	} else {
		c.focus = index
	}
	return nil
}

// Digit returns the value held by the slot at index, or an empty string for
// an out-of-range index.
func (c *Collector) Digit(index int) string {
	if index < 0 || index >= len(c.slots) {
		return ""
	}
	return c.slots[index]
}

// IsComplete reports whether every slot holds exactly one character. Slots
// count characters, not bytes: a multibyte digit from an IME fills its slot
// the same as an ASCII one.
func (c *Collector) IsComplete() bool {
	for _, s := range c.slots {
		if utf8.RuneCountInString(s) != 1 {
			return false
		}
	}
	return true
}

// String joins the slot values in order. The result is only meaningful for
// submission when IsComplete is true.
func (c *Collector) String() string {
	return strings.Join(c.slots, "")
}

// Reset clears all slots and returns focus to the first slot, for re-entering
// the verification step.
func (c *Collector) Reset() {
	for i := range c.slots {
		c.slots[i] = ""
	}
	c.focus = 0
}
