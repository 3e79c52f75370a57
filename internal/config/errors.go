package config

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownToken is returned for a numeric token other than the screen
	// dimensions.
	ErrUnknownToken = errors.New("unknown numeric token")
	// ErrMissingField is returned when a required binding field is empty.
	ErrMissingField = errors.New("missing required field")
	// ErrUnknownLostHandPolicy is returned for an unrecognised binding-level
	// lost_hand_policy.
	ErrUnknownLostHandPolicy = errors.New("unknown binding lost-hand policy")
)

// Error is a configuration error tied to one binding field, or to one field
// of a calibration entry. Building a pipeline from configuration stops at the
// first Error.
type Error struct {
	// Binding is the binding id, or its position when it has none.
	Binding string
	// Calibration is the feature name of a bad calibration entry.
	Calibration string
	Field       string
	Err         error
}

func (e *Error) Error() string {
	if e.Calibration != "" {
		return fmt.Sprintf("calibration %s: %s: %v", e.Calibration, e.Field, e.Err)
	}
	return fmt.Sprintf("binding %s: %s: %v", e.Binding, e.Field, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// BindingRef returns the name used for the i-th binding in errors and logs.
func BindingRef(i int, b *Binding) string {
	if b.ID != "" {
		return b.ID
	}
	return fmt.Sprintf("#%d", i)
}
