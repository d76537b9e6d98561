package spaced_repetition

import "errors"

// Use errors.Is to check: errors.Is(err, spaced_repetition.ErrInvalidInput)
var (
	// ErrInvalidInput means the caller passed a quality (or related signal) outside its range
	ErrInvalidInput = errors.New("spaced_repetition: invalid input")
	// ErrCorruptState means the stored state already violates the scheduling invariants.
	// It is not recoverable by retrying.
	ErrCorruptState = errors.New("spaced_repetition: corrupt review state")
)
