package activity

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Sentinel Errors
// --------------------------------------------------------------------------

var (
	// ErrDuplicateActivity is returned when an activity is appended to an
	// aggregate that already contains its serialization id.
	ErrDuplicateActivity = errors.New("duplicate activity")

	// ErrActivityNotFound is returned when an activity id is looked up in
	// an aggregate or timeline that does not contain it.
	ErrActivityNotFound = errors.New("activity not found")
)

// --------------------------------------------------------------------------
// Validation Errors
// --------------------------------------------------------------------------

// ValidationError reports invalid activity data such as digit overflow of
// the object or verb id, or a missing timestamp. It is always surfaced
// synchronously to the caller and never retried.
type ValidationError struct {
	Msg string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid activity: %s", e.Msg)
}

// NewValidationError creates a new ValidationError with a formatted message.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
