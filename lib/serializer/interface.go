package serializer

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/dFeed/lib/activity"
)

// IActivitySerializer is the interface for all single activity codecs.
type IActivitySerializer interface {
	// Dumps serializes an activity into its storage string.
	// It returns a SerializationError for invalid activities or payload
	// fields containing reserved characters.
	Dumps(a activity.Activity) (string, error)
	// Loads deserializes a storage string into an activity.
	Loads(s string) (activity.Activity, error)
}

// IAggregatedSerializer is the interface for aggregated activity codecs.
type IAggregatedSerializer interface {
	// Dumps serializes an aggregated activity into its storage string.
	Dumps(a *activity.AggregatedActivity) (string, error)
	// Loads deserializes a storage string into an aggregated activity.
	Loads(s string) (*activity.AggregatedActivity, error)
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// SerializationError reports a payload that cannot be encoded or a
// stored string that cannot be decoded.
type SerializationError struct {
	Msg string
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization error: %s", e.Msg)
}

// NewSerializationError creates a new SerializationError with a
// formatted message.
func NewSerializationError(format string, args ...interface{}) *SerializationError {
	return &SerializationError{Msg: fmt.Sprintf(format, args...)}
}

// checkReserved returns an error if value contains any of the given
// structural separators.
func checkReserved(value string, reserved ...string) error {
	for _, r := range reserved {
		if strings.Contains(value, r) {
			return NewSerializationError("value %q contains reserved character %q", value, r)
		}
	}
	return nil
}
