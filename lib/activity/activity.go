package activity

import (
	"fmt"
	"strconv"
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// maxObjectID is the exclusive upper bound for object ids (10 digits).
	maxObjectID int64 = 10_000_000_000
	// maxVerbID is the exclusive upper bound for verb ids (3 digits).
	maxVerbID = 1_000
)

// --------------------------------------------------------------------------
// Serialization ID
// --------------------------------------------------------------------------

// ID is the sortable identity of an activity or aggregated activity.
//
// It is the decimal representation of the composite integer
// <epoch millis><object id, 10 digits><verb id, 3 digits>. The full value
// does not fit in 64 bits, so it is carried as a string; Less implements
// proper numeric ordering for any width.
type ID string

// Less reports whether a is numerically smaller than b.
func (a ID) Less(b ID) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// IsZero reports whether the id is unset.
func (a ID) IsZero() bool {
	return a == ""
}

// Score converts the id to a float64 sort score. Backends that only
// support numeric scores (eg. sorted sets) use this; precision loss in
// the low digits is accepted there, the full id remains authoritative.
func (a ID) Score() float64 {
	f, _ := strconv.ParseFloat(string(a), 64)
	return f
}

// --------------------------------------------------------------------------
// Activity
// --------------------------------------------------------------------------

// Activity is a single immutable event: actor did verb to object
// (optionally on target) at time. Extra carries opaque application
// context that is serialized verbatim.
//
// A TargetID of 0 means no target.
type Activity struct {
	ActorID  int64
	Verb     Verb
	ObjectID int64
	TargetID int64
	Time     time.Time
	Extra    map[string]string
}

// NewActivity creates an activity timestamped now (UTC, millisecond
// resolution). Fill TargetID, Time or Extra on the returned value before
// first use if needed; activities are immutable once handed to a feed.
func NewActivity(actorID int64, verb Verb, objectID int64) Activity {
	return Activity{
		ActorID:  actorID,
		Verb:     verb,
		ObjectID: objectID,
		Time:     time.Now().UTC().Truncate(time.Millisecond),
	}
}

// SerializationID computes the sortable identity of the activity.
//
// It returns a ValidationError if the object id or verb id exceed their
// digit budget or if the activity has no time. Violations are hard
// errors, never silent truncation.
func (a Activity) SerializationID() (ID, error) {
	if a.ObjectID < 0 || a.ObjectID >= maxObjectID {
		return "", NewValidationError("object id %d exceeds 10 digits", a.ObjectID)
	}
	if a.Verb.ID < 0 || a.Verb.ID >= maxVerbID {
		return "", NewValidationError("verb id %d exceeds 3 digits", a.Verb.ID)
	}
	if a.Time.IsZero() {
		return "", NewValidationError("cannot serialize an activity without a time")
	}
	millis := a.Time.UnixMilli()
	return ID(fmt.Sprintf("%d%010d%03d", millis, a.ObjectID, a.Verb.ID)), nil
}

// MustSerializationID is like SerializationID but panics on invalid
// activities. Intended for values already validated at construction.
func (a Activity) MustSerializationID() ID {
	id, err := a.SerializationID()
	if err != nil {
		panic(err)
	}
	return id
}

// Equal reports whether both activities have the same serialization id.
func (a Activity) Equal(other Activity) bool {
	aid, err := a.SerializationID()
	if err != nil {
		return false
	}
	bid, err := other.SerializationID()
	if err != nil {
		return false
	}
	return aid == bid
}

// SameOccurrence reports whether both activities describe the same
// interaction: same actor, verb, object and target. Time is ignored, so
// re-recording an interaction later still matches.
func (a Activity) SameOccurrence(other Activity) bool {
	return a.ActorID == other.ActorID &&
		a.Verb == other.Verb &&
		a.ObjectID == other.ObjectID &&
		a.TargetID == other.TargetID
}

// Dehydrate returns the id-only stand-in for this activity.
func (a Activity) Dehydrate() (DehydratedActivity, error) {
	id, err := a.SerializationID()
	if err != nil {
		return DehydratedActivity{}, err
	}
	return DehydratedActivity{ID: id}, nil
}

// String implements fmt.Stringer.
func (a Activity) String() string {
	return fmt.Sprintf("Activity(%s) %d %d", a.Verb.PastTense, a.ActorID, a.ObjectID)
}

// --------------------------------------------------------------------------
// DehydratedActivity
// --------------------------------------------------------------------------

// DehydratedActivity is the id-only form of an Activity. Timelines store
// it instead of the full payload; a hydration pass resolves the full
// activities from the global activity storage on read.
type DehydratedActivity struct {
	ID ID
}

// Hydrate resolves the full activity from an id keyed lookup map.
// It returns ErrActivityNotFound if the id is absent, which read paths
// treat as a gracefully skippable entry.
func (d DehydratedActivity) Hydrate(byID map[ID]Activity) (Activity, error) {
	a, ok := byID[d.ID]
	if !ok {
		return Activity{}, fmt.Errorf("hydrating %s: %w", d.ID, ErrActivityNotFound)
	}
	return a, nil
}
