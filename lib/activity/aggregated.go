package activity

import (
	"fmt"
	"strconv"
	"time"
)

// DefaultMaxAggregatedLength bounds the in-memory activity list of an
// aggregate. Overflowing activities are dropped oldest-first and only
// counted via MinimizedActivities.
const DefaultMaxAggregatedLength = 15

// --------------------------------------------------------------------------
// AggregatedActivity
// --------------------------------------------------------------------------

// AggregatedActivity is a group of activities sharing a group key.
//
// The aggregate exists in one of two modes. Hydrated: Activities holds
// the full inner activities. Dehydrated: only ActivityIDs is populated
// and the aggregate must be rehydrated from the global activity storage
// before inner activities can be inspected.
type AggregatedActivity struct {
	Group      string
	Activities []Activity

	// ActivityIDs is only populated in dehydrated mode.
	ActivityIDs []ID
	Dehydrated  bool

	// MinimizedActivities counts activities dropped from the bounded
	// in-memory list. ActivityCount approximates the true total with it.
	MinimizedActivities int

	CreatedAt time.Time
	UpdatedAt time.Time

	// SeenAt / ReadAt are set by user interaction. A zero value means
	// never seen / never read.
	SeenAt time.Time
	ReadAt time.Time

	// MaxLength overrides DefaultMaxAggregatedLength when > 0.
	MaxLength int
}

// NewAggregatedActivity creates an empty aggregate for the given group.
func NewAggregatedActivity(group string) *AggregatedActivity {
	return &AggregatedActivity{Group: group}
}

func (a *AggregatedActivity) maxLength() int {
	if a.MaxLength > 0 {
		return a.MaxLength
	}
	return DefaultMaxAggregatedLength
}

// SerializationID derives the sortable identity from UpdatedAt only.
// The group key is stored as data, not encoded in the sort key: when the
// aggregate is updated its id changes and the old row must be deleted.
//
// The value is the update time as epoch seconds times 1000, matching the
// wire format of existing deployments.
func (a *AggregatedActivity) SerializationID() ID {
	if a.UpdatedAt.IsZero() {
		return ""
	}
	return ID(strconv.FormatInt(a.UpdatedAt.Unix()*1000, 10))
}

// --------------------------------------------------------------------------
// Inner Activity Management
// --------------------------------------------------------------------------

// IDs returns the inner activity ids. Works in both hydrated and
// dehydrated mode.
func (a *AggregatedActivity) IDs() []ID {
	if a.Dehydrated {
		return append([]ID(nil), a.ActivityIDs...)
	}
	ids := make([]ID, 0, len(a.Activities))
	for _, act := range a.Activities {
		ids = append(ids, act.MustSerializationID())
	}
	return ids
}

// Len returns the number of inner activities in either mode.
func (a *AggregatedActivity) Len() int {
	if a.Dehydrated {
		return len(a.ActivityIDs)
	}
	return len(a.Activities)
}

// Contains reports whether the aggregate holds the given inner id.
func (a *AggregatedActivity) Contains(id ID) bool {
	for _, existing := range a.IDs() {
		if existing == id {
			return true
		}
	}
	return false
}

// Append adds an activity to the aggregate, updating CreatedAt/UpdatedAt.
// Appending an id that is already present returns ErrDuplicateActivity.
// When the bounded list overflows, the oldest activity is dropped and
// MinimizedActivities is incremented.
func (a *AggregatedActivity) Append(act Activity) error {
	id, err := act.SerializationID()
	if err != nil {
		return err
	}
	if a.Contains(id) {
		return fmt.Errorf("appending %s to group %q: %w", id, a.Group, ErrDuplicateActivity)
	}

	a.Activities = append(a.Activities, act)

	if a.CreatedAt.IsZero() {
		a.CreatedAt = act.Time
	}
	if a.UpdatedAt.IsZero() || act.Time.After(a.UpdatedAt) {
		a.UpdatedAt = act.Time
	}

	if len(a.Activities) > a.maxLength() {
		a.Activities = a.Activities[1:]
		a.MinimizedActivities++
	}
	return nil
}

// Remove drops the inner activity with the given id.
//
// Removing an id that is not present returns ErrActivityNotFound.
// Removing the last remaining activity is forbidden: an aggregate must
// become a deletion at the feed level, never an empty group. A
// dehydrated aggregate cannot be removed from and must be hydrated
// first.
func (a *AggregatedActivity) Remove(id ID) error {
	if a.Dehydrated {
		return NewValidationError("removing %s from group %q: aggregate is dehydrated, hydrate first", id, a.Group)
	}
	if !a.Contains(id) {
		return fmt.Errorf("removing %s from group %q: %w", id, a.Group, ErrActivityNotFound)
	}
	if a.Len() == 1 {
		return NewValidationError("removing %s would leave group %q empty", id, a.Group)
	}

	kept := a.Activities[:0]
	for _, act := range a.Activities {
		if act.MustSerializationID() != id {
			kept = append(kept, act)
		}
	}
	a.Activities = kept
	a.UpdatedAt = a.LastActivity().Time

	if a.MinimizedActivities > 0 {
		a.MinimizedActivities--
	}
	return nil
}

// RemoveMany removes all given ids, skipping those that are absent, and
// returns the ids actually removed.
func (a *AggregatedActivity) RemoveMany(ids []ID) []ID {
	var removed []ID
	for _, id := range ids {
		if err := a.Remove(id); err == nil {
			removed = append(removed, id)
		}
	}
	return removed
}

// LastActivity returns the most recently appended inner activity.
func (a *AggregatedActivity) LastActivity() Activity {
	return a.Activities[len(a.Activities)-1]
}

// --------------------------------------------------------------------------
// Counts and Projections
// --------------------------------------------------------------------------

// ActivityCount approximates the true number of activities ever
// aggregated into this group: the bounded list plus the minimized count.
func (a *AggregatedActivity) ActivityCount() int {
	return a.MinimizedActivities + a.Len()
}

// ActorCount approximates the number of distinct actors.
func (a *AggregatedActivity) ActorCount() int {
	return a.MinimizedActivities + len(a.ActorIDs())
}

// OtherActorCount is the actor count excluding the most recent actor,
// for "X and N others" style rendering.
func (a *AggregatedActivity) OtherActorCount() int {
	return a.ActorCount() - 1
}

// ActorIDs returns the distinct actor ids in first-seen order.
func (a *AggregatedActivity) ActorIDs() []int64 {
	return uniqueInts(a.Activities, func(act Activity) int64 { return act.ActorID })
}

// ObjectIDs returns the distinct object ids in first-seen order.
func (a *AggregatedActivity) ObjectIDs() []int64 {
	return uniqueInts(a.Activities, func(act Activity) int64 { return act.ObjectID })
}

// Verbs returns the distinct verbs in first-seen order.
func (a *AggregatedActivity) Verbs() []Verb {
	seen := make(map[int]bool, len(a.Activities))
	var verbs []Verb
	for _, act := range a.Activities {
		if !seen[act.Verb.ID] {
			seen[act.Verb.ID] = true
			verbs = append(verbs, act.Verb)
		}
	}
	return verbs
}

// Verb returns the verb of the first inner activity.
func (a *AggregatedActivity) Verb() Verb {
	return a.Activities[0].Verb
}

func uniqueInts(acts []Activity, get func(Activity) int64) []int64 {
	seen := make(map[int64]bool, len(acts))
	var out []int64
	for _, act := range acts {
		v := get(act)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// --------------------------------------------------------------------------
// Seen / Read State
// --------------------------------------------------------------------------

// IsSeen reports whether the aggregate was seen since its last update.
func (a *AggregatedActivity) IsSeen() bool {
	return !a.SeenAt.IsZero() && !a.SeenAt.Before(a.UpdatedAt)
}

// UpdateSeenAt marks the aggregate as seen now.
func (a *AggregatedActivity) UpdateSeenAt() {
	a.SeenAt = time.Now().UTC()
}

// IsRead reports whether the aggregate was read since its last update.
func (a *AggregatedActivity) IsRead() bool {
	return !a.ReadAt.IsZero() && !a.ReadAt.Before(a.UpdatedAt)
}

// UpdateReadAt marks the aggregate as read now.
func (a *AggregatedActivity) UpdateReadAt() {
	a.ReadAt = time.Now().UTC()
}

// --------------------------------------------------------------------------
// Hydration
// --------------------------------------------------------------------------

// Dehydrate converts the aggregate in place to its id-only form.
// Dehydrating twice is a validation error.
func (a *AggregatedActivity) Dehydrate() error {
	if a.Dehydrated {
		return NewValidationError("group %q is already dehydrated", a.Group)
	}
	a.ActivityIDs = a.IDs()
	a.Activities = nil
	a.Dehydrated = true
	return nil
}

// Hydrate restores the full inner activities from an id keyed lookup
// map. Ids missing from the map are skipped: feeds are a best-effort
// view and an activity removed from the global storage simply disappears
// from the aggregate.
func (a *AggregatedActivity) Hydrate(byID map[ID]Activity) error {
	if !a.Dehydrated {
		return NewValidationError("group %q is not dehydrated", a.Group)
	}
	for _, id := range a.ActivityIDs {
		if act, ok := byID[id]; ok {
			a.Activities = append(a.Activities, act)
		}
	}
	a.ActivityIDs = nil
	a.Dehydrated = false
	return nil
}

// --------------------------------------------------------------------------
// Copying and Comparison
// --------------------------------------------------------------------------

// Clone returns a deep copy of the aggregate. The merge algorithm uses
// it so that the stored original is never mutated in place.
func (a *AggregatedActivity) Clone() *AggregatedActivity {
	clone := *a
	clone.Activities = append([]Activity(nil), a.Activities...)
	clone.ActivityIDs = append([]ID(nil), a.ActivityIDs...)
	return &clone
}

// EqualActivities reports whether both aggregates hold the same inner
// activity ids in the same order.
func (a *AggregatedActivity) EqualActivities(other *AggregatedActivity) bool {
	aIDs, bIDs := a.IDs(), other.IDs()
	if len(aIDs) != len(bIDs) {
		return false
	}
	for i := range aIDs {
		if aIDs[i] != bIDs[i] {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (a *AggregatedActivity) String() string {
	if a.Dehydrated {
		return fmt.Sprintf("AggregatedActivity(%s) dehydrated %v", a.Group, a.ActivityIDs)
	}
	return fmt.Sprintf("AggregatedActivity(%s) actors %v objects %v", a.Group, a.ActorIDs(), a.ObjectIDs())
}
