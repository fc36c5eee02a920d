package activity

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Verb
// --------------------------------------------------------------------------

// Verb describes what an activity did. Nomenclature is loosely based on
// http://activitystrea.ms/specs/atom/1.0/#activity.summary
//
// The id must stay below 1000 so it fits the three digit slot of the
// serialization id.
type Verb struct {
	ID         int
	Infinitive string
	PastTense  string
}

// String returns the infinitive form of the verb.
func (v Verb) String() string {
	return v.Infinitive
}

// --------------------------------------------------------------------------
// Verb Registry
// --------------------------------------------------------------------------

// VerbRegistry maps verb ids to verb metadata. Serializers use it to
// restore the full verb from the stored id.
//
// The registry is explicitly constructed and injected; there is no
// package-level global. Create one at process start and pass it to the
// serializers that need it.
//
// Thread-safety: all methods are safe for concurrent use.
type VerbRegistry struct {
	verbs *xsync.MapOf[int, Verb]
}

// NewVerbRegistry creates an empty verb registry.
func NewVerbRegistry() *VerbRegistry {
	return &VerbRegistry{
		verbs: xsync.NewMapOf[int, Verb](),
	}
}

// Register adds a verb to the registry. Registering a verb with an id
// that is already taken by a different verb is a validation error.
func (r *VerbRegistry) Register(v Verb) error {
	if v.ID < 0 || v.ID >= maxVerbID {
		return NewValidationError("verb id %d out of range [0, %d)", v.ID, maxVerbID)
	}
	if existing, loaded := r.verbs.LoadOrStore(v.ID, v); loaded && existing != v {
		return NewValidationError("verb id %d already registered as %q", v.ID, existing.Infinitive)
	}
	return nil
}

// ByID returns the verb registered under the given id.
func (r *VerbRegistry) ByID(id int) (Verb, bool) {
	return r.verbs.Load(id)
}

// --------------------------------------------------------------------------
// Reference Verbs
// --------------------------------------------------------------------------

var (
	VerbFollow  = Verb{ID: 1, Infinitive: "follow", PastTense: "followed"}
	VerbComment = Verb{ID: 2, Infinitive: "comment", PastTense: "commented"}
	VerbLove    = Verb{ID: 3, Infinitive: "love", PastTense: "loved"}
	VerbAdd     = Verb{ID: 4, Infinitive: "add", PastTense: "added"}
)

// DefaultRegistry returns a registry pre-loaded with the reference verbs.
func DefaultRegistry() *VerbRegistry {
	r := NewVerbRegistry()
	for _, v := range []Verb{VerbFollow, VerbComment, VerbLove, VerbAdd} {
		// ids are constant and in range
		_ = r.Register(v)
	}
	return r
}
