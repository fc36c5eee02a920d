package storage

import (
	"github.com/ValentinKolb/dFeed/lib/activity"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// Entry is one stored timeline row: the sortable id and an opaque,
// already-serialized payload. For dehydrated timelines the payload is
// simply the id again.
type Entry struct {
	ID      activity.ID
	Payload string
}

// Order is the sort direction of slice reads.
type Order int

const (
	// OrderDesc returns newest entries first. This is the zero value and
	// the natural feed order.
	OrderDesc Order = iota
	// OrderAsc returns oldest entries first.
	OrderAsc
)

// SliceFilter expresses keyset bounds on the serialization id. Zero
// fields are unset. Gte/Lte bounds are inclusive, Gt/Lt exclusive.
type SliceFilter struct {
	IDGte activity.ID
	IDLte activity.ID
	IDGt  activity.ID
	IDLt  activity.ID
}

// Match reports whether the given id satisfies all set bounds.
func (f SliceFilter) Match(id activity.ID) bool {
	if !f.IDGte.IsZero() && id.Less(f.IDGte) {
		return false
	}
	if !f.IDLte.IsZero() && f.IDLte.Less(id) {
		return false
	}
	if !f.IDGt.IsZero() && !f.IDGt.Less(id) {
		return false
	}
	if !f.IDLt.IsZero() && !id.Less(f.IDLt) {
		return false
	}
	return true
}

// IsZero reports whether no bound is set.
func (f SliceFilter) IsZero() bool {
	return f.IDGte.IsZero() && f.IDLte.IsZero() && f.IDGt.IsZero() && f.IDLt.IsZero()
}

// --------------------------------------------------------------------------
// Batch
// --------------------------------------------------------------------------

// Batch buffers timeline writes across keys so a fanout chunk hits the
// backend with as few round trips as possible.
//
// Flush submits all buffered writes. Close releases the batch and must
// be called on every exit path; closing without a prior flush discards
// buffered writes.
type Batch interface {
	Flush() error
	Close() error
}

// NopBatch is the batch handle of backends without native batching: all
// writes were already executed immediately.
type NopBatch struct{}

func (NopBatch) Flush() error { return nil }
func (NopBatch) Close() error { return nil }

// --------------------------------------------------------------------------
// Storage Interfaces
// --------------------------------------------------------------------------

// IActivityStorage is the global activity hash keyed by serialization
// id. All feeds of a deployment share one instance so each activity
// payload is stored exactly once.
//
// Thread-safety: implementations must be safe for concurrent use.
type IActivityStorage interface {
	// AddMany upserts the given activities.
	AddMany(activities []activity.Activity) error
	// GetMany returns the found activities keyed by id. Missing ids are
	// simply absent from the result, not an error.
	GetMany(ids []activity.ID) (map[activity.ID]activity.Activity, error)
	// RemoveMany deletes the given ids. Missing ids are ignored.
	RemoveMany(ids []activity.ID) error
	// Flush removes all stored activities.
	Flush() error
}

// ITimelineStorage stores the per-feed ordered timelines. All reads are
// ordered by id, descending unless OrderAsc is requested.
//
// Thread-safety: implementations must be safe for concurrent use.
// Atomicity is per call, or per Batch flush for the write operations
// that accept a batch.
type ITimelineStorage interface {
	// AddMany inserts the entries into the timeline at key. An entry
	// matching an existing row in both id and payload overwrites it;
	// entries sharing an id but carrying a different payload coexist,
	// because aggregate ids only have second resolution. If batch is
	// non-nil the write may be buffered until the batch is flushed.
	AddMany(key string, entries []Entry, batch Batch) error
	// RemoveMany removes the given entries from the timeline at key.
	// Backends match by id or by the full stored payload, whichever
	// their data model indexes; callers must pass entries with the same
	// payload they were added with. Missing entries are ignored. If
	// batch is non-nil the write may be buffered.
	RemoveMany(key string, entries []Entry, batch Batch) error
	// GetSlice returns entries [start, stop) of the filtered, ordered
	// timeline. stop < 0 means no upper bound.
	GetSlice(key string, start, stop int, filter SliceFilter, order Order) ([]Entry, error)
	// Trim cuts the timeline down to its maxLength newest entries.
	Trim(key string, maxLength int) error
	// Count returns the number of entries in the timeline.
	Count(key string) (int, error)
	// Delete removes the whole timeline.
	Delete(key string) error
	// IndexOf returns the position of id in the descending timeline, or
	// an error wrapping activity.ErrActivityNotFound.
	IndexOf(key string, id activity.ID) (int, error)
	// Contains reports whether the timeline holds the given id.
	Contains(key string, id activity.ID) (bool, error)
	// NewBatch creates a write buffer for this backend.
	NewBatch() Batch
}

// IListsStorage stores small named lists per key, eg. the unseen/unread
// notification markers of a user. Every call is atomic for all lists it
// touches.
//
// Thread-safety: implementations must be safe for concurrent use.
type IListsStorage interface {
	// Add appends the values to the named lists. When maxLength > 0 each
	// list is trimmed to its maxLength newest values afterwards.
	Add(key string, values map[string][]string, maxLength int) error
	// Remove deletes the values from the named lists. Missing values are
	// ignored.
	Remove(key string, values map[string][]string) error
	// Count returns the length of one named list.
	Count(key, list string) (int, error)
	// Get returns the requested lists. Unknown lists come back empty.
	Get(key string, lists ...string) (map[string][]string, error)
	// Flush empties the named lists.
	Flush(key string, lists ...string) error
}
