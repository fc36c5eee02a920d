// Package activity defines the core value objects of the feed engine:
// the Activity, its dehydrated stand-in, and the AggregatedActivity used
// by aggregated and notification feeds. It also provides the VerbRegistry
// that maps small integer verb ids to verb metadata.
//
// The package has no storage or I/O dependencies. Everything in here is
// plain data plus the deterministic identity scheme the rest of the
// engine is built on.
//
// Sortable Identity:
//
//	Every activity has a serialization id: a base-10 integer formed by
//	concatenating the creation time as epoch milliseconds, the zero-padded
//	object id (10 digits) and the zero-padded verb id (3 digits).
//
//	eg:
//	id = 1373266755000 0000000042 008
//	     |             |          └ verb id (3 digits)
//	     |             └ object id (10 digits)
//	     └ epoch millis
//
//	The id is monotonically increasing with time and doubles as the sort
//	score / clustering key in every timeline backend. Feed ordering is
//	derived exclusively from this id, never from an insertion counter.
//	Since the full id exceeds 64 bits it is represented as the decimal
//	string type ID with numeric comparison semantics.
//
// Aggregation:
//
//	An AggregatedActivity groups activities that share a group key. The
//	in-memory list of activities is bounded (default 15); older entries
//	are dropped and only counted via MinimizedActivities. For memory
//	bound storage an aggregate can be dehydrated to a list of inner ids
//	and rehydrated later from the global activity storage.
//
// Thread Safety:
//
//	Activity values are immutable by contract and safe to share.
//	AggregatedActivity is a mutable builder-style value and must not be
//	shared between goroutines without external synchronization; use
//	Clone before mutating a shared instance.
package activity
