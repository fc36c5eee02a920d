// Package storage defines the persistence contracts of the feed engine
// and their shared helper types. Implementations live in the
// sub-packages memory, redis and cassandra.
//
// The engine splits persistence into three independent concerns:
//
//   - IActivityStorage: a global hash of full activity payloads keyed by
//     serialization id. Shared by all feeds; written once per activity
//     regardless of how many timelines reference it.
//
//   - ITimelineStorage: per-feed ordered collections of small entries
//     (id plus payload string), sorted descending by id. This is where
//     the write fanout lands; entries are intentionally tiny because one
//     activity is copied into thousands of timelines.
//
//   - IListsStorage: small named lists per key, used by notification
//     feeds to track unseen/unread markers.
//
// Batching:
//
//	Timeline writes during fanout touch many keys of the same backend.
//	NewBatch returns a Batch handle that implementations may use to
//	buffer writes (eg. a redis pipeline); Flush submits the buffer and
//	Close always releases it. Backends without native batching return a
//	no-op batch. Passing a nil Batch to a write operation executes it
//	immediately.
//
// Ordering:
//
//	All slice reads are ordered by serialization id, newest first by
//	default. SliceFilter expresses keyset pagination bounds on the id;
//	offset based access (start/stop) is supported but discouraged for
//	deep pages.
//
// Thread Safety:
//
//	All implementations must be safe for concurrent use. Atomicity is
//	only guaranteed per call (or per Batch flush where documented), not
//	across calls.
package storage
