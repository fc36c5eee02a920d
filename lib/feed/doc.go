// Package feed implements the read/write surface of the engine: the
// flat Feed, the AggregatedFeed and the NotificationFeed.
//
// Core Functionality:
//
//   - Feed: one user's flat timeline. Writes store the full activity
//     once in the shared activity storage and the tiny dehydrated id in
//     the user's timeline; reads hydrate the ids back into full
//     activities, silently skipping ids whose activity has since been
//     deleted globally.
//
//   - AggregatedFeed: stores aggregated activities instead of single
//     ones. Every write reads the most recent aggregates, merges the
//     fresh activities in (via lib/aggregator) and translates the diff
//     into timeline removals and additions inside one batch.
//
//   - NotificationFeed: an aggregated feed that additionally tracks
//     unseen/unread markers in a lists storage and serializes its
//     read-merge-write cycle with a per-user lock. Its aggregates are
//     stored fully serialized so notifications render without a
//     hydration round trip.
//
// Trimming:
//
//	Timelines are kept bounded by MaxLength. Because trimming on every
//	write would double the write load, feeds trim probabilistically: on
//	roughly 1% of writes (see TrimPolicy). The TrimPolicy is an explicit
//	strategy so tests inject a deterministic one.
//
// Querying:
//
//	Filter and OrderBy return shallow feed copies carrying the new query
//	state, so a feed value can be shared while paginating:
//
//	  page, err := f.Filter(storage.SliceFilter{IDLt: lastSeen}).Slice(0, 25)
//
// Thread Safety:
//
//	Feed values are cheap stateless handles over their storages; all
//	methods are safe for concurrent use as long as the storages are.
//	The aggregated read-merge-write cycle however is only atomic when
//	externally serialized, which NotificationFeed does with its lock
//	manager and plain AggregatedFeed intentionally does not (last write
//	wins within one group).
package feed
