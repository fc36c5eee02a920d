// Package aggregator implements the grouping of activities into
// aggregated activities and the merge of fresh activities into an
// existing aggregated timeline.
//
// Core Functionality:
//   - Aggregate: turns a flat list of activities into ranked aggregates
//     using a pluggable group strategy
//   - Merge: diffs fresh activities against the currently stored
//     aggregates and classifies the result into new, changed and deleted
//     aggregates, which the aggregated feed then translates into
//     timeline writes
//
// The package is pure computation: no storage access, no I/O. That is
// what makes the merge testable in isolation and reusable across all
// timeline backends.
//
// Thread Safety:
//
//	Aggregators are stateless apart from their group strategy and safe
//	for concurrent use. Merge never mutates the stored aggregates it is
//	given; changed aggregates are returned as (old, new) pairs where new
//	is a deep copy.
package aggregator
