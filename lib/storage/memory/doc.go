// Package memory provides the in-process reference implementation of
// the storage contracts. It is the default backend for tests, local
// development and the bench command.
//
// Core Functionality:
//   - Activity storage as a concurrent hash of serialized payloads
//   - Timeline storage as per-key descending-sorted slices with binary
//     search insertion
//   - Lists storage for notification markers
//
// Thread Safety:
//
//	Top level key lookup uses lock-free concurrent maps; per-key state
//	is guarded by a per-key mutex. All operations are safe for
//	concurrent use. Batching is a no-op: every write is applied
//	immediately.
package memory
