// Package redis implements the storage contracts on redis using
// go-redis.
//
// Data Layout:
//   - Activity storage: one global HASH, field = serialization id,
//     value = serialized payload.
//   - Timeline storage: one ZSET per feed key, member = payload, score =
//     the serialization id as float. The score is only used for range
//     queries and trimming; for payloads that are not plain ids the
//     authoritative id lives inside the payload, so the float precision
//     loss in the low digits is acceptable.
//   - Lists storage: one LIST per key and list name, writes grouped in a
//     transactional pipeline so all lists of a call change atomically.
//
// Batching:
//
//	NewBatch returns a handle around a redis pipeline. Timeline writes
//	that receive the batch are buffered and sent with a single round
//	trip on Flush, which is what keeps fanout chunks cheap.
//
// Thread Safety:
//
//	The go-redis client is safe for concurrent use; all storage types
//	here are stateless wrappers around it. A Batch, however, must not be
//	shared between goroutines.
package redis
