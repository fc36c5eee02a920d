// Package cassandra implements the timeline storage contract on
// cassandra using gocql. It is the backend of choice for very large
// fanout deployments where feed rows outgrow what a single redis node
// holds comfortably.
//
// Data Layout:
//
//	One wide row per feed: the feed key is the partition key and the
//	serialization id the clustering column, stored as a varint in
//	descending clustering order. Slice reads are single-partition range
//	queries and come back already sorted.
//
//	CREATE TABLE timelines (
//	    feed_key    text,
//	    activity_id varint,
//	    payload     text,
//	    PRIMARY KEY (feed_key, activity_id)
//	) WITH CLUSTERING ORDER BY (activity_id DESC);
//
// Batching:
//
//	NewBatch returns a handle around an unlogged gocql batch. Writes for
//	one fanout chunk land on the cluster with a single request.
//
// Thread Safety:
//
//	The gocql session is safe for concurrent use; the storage type is a
//	stateless wrapper around it. A Batch must not be shared between
//	goroutines.
package cassandra
