// Package serializer provides the codecs that turn activities and
// aggregated activities into compact strings for storage. It defines a
// common interface per payload kind and multiple implementations with
// different trade-offs.
//
// The package focuses on:
//   - Providing a consistent interface for different wire formats
//   - Keeping stored payloads as small as possible
//   - Guaranteeing loads(dumps(x)) == x for every codec
//
// Key Components:
//
//   - IActivitySerializer / IAggregatedSerializer: core interfaces all
//     codec implementations must satisfy.
//
//   - csvSerializerImpl: compact comma separated format for single
//     activities. Stores ids, the time as epoch seconds and the extra
//     context as JSON. Recommended for production use.
//
//   - jsonSerializerImpl: JSON encoding of single activities, useful for
//     debugging and interoperability, at a larger payload size.
//
//   - timelineSerializerImpl: stores only the serialization id. Used by
//     dehydrated timelines where the full payload lives in the global
//     activity storage.
//
//   - aggregatedSerializerImpl: the "v3" format for aggregated
//     activities: the group key, four timestamps, the inner activities
//     and the minimized count, joined with ";;". Depending on
//     construction it stores the inner activities dehydrated (ids only,
//     for aggregated feeds) or fully serialized (for notification feeds,
//     which must render without a hydration round trip).
//
// Reserved Characters:
//
//	The csv and v3 formats use "," and ";"/";;" as structural separators.
//	Payload fields that contain a separator are rejected with a
//	SerializationError instead of producing a corrupt row.
//
// Thread Safety:
//
//	All codec implementations are stateless (apart from an injected,
//	thread-safe verb registry) and safe for concurrent use.
//
// Usage:
//
//	Codecs are typically created once and reused:
//
//	  codec := serializer.NewCSVSerializer(activity.DefaultRegistry())
//	  s, err := codec.Dumps(act)
//	  // ... store s ...
//	  act, err = codec.Loads(s)
package serializer
