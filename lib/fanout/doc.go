// Package fanout turns one authored activity into many follower feed
// writes.
//
// # Core Functionality
//
// The Manager is the write entry point of the engine: an authored
// activity is stored once in the global activity storage, written to
// the author's own feed and then propagated to every follower feed.
// Because a user may have far more followers than fit in one write,
// propagation is split into chunks and each chunk is submitted as an
// independent Job to a JobSubmitter. The submitter abstracts the task
// queue: the bundled SyncSubmitter executes jobs inline, a production
// deployment plugs in its own queue client.
//
// Jobs are idempotent. Re-running a chunk re-writes ids that are
// already present, which the storage layer treats as an overwrite, so
// the external queue may retry failed chunks freely. Partial fanout is
// a transient state, not an error.
//
// # Thread Safety
//
// A Manager is immutable after creation and safe for concurrent use.
// Concurrent writes to the same follower's feed are serialized by the
// feed layer where that matters (notification feeds hold a per-user
// lock).
//
// # Usage
//
//	m, err := fanout.NewManager(fanout.ManagerConfig{
//		UserFeed:  userFeed,
//		Feeds:     map[string]fanout.FeedFactory{"flat": flatFeeds},
//		Followers: resolver,
//		...
//	})
//	err = m.AddUserActivity(authorID, act)
package fanout
