// Package lockmgr implements the per-user lease that serializes
// read-merge-write cycles on notification feeds. It provides a simple
// yet robust way to coordinate access to one user's feed state across
// multiple processes.
//
// The lock manager only ever stores in the provided ILockStore and has
// no other internal state. It is therefore safe to create multiple
// managers on the same store; as long as the same store is used every
// time, all locks work as expected.
//
// Core Functionality:
//   - Lock acquisition with ownership verification
//   - Automatic lock expiration through configurable timeouts
//   - Safe release operations that verify ownership
//
// Implementation Approach:
//
//	Locks lean on the atomic conditional operations of the underlying
//	store:
//
//	- Lock Acquisition: Attempts to create a key using SetIfUnset, which
//	  guarantees that only one requester can successfully create the
//	  key. The value is a randomly generated owner id identifying the
//	  lock holder.
//
//	- Timeouts: Every lock carries a ttl after which the store drops the
//	  key, preventing deadlocks when a holder crashes mid-write.
//
//	- Safe Release: ReleaseLock deletes the key through DeleteIfValue,
//	  which only removes it while it still holds the requester's owner
//	  id. A stale owner can therefore never release a lock that has
//	  since been taken over.
//
// Thread Safety:
//
//	The lock manager is as thread-safe as the underlying ILockStore
//	implementation; both provided stores are safe for concurrent use.
//
// Usage Example:
//
//	locks := lockmgr.NewLockManager(lockmgr.NewMemoryLockStore())
//
//	err := lockmgr.WithLock(locks, "notification:123", 10*time.Second, func() error {
//	    // read, merge and write the feed state safely
//	    return nil
//	})
package lockmgr
