package lockmgr

import "time"

// ILockManager defines the interface for a lock provider.
type ILockManager interface {
	// AcquireLock acquires a lock for the given key with a ttl.
	// Returns a boolean indicating whether the lock was acquired, the
	// owner id identifying this acquisition, and an error if any.
	AcquireLock(key string, ttl time.Duration) (ok bool, ownerID string, err error)

	// ReleaseLock releases the lock for the given key.
	// Returns a boolean indicating whether the lock was released, and an
	// error if any. The method also returns true if the lock did not
	// exist (eg. because it already expired).
	ReleaseLock(key string, ownerID string) (ok bool, err error)
}

// ILockStore is the minimal key-value surface a lock manager needs.
// Implementations must make SetIfUnset and DeleteIfValue atomic.
type ILockStore interface {
	// SetIfUnset stores value under key only if the key does not exist
	// yet. Returns whether the value was stored. A ttl of 0 means no
	// expiration.
	SetIfUnset(key, value string, ttl time.Duration) (bool, error)
	// Get returns the value and whether the key exists.
	Get(key string) (string, bool, error)
	// DeleteIfValue removes the key only if it currently holds value.
	// Returns whether the key was removed.
	DeleteIfValue(key, value string) (bool, error)
}
