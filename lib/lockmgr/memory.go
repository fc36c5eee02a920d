package lockmgr

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// NewMemoryLockStore creates an in-process lock store. Expiry is
// checked lazily on access; there is no background sweeper because lock
// keys are few and short-lived.
func NewMemoryLockStore() ILockStore {
	return &memoryLockStoreImpl{
		locks: xsync.NewMapOf[string, memoryLock](),
	}
}

type memoryLock struct {
	value string
	// expires is zero for locks without ttl
	expires time.Time
}

func (l memoryLock) expired() bool {
	return !l.expires.IsZero() && time.Now().After(l.expires)
}

// memoryLockStoreImpl implements the ILockStore interface
type memoryLockStoreImpl struct {
	locks *xsync.MapOf[string, memoryLock]
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lockmgr.ILockStore)
// --------------------------------------------------------------------------

func (s *memoryLockStoreImpl) SetIfUnset(key, value string, ttl time.Duration) (bool, error) {
	stored := false
	s.locks.Compute(key, func(old memoryLock, loaded bool) (memoryLock, bool) {
		if loaded && !old.expired() {
			return old, false
		}
		stored = true
		lock := memoryLock{value: value}
		if ttl > 0 {
			lock.expires = time.Now().Add(ttl)
		}
		return lock, false
	})
	return stored, nil
}

func (s *memoryLockStoreImpl) Get(key string) (string, bool, error) {
	lock, ok := s.locks.Load(key)
	if !ok || lock.expired() {
		return "", false, nil
	}
	return lock.value, true, nil
}

func (s *memoryLockStoreImpl) DeleteIfValue(key, value string) (bool, error) {
	deleted := false
	s.locks.Compute(key, func(old memoryLock, loaded bool) (memoryLock, bool) {
		if loaded && !old.expired() && old.value == value {
			deleted = true
			return old, true
		}
		// keep a mismatching lock; when nothing is loaded the delete
		// flag prevents storing the zero value
		return old, !loaded
	})
	return deleted, nil
}
