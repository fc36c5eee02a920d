package lockmgr

import (
	"time"

	"github.com/google/uuid"
)

type lockMgrImpl struct {
	store ILockStore
}

// NewLockManager creates a lock manager on the given store.
func NewLockManager(store ILockStore) ILockManager {
	return &lockMgrImpl{
		store: store,
	}
}

func (lm *lockMgrImpl) AcquireLock(key string, ttl time.Duration) (bool, string, error) {
	ownerID := uuid.NewString()

	// atomic CAS: only one requester can create the key
	stored, err := lm.store.SetIfUnset(key, ownerID, ttl)
	if err != nil {
		return false, "", err
	}
	if !stored {
		return false, "", nil
	}

	// verify the lock is held BY US and did not expire instantly
	value, found, err := lm.store.Get(key)
	if err != nil {
		return false, "", err
	}
	if found && value == ownerID {
		return true, ownerID, nil
	}
	return false, "", nil
}

func (lm *lockMgrImpl) ReleaseLock(key string, ownerID string) (bool, error) {
	// the conditional delete guarantees only the owner's key is removed,
	// even when the lock expires and is re-acquired concurrently
	deleted, err := lm.store.DeleteIfValue(key, ownerID)
	if err != nil {
		return false, err
	}
	if deleted {
		return true, nil
	}

	// nothing was deleted: a missing lock counts as released, a lock
	// held by someone else does not
	_, found, err := lm.store.Get(key)
	if err != nil {
		return false, err
	}
	return !found, nil
}
