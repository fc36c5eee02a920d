package lockmgr

import (
	"fmt"
	"time"
)

// ErrLockNotAcquired is returned by WithLock when the lock is held by
// someone else for the whole retry window.
var ErrLockNotAcquired = fmt.Errorf("lock not acquired")

// acquireRetryInterval is the pause between acquisition attempts.
const acquireRetryInterval = 10 * time.Millisecond

// WithLock runs fn while holding the lock for key. Acquisition is
// retried until roughly ttl has passed; the lock is released on every
// exit path, including a panicking fn.
func WithLock(lm ILockManager, key string, ttl time.Duration, fn func() error) error {
	deadline := time.Now().Add(ttl)

	for {
		ok, ownerID, err := lm.AcquireLock(key, ttl)
		if err != nil {
			return err
		}
		if ok {
			defer func() {
				// best effort: an expired lock releases itself
				_, _ = lm.ReleaseLock(key, ownerID)
			}()
			return fn()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("key %q: %w", key, ErrLockNotAcquired)
		}
		time.Sleep(acquireRetryInterval)
	}
}
