package lockmgr

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// TestAcquireRelease tests the basic lock lifecycle.
func TestAcquireRelease(t *testing.T) {
	lm := NewLockManager(NewMemoryLockStore())

	ok, ownerID, err := lm.AcquireLock("user:1", time.Second)
	if err != nil {
		t.Fatalf("AcquireLock() failed: %v", err)
	}
	if !ok || ownerID == "" {
		t.Fatalf("Expected to acquire the lock, ok=%v owner=%q", ok, ownerID)
	}

	// a second acquisition must fail while the lock is held
	ok2, _, err := lm.AcquireLock("user:1", time.Second)
	if err != nil {
		t.Fatalf("AcquireLock() failed: %v", err)
	}
	if ok2 {
		t.Error("Expected the second acquisition to fail")
	}

	released, err := lm.ReleaseLock("user:1", ownerID)
	if err != nil {
		t.Fatalf("ReleaseLock() failed: %v", err)
	}
	if !released {
		t.Error("Expected the release to succeed")
	}

	// after release the lock is free again
	ok3, _, err := lm.AcquireLock("user:1", time.Second)
	if err != nil {
		t.Fatalf("AcquireLock() failed: %v", err)
	}
	if !ok3 {
		t.Error("Expected to re-acquire after release")
	}
}

// TestReleaseWrongOwner tests that only the owner can release.
func TestReleaseWrongOwner(t *testing.T) {
	lm := NewLockManager(NewMemoryLockStore())

	ok, _, err := lm.AcquireLock("user:1", time.Second)
	if err != nil || !ok {
		t.Fatalf("AcquireLock() failed: ok=%v err=%v", ok, err)
	}

	released, err := lm.ReleaseLock("user:1", "not-the-owner")
	if err != nil {
		t.Fatalf("ReleaseLock() failed: %v", err)
	}
	if released {
		t.Error("A non-owner must not be able to release the lock")
	}
}

// TestReleaseMissing tests that releasing a missing lock is ok.
func TestReleaseMissing(t *testing.T) {
	lm := NewLockManager(NewMemoryLockStore())

	released, err := lm.ReleaseLock("user:1", "whoever")
	if err != nil {
		t.Fatalf("ReleaseLock() failed: %v", err)
	}
	if !released {
		t.Error("Releasing a non-existing lock should report success")
	}
}

// TestReleaseStaleOwner tests that a holder whose lock expired and was
// taken over cannot release the new holder's lock.
func TestReleaseStaleOwner(t *testing.T) {
	lm := NewLockManager(NewMemoryLockStore())

	ok, staleOwner, err := lm.AcquireLock("user:1", 10*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("AcquireLock() failed: ok=%v err=%v", ok, err)
	}

	// let the lock expire and hand it to a new owner
	time.Sleep(20 * time.Millisecond)
	ok2, _, err := lm.AcquireLock("user:1", time.Minute)
	if err != nil || !ok2 {
		t.Fatalf("AcquireLock() failed: ok=%v err=%v", ok2, err)
	}

	released, err := lm.ReleaseLock("user:1", staleOwner)
	if err != nil {
		t.Fatalf("ReleaseLock() failed: %v", err)
	}
	if released {
		t.Error("A stale owner must not release the current lock")
	}

	// the new owner's lock must still be in place
	ok3, _, err := lm.AcquireLock("user:1", time.Second)
	if err != nil {
		t.Fatalf("AcquireLock() failed: %v", err)
	}
	if ok3 {
		t.Error("Expected the lock to still be held by the new owner")
	}
}

// TestLockExpiry tests that an expired lock can be taken over.
func TestLockExpiry(t *testing.T) {
	lm := NewLockManager(NewMemoryLockStore())

	ok, _, err := lm.AcquireLock("user:1", 10*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("AcquireLock() failed: ok=%v err=%v", ok, err)
	}

	time.Sleep(20 * time.Millisecond)

	ok2, _, err := lm.AcquireLock("user:1", time.Second)
	if err != nil {
		t.Fatalf("AcquireLock() failed: %v", err)
	}
	if !ok2 {
		t.Error("Expected to take over an expired lock")
	}
}

// TestWithLock tests the helper's mutual exclusion and guaranteed
// release.
func TestWithLock(t *testing.T) {
	lm := NewLockManager(NewMemoryLockStore())

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := WithLock(lm, "user:1", time.Second, func() error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Errorf("WithLock() failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("Expected mutual exclusion, saw %d goroutines inside", maxSeen)
	}
}

// TestWithLockTimeout tests that WithLock gives up when the lock stays
// held.
func TestWithLockTimeout(t *testing.T) {
	lm := NewLockManager(NewMemoryLockStore())

	ok, _, err := lm.AcquireLock("user:1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("AcquireLock() failed: ok=%v err=%v", ok, err)
	}

	err = WithLock(lm, "user:1", 30*time.Millisecond, func() error {
		t.Error("fn must not run when the lock cannot be acquired")
		return nil
	})
	if !errors.Is(err, ErrLockNotAcquired) {
		t.Errorf("Expected ErrLockNotAcquired, got %v", err)
	}
}
