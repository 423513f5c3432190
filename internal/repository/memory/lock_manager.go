package memory

import (
	"context"
	"sync"
	"time"
)

type lockEntry struct {
	expiresAt time.Time
}

// LockManager hands out named locks that expire after a TTL, so a lock held
// by a request that never released it frees itself. Accept uses a
// "driver:<id>" key to serialize a driver's availability check and write.
//
// Locks live in process memory and only coordinate a single instance.
type LockManager struct {
	mu    sync.RWMutex
	locks map[string]*lockEntry
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewLockManager creates a LockManager whose background sweeper drops
// expired entries every sweepEvery. A non-positive interval means one second.
func NewLockManager(sweepEvery time.Duration) *LockManager {
	if sweepEvery <= 0 {
		sweepEvery = time.Second
	}
	lm := &LockManager{
		locks: make(map[string]*lockEntry),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go lm.cleanupExpiredLocks(sweepEvery)
	return lm
}

// AcquireLock returns (true, nil) if key was free or expired, (false, nil)
// if someone else holds it.
func (lm *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	now := lm.now()
	if entry, exists := lm.locks[key]; exists && now.Before(entry.expiresAt) {
		return false, nil
	}

	lm.locks[key] = &lockEntry{expiresAt: now.Add(ttl)}
	return true, nil
}

// ReleaseLock releases a lock before its TTL expires.
func (lm *LockManager) ReleaseLock(ctx context.Context, key string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	delete(lm.locks, key)
	return nil
}

// IsLocked checks whether a lock is currently held and not expired.
func (lm *LockManager) IsLocked(ctx context.Context, key string) (bool, error) {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	entry, exists := lm.locks[key]
	return exists && lm.now().Before(entry.expiresAt), nil
}

func (lm *LockManager) cleanupExpiredLocks(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lm.mu.Lock()
			now := lm.now()
			for key, entry := range lm.locks {
				if now.After(entry.expiresAt) {
					delete(lm.locks, key)
				}
			}
			lm.mu.Unlock()
		case <-lm.stop:
			return
		}
	}
}

// Stop ends the sweeper. It is safe to call more than once.
func (lm *LockManager) Stop() {
	lm.once.Do(func() { close(lm.stop) })
}
