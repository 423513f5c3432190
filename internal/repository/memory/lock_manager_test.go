package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLockManager_AcquireRelease(t *testing.T) {
	lm := NewLockManager(time.Hour)
	defer lm.Stop()
	ctx := context.Background()

	ok, err := lm.AcquireLock(ctx, "driver:d1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("Expected first acquire to succeed, got %v %v", ok, err)
	}
	ok, _ = lm.AcquireLock(ctx, "driver:d1", time.Minute)
	if ok {
		t.Fatal("Expected second acquire to fail while held")
	}
	if locked, _ := lm.IsLocked(ctx, "driver:d1"); !locked {
		t.Error("Expected key to be locked")
	}

	if err := lm.ReleaseLock(ctx, "driver:d1"); err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}
	ok, _ = lm.AcquireLock(ctx, "driver:d1", time.Minute)
	if !ok {
		t.Error("Expected acquire after release to succeed")
	}
}

func TestLockManager_Expiry(t *testing.T) {
	lm := NewLockManager(time.Hour)
	defer lm.Stop()
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	lm.now = func() time.Time { return now }

	lm.AcquireLock(ctx, "k", 10*time.Second)
	now = now.Add(11 * time.Second)

	if locked, _ := lm.IsLocked(ctx, "k"); locked {
		t.Error("Expected lock to have expired")
	}
	if ok, _ := lm.AcquireLock(ctx, "k", 10*time.Second); !ok {
		t.Error("Expected expired lock to be acquirable")
	}
}

func TestLockManager_SingleWinner(t *testing.T) {
	lm := NewLockManager(time.Hour)
	defer lm.Stop()
	ctx := context.Background()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := lm.AcquireLock(ctx, "driver:d1", time.Minute); ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("Expected exactly one winner, got %d", wins)
	}
}

func TestLockManager_StopTwice(t *testing.T) {
	lm := NewLockManager(time.Millisecond)
	lm.Stop()
	lm.Stop()
}
