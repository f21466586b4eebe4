package guard_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/wurlus/suibets/internal/guard"
)

// TestKeySet_OneWinner verifies that under concurrent access exactly one
// goroutine acquires each key. Run with -race.
func TestKeySet_OneWinner(t *testing.T) {
	const workers = 50
	ks := guard.NewKeySet[string]()

	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ks.TryAcquire("event-1") {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly 1 winner, got %d", wins)
	}
	if !ks.Held("event-1") {
		t.Error("key should still be held")
	}
}

func TestKeySet_ReleaseAllowsReacquire(t *testing.T) {
	ks := guard.NewKeySet[string]()
	if !ks.TryAcquire("k") {
		t.Fatal("first acquire should succeed")
	}
	if ks.TryAcquire("k") {
		t.Fatal("second acquire should fail while held")
	}
	ks.Release("k")
	if !ks.TryAcquire("k") {
		t.Error("acquire after release should succeed")
	}
}

func TestKeySet_IndependentKeys(t *testing.T) {
	ks := guard.NewKeySet[string]()
	if !ks.TryAcquire("a") || !ks.TryAcquire("b") {
		t.Error("distinct keys should not contend")
	}
	// Releasing an unheld key is a no-op.
	ks.Release("missing")
}
