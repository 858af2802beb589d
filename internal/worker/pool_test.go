package worker_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/weekly-dispatch/internal/worker"
)

func TestPool_HandlesEveryItemOnce(t *testing.T) {
	p := worker.NewPool[int](4, zap.NewNop())

	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	var mu sync.Mutex
	seen := make(map[int]int)
	p.Run(context.Background(), items, func(_ context.Context, _ int, item int) {
		mu.Lock()
		seen[item]++
		mu.Unlock()
	})

	if len(seen) != len(items) {
		t.Fatalf("expected %d distinct items, got %d", len(items), len(seen))
	}
	for item, n := range seen {
		if n != 1 {
			t.Fatalf("item %d handled %d times", item, n)
		}
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const size = 3
	p := worker.NewPool[int](size, zap.NewNop())

	var inFlight, peak atomic.Int32
	items := make([]int, 20)
	p.Run(context.Background(), items, func(_ context.Context, _ int, _ int) {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
	})

	if got := peak.Load(); got > size {
		t.Fatalf("expected at most %d concurrent handlers, saw %d", size, got)
	}
}

func TestPool_WorkerIDsInRange(t *testing.T) {
	p := worker.NewPool[int](2, zap.NewNop())
	var bad atomic.Int32
	p.Run(context.Background(), make([]int, 10), func(_ context.Context, id int, _ int) {
		if id < 0 || id >= p.Size() {
			bad.Add(1)
		}
	})
	if bad.Load() != 0 {
		t.Fatal("worker id out of range")
	}
}

func TestPool_PanicDoesNotStopOtherItems(t *testing.T) {
	p := worker.NewPool[int](1, zap.NewNop())
	var handled atomic.Int32
	p.Run(context.Background(), []int{1, 2, 3}, func(_ context.Context, _ int, item int) {
		if item == 2 {
			panic("boom")
		}
		handled.Add(1)
	})
	if handled.Load() != 2 {
		t.Fatalf("expected 2 items handled around the panic, got %d", handled.Load())
	}
}

func TestPool_ZeroSizeFallsBackToOne(t *testing.T) {
	if got := worker.NewPool[string](0, zap.NewNop()).Size(); got != 1 {
		t.Fatalf("expected size 1, got %d", got)
	}
}
