package worker

import (
	"context"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// Pool fans a finite batch of items out to a fixed number of goroutines.
// The size bounds how many items are in flight at once, which is what keeps
// a run within the rate limits of downstream services.
type Pool[T any] struct {
	size   int
	logger *zap.Logger
}

// NewPool returns a pool with the given number of workers (minimum 1).
func NewPool[T any](size int, logger *zap.Logger) *Pool[T] {
	if size < 1 {
		size = 1
	}
	return &Pool[T]{size: size, logger: logger}
}

// Size reports the configured number of workers.
func (p *Pool[T]) Size() int { return p.size }

// Run hands every item to exactly one call of handle and blocks until all
// calls have returned. workerID is in [0, Size()) and is stable for the
// goroutine, so callers may keep per-worker state indexed by it.
//
// Items are always drained: cancelling ctx does not drop them, it is up
// to handle to notice ctx.Err() and finish quickly.
func (p *Pool[T]) Run(ctx context.Context, items []T, handle func(ctx context.Context, workerID int, item T)) {
	if len(items) == 0 {
		return
	}

	feed := make(chan T)
	var wg sync.WaitGroup

	workers := min(p.size, len(items))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			log := p.logger.With(zap.Int("worker_id", id))
			for item := range feed {
				p.safeHandle(ctx, log, id, item, handle)
			}
		}(i)
	}

	for _, item := range items {
		feed <- item
	}
	close(feed)
	wg.Wait()
}

func (p *Pool[T]) safeHandle(ctx context.Context, log *zap.Logger, id int, item T, handle func(context.Context, int, T)) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in pool worker", zap.Any("panic", r), zap.String("stack", string(debug.Stack())))
		}
	}()
	handle(ctx, id, item)
}
