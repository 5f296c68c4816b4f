// Package concurrency bounds how many LLM calls run in parallel.
//
// The pipeline fans phase-detail generation and hivemind drones out over a
// shared Limiter so a large plan cannot saturate the backend. Gather runs a
// batch of functions under the limit and returns their results in input
// order, which callers rely on when re-assembling plan phases.
package concurrency

import (
	"context"
	"sync"
)

// DefaultLimit is the number of concurrent LLM calls allowed when no limit
// is configured.
const DefaultLimit = 5

// Limiter is a context-aware, dynamically-resizable concurrency limiter.
//
// A limit of 0 means unlimited; Acquire always succeeds immediately.
// Use SetLimit to adjust capacity at runtime; blocked goroutines are notified
// via Cond.Broadcast so they can re-evaluate.
type Limiter struct {
	mu       sync.Mutex
	cond     *sync.Cond
	limit    int // 0 = unlimited
	acquired int
}

// NewLimiter creates a limiter with the given initial limit.
// A limit of 0 means unlimited. Negative values are clamped to 0.
func NewLimiter(limit int) *Limiter {
	if limit < 0 {
		limit = 0
	}
	l := &Limiter{limit: limit}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Acquire blocks until a slot is available or the context is cancelled.
// Returns nil on success, or the context error if cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Unlimited mode: always grant immediately.
	if l.limit == 0 {
		l.acquired++
		return nil
	}

	// Spin on the condition variable, checking context between waits.
	// We use a goroutine to broadcast on context cancellation so that
	// blocked waiters wake up and can return the context error.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			l.cond.Broadcast()
		case <-done:
		}
	}()

	for l.acquired >= l.limit && l.limit > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.cond.Wait()
	}

	// Re-check context after waking; the wake may have been from cancellation.
	if err := ctx.Err(); err != nil {
		return err
	}

	l.acquired++
	return nil
}

// Release frees a slot and signals one waiting goroutine.
func (l *Limiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.acquired > 0 {
		l.acquired--
	}
	l.cond.Signal()
}

// SetLimit adjusts the capacity. Negative values are clamped to 0 (unlimited).
// Broadcasts to wake all blocked goroutines so they can re-evaluate against the
// new limit.
func (l *Limiter) SetLimit(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n < 0 {
		n = 0
	}
	l.limit = n
	l.cond.Broadcast()
}

// Limit returns the current limit (0 = unlimited).
func (l *Limiter) Limit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit
}

// Acquired returns the number of currently acquired slots.
func (l *Limiter) Acquired() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquired
}

// Run executes fn under the limit, blocking until a slot is available.
// The slot is released when fn returns.
func (l *Limiter) Run(ctx context.Context, fn func(context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}

// Gather runs all fns under the limit and collects their results in input
// order: result i corresponds to fns[i] regardless of completion order.
//
// If any function fails, the first error (by input position) is returned,
// the shared context is cancelled to stop in-flight work, and the partial
// results slice is still returned for inspection.
func Gather[T any](ctx context.Context, l *Limiter, fns []func(context.Context) (T, error)) ([]T, error) {
	results := make([]T, len(fns))
	errs := make([]error, len(fns))

	gctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i, fn := range fns {
		wg.Add(1)
		go func(i int, fn func(context.Context) (T, error)) {
			defer wg.Done()

			if err := l.Acquire(gctx); err != nil {
				errs[i] = err
				return
			}
			defer l.Release()

			result, err := fn(gctx)
			if err != nil {
				errs[i] = err
				cancel()
				return
			}
			results[i] = result
		}(i, fn)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
