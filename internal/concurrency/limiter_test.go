package concurrency

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Iron-Ham/ralph/internal/errors"
)

func TestLimiter_BasicAcquireRelease(t *testing.T) {
	lim := NewLimiter(2)
	ctx := context.Background()

	if err := lim.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if lim.Acquired() != 1 {
		t.Errorf("Acquired() = %d, want 1", lim.Acquired())
	}

	if err := lim.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if lim.Acquired() != 2 {
		t.Errorf("Acquired() = %d, want 2", lim.Acquired())
	}

	lim.Release()
	if lim.Acquired() != 1 {
		t.Errorf("after release: Acquired() = %d, want 1", lim.Acquired())
	}

	lim.Release()
	if lim.Acquired() != 0 {
		t.Errorf("after second release: Acquired() = %d, want 0", lim.Acquired())
	}
}

func TestLimiter_UnlimitedMode(t *testing.T) {
	lim := NewLimiter(0) // unlimited
	ctx := context.Background()

	// Should be able to acquire many without blocking.
	for i := range 100 {
		if err := lim.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}
	if lim.Acquired() != 100 {
		t.Errorf("Acquired() = %d, want 100", lim.Acquired())
	}
	if lim.Limit() != 0 {
		t.Errorf("Limit() = %d, want 0", lim.Limit())
	}
}

func TestLimiter_BlocksAtLimit(t *testing.T) {
	lim := NewLimiter(1)
	ctx := context.Background()

	if err := lim.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	// Second acquire should block. Use a channel to detect blocking.
	acquired := make(chan struct{})
	go func() {
		_ = lim.Acquire(ctx)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire should have blocked")
	case <-time.After(50 * time.Millisecond):
		// Expected: still blocked.
	}

	// Release to unblock.
	lim.Release()
	select {
	case <-acquired:
		// Unblocked as expected.
	case <-time.After(time.Second):
		t.Fatal("second Acquire did not unblock after Release")
	}
}

func TestLimiter_ContextCancellation(t *testing.T) {
	lim := NewLimiter(1)
	ctx := context.Background()

	if err := lim.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	// Second acquire with a cancellable context.
	ctx2, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- lim.Acquire(ctx2)
	}()

	// Give the goroutine time to block.
	time.Sleep(20 * time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("Acquire error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled Acquire did not return")
	}

	// Acquired count should still be 1 (the failed acquire should not increment).
	if lim.Acquired() != 1 {
		t.Errorf("Acquired() = %d, want 1", lim.Acquired())
	}
}

func TestLimiter_ResizeUp(t *testing.T) {
	lim := NewLimiter(1)
	ctx := context.Background()

	if err := lim.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	// Second acquire should block.
	acquired := make(chan struct{})
	go func() {
		_ = lim.Acquire(ctx)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("should have blocked at limit 1")
	case <-time.After(50 * time.Millisecond):
	}

	// Resize up to 2, which should unblock it.
	lim.SetLimit(2)

	select {
	case <-acquired:
		// Good.
	case <-time.After(time.Second):
		t.Fatal("did not unblock after SetLimit(2)")
	}

	if lim.Acquired() != 2 {
		t.Errorf("Acquired() = %d, want 2", lim.Acquired())
	}
}

func TestLimiter_ResizeDown(t *testing.T) {
	lim := NewLimiter(3)
	ctx := context.Background()

	// Acquire 2 slots.
	if err := lim.Acquire(ctx); err != nil {
		t.Fatalf("Acquire 1: %v", err)
	}
	if err := lim.Acquire(ctx); err != nil {
		t.Fatalf("Acquire 2: %v", err)
	}

	// Resize down to 1: existing acquires stay, new ones block.
	lim.SetLimit(1)

	acquired := make(chan struct{})
	go func() {
		_ = lim.Acquire(ctx)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("should have blocked at new limit 1 with 2 acquired")
	case <-time.After(50 * time.Millisecond):
	}

	// Release one: still at 1/1, should still block.
	lim.Release()

	select {
	case <-acquired:
		t.Fatal("should still block at 1/1")
	case <-time.After(50 * time.Millisecond):
	}

	// Release another: 0/1, should unblock.
	lim.Release()

	select {
	case <-acquired:
		// Good.
	case <-time.After(time.Second):
		t.Fatal("did not unblock after releases")
	}
}

func TestLimiter_ReleaseNeverNegative(t *testing.T) {
	lim := NewLimiter(1)

	// Release without acquire should not go negative.
	lim.Release()
	if lim.Acquired() != 0 {
		t.Errorf("Acquired() = %d, want 0 (not negative)", lim.Acquired())
	}
}

func TestLimiter_NegativeLimitClampedToUnlimited(t *testing.T) {
	lim := NewLimiter(-5)
	if lim.Limit() != 0 {
		t.Errorf("NewLimiter(-5).Limit() = %d, want 0", lim.Limit())
	}

	lim2 := NewLimiter(2)
	lim2.SetLimit(-3)
	if lim2.Limit() != 0 {
		t.Errorf("SetLimit(-3).Limit() = %d, want 0", lim2.Limit())
	}
}

func TestLimiter_ConcurrentStress(t *testing.T) {
	lim := NewLimiter(5)
	ctx := context.Background()

	var completed atomic.Int32
	var wg sync.WaitGroup
	const goroutines = 50

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := lim.Acquire(ctx); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			completed.Add(1)
			// Simulate some work.
			time.Sleep(time.Millisecond)
			lim.Release()
		}()
	}

	wg.Wait()
	if completed.Load() != goroutines {
		t.Errorf("completed = %d, want %d", completed.Load(), goroutines)
	}
	if lim.Acquired() != 0 {
		t.Errorf("Acquired() = %d after all releases, want 0", lim.Acquired())
	}
}

func TestLimiter_Run(t *testing.T) {
	lim := NewLimiter(1)
	ctx := context.Background()

	ran := false
	err := lim.Run(ctx, func(context.Context) error {
		ran = true
		if lim.Acquired() != 1 {
			t.Errorf("Acquired() inside Run = %d, want 1", lim.Acquired())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ran {
		t.Error("Run did not execute the function")
	}
	if lim.Acquired() != 0 {
		t.Errorf("Acquired() after Run = %d, want 0", lim.Acquired())
	}
}

func TestLimiter_RunPropagatesError(t *testing.T) {
	lim := NewLimiter(1)
	wantErr := errors.New("call failed")

	err := lim.Run(context.Background(), func(context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Run error = %v, want %v", err, wantErr)
	}
	if lim.Acquired() != 0 {
		t.Errorf("Acquired() = %d after failed Run, want 0", lim.Acquired())
	}
}

func TestGather_PreservesInputOrder(t *testing.T) {
	lim := NewLimiter(3)
	ctx := context.Background()

	// Later inputs finish first; results must still come back in input order.
	fns := make([]func(context.Context) (int, error), 10)
	for i := range fns {
		i := i
		fns[i] = func(context.Context) (int, error) {
			time.Sleep(time.Duration(10-i) * time.Millisecond)
			return i * 10, nil
		}
	}

	results, err := Gather(ctx, lim, fns)
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(results) != 10 {
		t.Fatalf("len(results) = %d, want 10", len(results))
	}
	for i, got := range results {
		if got != i*10 {
			t.Errorf("results[%d] = %d, want %d", i, got, i*10)
		}
	}
}

func TestGather_RespectsLimit(t *testing.T) {
	lim := NewLimiter(2)
	ctx := context.Background()

	var current, peak atomic.Int32
	fns := make([]func(context.Context) (struct{}, error), 8)
	for i := range fns {
		fns[i] = func(context.Context) (struct{}, error) {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
			return struct{}{}, nil
		}
	}

	if _, err := Gather(ctx, lim, fns); err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}
}

func TestGather_FirstErrorWins(t *testing.T) {
	lim := NewLimiter(4)
	ctx := context.Background()

	boom := errors.New("drone 2 failed")
	fns := []func(context.Context) (string, error){
		func(context.Context) (string, error) { return "a", nil },
		func(context.Context) (string, error) { return "", boom },
		func(context.Context) (string, error) { return "c", nil },
	}

	results, err := Gather(ctx, lim, fns)
	if !errors.Is(err, boom) {
		t.Errorf("Gather error = %v, want %v", err, boom)
	}
	// Partial results are still positionally correct.
	if results[0] != "a" && results[2] != "c" {
		t.Error("expected at least one successful result to be recorded")
	}
}

func TestGather_CancelsRemainingOnError(t *testing.T) {
	// Two slots so both calls run concurrently regardless of dispatch
	// order: one errors, the other blocks until the batch context is
	// cancelled for it.
	lim := NewLimiter(2)
	ctx := context.Background()

	boom := errors.New("first call failed")
	var sawCancel atomic.Bool
	fns := []func(context.Context) (int, error){
		func(context.Context) (int, error) {
			return 0, boom
		},
		func(gctx context.Context) (int, error) {
			select {
			case <-gctx.Done():
				sawCancel.Store(true)
				return 0, gctx.Err()
			case <-time.After(5 * time.Second):
				return 0, errors.New("batch context was never cancelled")
			}
		},
	}

	_, err := Gather(ctx, lim, fns)
	if !errors.Is(err, boom) {
		t.Fatalf("Gather error = %v, want %v", err, boom)
	}
	if !sawCancel.Load() {
		t.Error("blocked call did not observe cancellation after the error")
	}
}

func TestGather_Empty(t *testing.T) {
	lim := NewLimiter(2)

	results, err := Gather(context.Background(), lim, []func(context.Context) (int, error){})
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("len(results) = %d, want 0", len(results))
	}
}

func TestGather_ManyInputsFewSlots(t *testing.T) {
	lim := NewLimiter(2)
	ctx := context.Background()

	fns := make([]func(context.Context) (string, error), 25)
	for i := range fns {
		i := i
		fns[i] = func(context.Context) (string, error) {
			return fmt.Sprintf("phase-%d", i), nil
		}
	}

	results, err := Gather(ctx, lim, fns)
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for i, got := range results {
		want := fmt.Sprintf("phase-%d", i)
		if got != want {
			t.Errorf("results[%d] = %q, want %q", i, got, want)
		}
	}
}
