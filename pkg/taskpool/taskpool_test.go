package taskpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

func transientOnly(err error) bool { return errors.Is(err, errTransient) }

func TestSubmitAndDrain(t *testing.T) {
	pool := New(context.Background(), Options{Workers: 2})

	var ran atomic.Int32
	var handles []*Handle
	for i := 0; i < 10; i++ {
		h, err := pool.Submit(Task{
			Description: "work",
			Run: func(ctx context.Context) error {
				ran.Add(1)
				return nil
			},
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		handles = append(handles, h)
	}
	pool.Drain()

	if got := ran.Load(); got != 10 {
		t.Errorf("ran = %d, want 10", got)
	}
	for _, h := range handles {
		if h.Status() != StatusSucceeded {
			t.Errorf("status = %v, want succeeded", h.Status())
		}
		if h.Attempts() != 1 {
			t.Errorf("attempts = %d, want 1", h.Attempts())
		}
	}

	completed, total := pool.Counts()
	if completed != 10 || total != 10 {
		t.Errorf("Counts = (%d, %d), want (10, 10)", completed, total)
	}
}

func TestSubmitAfterDrain(t *testing.T) {
	pool := New(context.Background(), Options{Workers: 1})
	pool.Drain()
	if _, err := pool.Submit(Task{Run: func(context.Context) error { return nil }}); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestConcurrencyBound(t *testing.T) {
	const workers = 4

	var cur, max atomic.Int32
	pool := New(context.Background(), Options{Workers: workers})

	for i := 0; i < 20; i++ {
		pool.Submit(Task{
			Run: func(ctx context.Context) error {
				n := cur.Add(1)
				for {
					m := max.Load()
					if n <= m || max.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				cur.Add(-1)
				return nil
			},
		})
	}
	pool.Drain()

	if got := max.Load(); got > workers {
		t.Errorf("observed %d simultaneous tasks, bound is %d", got, workers)
	}
}

func TestRetryThenSucceed(t *testing.T) {
	const maxRetries = 3

	var calls atomic.Int32
	pool := New(context.Background(), Options{
		Workers:     1,
		MaxRetries:  maxRetries,
		Backoff:     time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
		IsTransient: transientOnly,
	})

	h, _ := pool.Submit(Task{
		Run: func(ctx context.Context) error {
			if calls.Add(1) < maxRetries {
				return errTransient
			}
			return nil
		},
	})
	pool.Drain()

	if h.Status() != StatusSucceeded {
		t.Errorf("status = %v, want succeeded", h.Status())
	}
	if h.Attempts() != maxRetries {
		t.Errorf("attempts = %d, want %d", h.Attempts(), maxRetries)
	}
	if h.Err() != nil {
		t.Errorf("Err = %v, want nil", h.Err())
	}
}

func TestRetryExhausted(t *testing.T) {
	const maxRetries = 3

	var calls atomic.Int32
	pool := New(context.Background(), Options{
		Workers:     1,
		MaxRetries:  maxRetries,
		Backoff:     time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
		IsTransient: transientOnly,
	})

	h, _ := pool.Submit(Task{
		Run: func(ctx context.Context) error {
			calls.Add(1)
			return errTransient
		},
	})
	pool.Drain()

	if h.Status() != StatusFailed {
		t.Errorf("status = %v, want failed", h.Status())
	}
	if got := calls.Load(); got != maxRetries {
		t.Errorf("calls = %d, want %d (no retries past the cap)", got, maxRetries)
	}
	if h.Attempts() != maxRetries {
		t.Errorf("attempts = %d, want %d", h.Attempts(), maxRetries)
	}
	if !errors.Is(h.Err(), errTransient) {
		t.Errorf("Err = %v, want transient error", h.Err())
	}
}

func TestPermanentFailureNotRetried(t *testing.T) {
	permanent := errors.New("not found")

	var calls atomic.Int32
	pool := New(context.Background(), Options{
		Workers:     1,
		MaxRetries:  5,
		Backoff:     time.Millisecond,
		IsTransient: transientOnly,
	})

	h, _ := pool.Submit(Task{
		Run: func(ctx context.Context) error {
			calls.Add(1)
			return permanent
		},
	})
	pool.Drain()

	if h.Status() != StatusFailed {
		t.Errorf("status = %v, want failed", h.Status())
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestCancelPendingTasks(t *testing.T) {
	// One worker wedged on a slow task; everything queued behind it must
	// end cancelled without ever running.
	release := make(chan struct{})
	pool := New(context.Background(), Options{Workers: 1})

	blocker, _ := pool.Submit(Task{
		Run: func(ctx context.Context) error {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return ctx.Err()
		},
	})

	var ran atomic.Int32
	var pending []*Handle
	for i := 0; i < 5; i++ {
		h, _ := pool.Submit(Task{
			Run: func(ctx context.Context) error {
				ran.Add(1)
				return nil
			},
		})
		pending = append(pending, h)
	}

	pool.CancelAll()
	close(release)
	pool.Drain()

	if got := ran.Load(); got != 0 {
		t.Errorf("%d cancelled tasks ran", got)
	}
	for _, h := range pending {
		if h.Status() != StatusCancelled {
			t.Errorf("status = %v, want cancelled", h.Status())
		}
	}
	if s := blocker.Status(); s != StatusCancelled {
		t.Errorf("blocker status = %v, want cancelled", s)
	}
}

func TestCancelSingleTask(t *testing.T) {
	started := make(chan struct{})
	pool := New(context.Background(), Options{Workers: 1})

	h, _ := pool.Submit(Task{
		Run: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	})

	<-started
	pool.Cancel(h)
	pool.Drain()

	if h.Status() != StatusCancelled {
		t.Errorf("status = %v, want cancelled", h.Status())
	}
}

func TestCancelFinishedTaskIsNoop(t *testing.T) {
	pool := New(context.Background(), Options{Workers: 1})
	h, _ := pool.Submit(Task{Run: func(context.Context) error { return nil }})
	pool.Drain()
	pool.Cancel(h)
	if h.Status() != StatusSucceeded {
		t.Errorf("status = %v, want succeeded", h.Status())
	}
}

func TestProgressSerialAndComplete(t *testing.T) {
	var mu sync.Mutex
	inCallback := false
	var events int
	var lastCompleted, lastTotal int

	pool := New(context.Background(), Options{
		Workers: 4,
		OnProgress: func(completed, total int, desc string) {
			mu.Lock()
			if inCallback {
				t.Error("progress callback reentered concurrently")
			}
			inCallback = true
			mu.Unlock()

			mu.Lock()
			events++
			lastCompleted, lastTotal = completed, total
			inCallback = false
			mu.Unlock()
		},
	})

	for i := 0; i < 8; i++ {
		pool.Submit(Task{Run: func(context.Context) error { return nil }})
	}
	pool.Drain()

	mu.Lock()
	defer mu.Unlock()
	// Submit, running and terminal transitions for every task.
	if events < 8*3 {
		t.Errorf("events = %d, want at least 24", events)
	}
	if lastCompleted != 8 || lastTotal != 8 {
		t.Errorf("final snapshot = (%d, %d), want (8, 8)", lastCompleted, lastTotal)
	}
}

func TestPoolContextCancelsTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := New(ctx, Options{Workers: 2})

	started := make(chan struct{}, 1)
	h, _ := pool.Submit(Task{
		Run: func(taskCtx context.Context) error {
			select {
			case started <- struct{}{}:
			default:
			}
			<-taskCtx.Done()
			return taskCtx.Err()
		},
	})

	<-started
	cancel()
	pool.Drain()

	if h.Status() != StatusCancelled {
		t.Errorf("status = %v, want cancelled", h.Status())
	}
}
