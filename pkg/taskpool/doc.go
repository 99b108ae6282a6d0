// Package taskpool is a bounded-concurrency task executor with FIFO
// queueing, retry with exponential backoff, cooperative cancellation and
// serialized progress reporting. It knows nothing about what its tasks do.
//
// # Usage
//
//	pool := taskpool.New(ctx, taskpool.Options{
//	    Workers:     4,
//	    MaxRetries:  3,
//	    IsTransient: remote.IsTransient,
//	    OnProgress: func(completed, total int, desc string) {
//	        fmt.Printf("%d/%d %s\n", completed, total, desc)
//	    },
//	})
//
//	h, _ := pool.Submit(taskpool.Task{
//	    Description: "fetch 2023-10-02 15:01",
//	    Run:         func(ctx context.Context) error { ... },
//	})
//	pool.Drain()
//	// h.Status(), h.Attempts(), h.Err()
//
// # Cancellation
//
// Cancellation is cooperative, never preemptive. A pending task that is
// cancelled reports StatusCancelled without its Run ever being invoked. A
// running task has its context cancelled and is reaped at the next
// checkpoint: before each retry attempt, or wherever its Run observes the
// context. Cancel and CancelAll return immediately; Drain is the
// quiescence signal.
//
// # Retry
//
// A task failing with an error the IsTransient classifier accepts is
// retried up to MaxRetries total attempts, sleeping an exponentially
// growing, jittered, capped delay between attempts. Errors the classifier
// rejects fail the task immediately.
//
// # Progress
//
// OnProgress fires on every status transition with a snapshot of
// (completed, total). Delivery is serial from a single dispatcher
// goroutine, so the callback needs no locking of its own.
package taskpool
