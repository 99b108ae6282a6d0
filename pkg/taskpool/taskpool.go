package taskpool

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrClosed is returned by Submit after Drain has begun.
var ErrClosed = errors.New("taskpool: pool is draining")

// Status is the lifecycle state of a submitted task.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Task is one unit of work. Run must honor ctx: returning promptly once it
// is cancelled is what makes pool cancellation cooperative.
type Task struct {
	Description string
	Run         func(ctx context.Context) error
}

// ProgressFunc receives (completed, total, description) on every status
// transition. Calls are delivered serially from a single dispatcher
// goroutine, never concurrently from workers.
type ProgressFunc func(completed, total int, description string)

// Options configures a pool.
type Options struct {
	// Workers is the bounded concurrency. Default: 4.
	Workers int

	// MaxRetries is the total number of attempts for transiently failing
	// tasks. Default: 3.
	MaxRetries int

	// Backoff is the delay before the second attempt. Default: 500ms.
	Backoff time.Duration

	// BackoffMultiplier grows the delay per attempt. Default: 2.
	BackoffMultiplier float64

	// MaxBackoff caps the delay. Default: 30s.
	MaxBackoff time.Duration

	// IsTransient reports whether a task error is worth retrying.
	// Nil means nothing is retried.
	IsTransient func(error) bool

	// OnProgress, if set, observes every status transition.
	OnProgress ProgressFunc
}

type entry struct {
	id          string
	task        Task
	status      Status
	attempts    int
	lastErr     error
	cancelFlag  bool
	cancelInner context.CancelFunc // set while running
}

// Handle identifies a submitted task and exposes its outcome.
type Handle struct {
	pool *Pool
	e    *entry
}

// ID returns the task's unique identifier.
func (h *Handle) ID() string { return h.e.id }

// Status returns the task's current status.
func (h *Handle) Status() Status {
	h.pool.mu.Lock()
	defer h.pool.mu.Unlock()
	return h.e.status
}

// Attempts returns how many times the task has run.
func (h *Handle) Attempts() int {
	h.pool.mu.Lock()
	defer h.pool.mu.Unlock()
	return h.e.attempts
}

// Err returns the task's last error, nil when it succeeded.
func (h *Handle) Err() error {
	h.pool.mu.Lock()
	defer h.pool.mu.Unlock()
	return h.e.lastErr
}

// Description returns the task description.
func (h *Handle) Description() string { return h.e.task.Description }

// Pool executes submitted tasks on a bounded set of workers with FIFO
// queueing, cooperative cancellation and retry with exponential backoff.
// It has no knowledge of what the tasks do.
type Pool struct {
	opts Options
	ctx  context.Context

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*entry
	running map[string]*entry
	closed  bool

	total     int
	completed int

	events    []progressEvent
	eventMu   sync.Mutex
	eventCond *sync.Cond
	eventDone chan struct{}
	flushOnce sync.Once

	wg sync.WaitGroup
}

type progressEvent struct {
	completed, total int
	description      string
	flush            bool
}

// New starts a pool. ctx bounds the lifetime of every task; cancelling it
// behaves like CancelAll.
func New(ctx context.Context, opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	if opts.BackoffMultiplier <= 1 {
		opts.BackoffMultiplier = 2
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 30 * time.Second
	}

	p := &Pool{
		opts:      opts,
		ctx:       ctx,
		running:   make(map[string]*entry),
		eventDone: make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	p.eventCond = sync.NewCond(&p.eventMu)

	go p.dispatch()
	for i := 0; i < opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit queues a task. Excess tasks wait FIFO behind the worker bound.
func (p *Pool) Submit(t Task) (*Handle, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	e := &entry{id: uuid.NewString(), task: t, status: StatusPending}
	p.queue = append(p.queue, e)
	p.total++
	p.emitLocked(e.task.Description)
	p.mu.Unlock()

	p.cond.Signal()
	return &Handle{pool: p, e: e}, nil
}

// Cancel requests cancellation of one task. Pending tasks will report
// cancelled without ever running; a running task is interrupted at its
// next checkpoint. Finished tasks are unaffected.
func (p *Pool) Cancel(h *Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked(h.e)
}

// CancelAll cancels every unfinished task.
func (p *Pool) CancelAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.queue {
		p.cancelLocked(e)
	}
	// Running entries are no longer in the queue; their cancel funcs were
	// captured at start.
	for _, e := range p.running {
		p.cancelLocked(e)
	}
}

// Drain stops accepting new tasks and blocks until every submitted task is
// terminal and all progress callbacks have been delivered.
func (p *Pool) Drain() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()

	p.wg.Wait()

	// Flush the event queue before returning so callers observe every
	// transition.
	p.flushOnce.Do(func() {
		p.eventMu.Lock()
		p.events = append(p.events, progressEvent{flush: true})
		p.eventCond.Signal()
		p.eventMu.Unlock()
	})
	<-p.eventDone
}

// Counts returns (completed, total) at this instant.
func (p *Pool) Counts() (completed, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed, p.total
}

func (p *Pool) cancelLocked(e *entry) {
	switch e.status {
	case StatusPending, StatusRunning:
		e.cancelFlag = true
		if e.cancelInner != nil {
			e.cancelInner()
		}
	}
}

// next blocks until a task is available or the pool is drained and empty.
func (p *Pool) next() *entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.queue) == 0 {
		return nil
	}
	e := p.queue[0]
	p.queue = p.queue[1:]
	p.running[e.id] = e
	return e
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		e := p.next()
		if e == nil {
			return
		}
		p.run(e)
	}
}

func (p *Pool) run(e *entry) {
	p.mu.Lock()
	if e.cancelFlag || p.ctx.Err() != nil {
		p.finishLocked(e, StatusCancelled, e.lastErr)
		p.mu.Unlock()
		return
	}
	e.status = StatusRunning
	ctx, cancel := context.WithCancel(p.ctx)
	e.cancelInner = cancel
	p.emitLocked(e.task.Description)
	p.mu.Unlock()
	defer cancel()

	var err error
	for attempt := 1; attempt <= p.opts.MaxRetries; attempt++ {
		// Cancellation checkpoint before every attempt.
		if ctx.Err() != nil {
			p.finish(e, StatusCancelled, ctx.Err())
			return
		}

		if attempt > 1 {
			if werr := p.backoff(ctx, attempt); werr != nil {
				p.finish(e, StatusCancelled, werr)
				return
			}
		}

		p.mu.Lock()
		e.attempts = attempt
		p.mu.Unlock()

		err = e.task.Run(ctx)
		if err == nil {
			p.finish(e, StatusSucceeded, nil)
			return
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			p.finish(e, StatusCancelled, err)
			return
		}
		if p.opts.IsTransient == nil || !p.opts.IsTransient(err) {
			break
		}
	}
	p.finish(e, StatusFailed, err)
}

// backoff sleeps for an exponentially increasing duration with jitter,
// aborting early on cancellation.
func (p *Pool) backoff(ctx context.Context, attempt int) error {
	d := p.opts.Backoff
	for i := 2; i < attempt; i++ {
		d = time.Duration(float64(d) * p.opts.BackoffMultiplier)
	}
	if d > p.opts.MaxBackoff {
		d = p.opts.MaxBackoff
	}
	// 0.5x to 1.5x jitter, same spread the download client used.
	d = time.Duration(float64(d) * (0.5 + rand.Float64()))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (p *Pool) finish(e *entry, s Status, err error) {
	p.mu.Lock()
	p.finishLocked(e, s, err)
	p.mu.Unlock()
}

func (p *Pool) finishLocked(e *entry, s Status, err error) {
	e.status = s
	e.lastErr = err
	e.cancelInner = nil
	delete(p.running, e.id)
	p.completed++
	p.emitLocked(e.task.Description)
}

// emitLocked snapshots the counters into the event queue; the dispatcher
// delivers them to OnProgress in order.
func (p *Pool) emitLocked(description string) {
	if p.opts.OnProgress == nil {
		return
	}
	ev := progressEvent{completed: p.completed, total: p.total, description: description}
	p.eventMu.Lock()
	p.events = append(p.events, ev)
	p.eventCond.Signal()
	p.eventMu.Unlock()
}

func (p *Pool) dispatch() {
	for {
		p.eventMu.Lock()
		for len(p.events) == 0 {
			p.eventCond.Wait()
		}
		ev := p.events[0]
		p.events = p.events[1:]
		p.eventMu.Unlock()

		if ev.flush {
			close(p.eventDone)
			return
		}
		p.opts.OnProgress(ev.completed, ev.total, ev.description)
	}
}
