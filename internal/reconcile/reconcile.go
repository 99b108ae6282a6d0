package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jtn0123/goesfill/internal/analyze"
	"github.com/jtn0123/goesfill/internal/inventory"
	"github.com/jtn0123/goesfill/internal/remote"
	"github.com/jtn0123/goesfill/internal/schedule"
	"github.com/jtn0123/goesfill/pkg/taskpool"
)

// Common errors.
var (
	ErrAlreadyRunning = errors.New("reconcile: a run is already active for this root")
)

// State is the run's position in the pipeline.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateAnalyzing
	StateResolving
	StateDownloading
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateAnalyzing:
		return "analyzing"
	case StateResolving:
		return "resolving"
	case StateDownloading:
		return "downloading"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Progress is one update on the run's event stream. Plain data only; no
// presentation types cross this boundary.
type Progress struct {
	Phase     State
	Completed int
	Total     int
	Message   string
}

// OutcomeStatus classifies what happened to one missing timestamp.
type OutcomeStatus string

const (
	OutcomeDownloaded OutcomeStatus = "downloaded"
	OutcomeSkipped    OutcomeStatus = "skipped"
	OutcomeFailed     OutcomeStatus = "failed"
	OutcomeCancelled  OutcomeStatus = "cancelled"
)

// Outcome records the resolution of one missing timestamp.
type Outcome struct {
	Timestamp time.Time
	Locator   remote.Locator
	DestPath  string
	Bytes     int64
	Status    OutcomeStatus
	Error     string
}

// Report is the final accounting of a run. It is written only by the run's
// own pipeline goroutine; workers communicate outcomes over a channel and
// never touch it.
type Report struct {
	StartTime            time.Time
	EndTime              time.Time
	IntervalMinutes      int
	TotalExpected        int
	TotalFound           int
	TotalMissingResolved int
	TotalDownloaded      int
	TotalSkipped         int
	TotalFailed          int
	TotalCancelled       int
	Outcomes             []Outcome
}

// Params configures one reconcile run. Everything is explicit; the manager
// reads no hidden global state.
type Params struct {
	RootDir     string
	SatelliteID string
	ProductType string
	Sector      string
	Band        int

	// DateStart/DateEnd bound which local records participate. Zero values
	// leave the corresponding side unbounded.
	DateStart time.Time
	DateEnd   time.Time

	// IntervalOverride pins the grid spacing in minutes; 0 detects it.
	IntervalOverride int

	// Concurrency bounds parallel downloads. 0 uses the manager default.
	Concurrency int

	// ExactKeys resolves concrete object keys instead of wildcard prefixes.
	ExactKeys bool
}

// Options configures a Manager.
type Options struct {
	// Concurrency is the default download parallelism. Default: 4.
	Concurrency int

	// MaxRetries is the per-download attempt cap. Default: 3.
	MaxRetries int

	// Backoff / MaxBackoff / BackoffMultiplier shape the retry delays.
	Backoff           time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64

	// ScanMode selects the ABI scan mode in resolved keys. 0 uses the
	// current operational mode.
	ScanMode int
}

// Manager composes the scanner, analyzer, resolver and store into runs.
type Manager struct {
	registry *schedule.Registry
	scanner  *inventory.Scanner
	resolver *remote.Resolver
	store    *remote.Store
	opts     Options

	mu     sync.Mutex
	active map[string]*Run
}

// NewManager wires a manager from its collaborators.
func NewManager(registry *schedule.Registry, scanner *inventory.Scanner, store *remote.Store, opts Options) *Manager {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 30 * time.Second
	}
	if opts.BackoffMultiplier <= 1 {
		opts.BackoffMultiplier = 2
	}
	resolver := remote.NewResolver(registry)
	if opts.ScanMode != 0 {
		resolver.SetScanMode(opts.ScanMode)
	}
	return &Manager{
		registry: registry,
		scanner:  scanner,
		resolver: resolver,
		store:    store,
		opts:     opts,
		active:   make(map[string]*Run),
	}
}

// Run is a handle to one in-flight or finished reconcile run.
type Run struct {
	ID string

	manager *Manager
	root    string
	cancel  context.CancelFunc
	events  chan Progress
	done    chan struct{}

	mu     sync.Mutex
	state  State
	report *Report
	err    error
}

// Events returns the run's progress stream. The channel is closed when the
// run finishes. Updates are dropped if the consumer lags; the final report
// is the authoritative accounting.
func (r *Run) Events() <-chan Progress { return r.events }

// Cancel requests cooperative cancellation and returns immediately. Wait
// observes quiescence.
func (r *Run) Cancel() { r.cancel() }

// State returns the run's current state.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Wait blocks until the run finishes and returns the report. A cancelled
// run still returns its partial report.
func (r *Run) Wait() (*Report, error) {
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report, r.err
}

// Start begins a reconcile run. Preconditions — root directory present,
// known product/sector, known satellite — are verified here, before any
// network I/O; violations fail immediately with no partial report. A
// second Start against a root with an active run fails with
// ErrAlreadyRunning.
func (m *Manager) Start(ctx context.Context, p Params) (*Run, error) {
	if _, err := m.registry.Lookup(p.ProductType, p.Sector); err != nil {
		return nil, err
	}
	if _, err := remote.BucketFor(p.SatelliteID); err != nil {
		return nil, err
	}
	if err := m.scanner.Check(p.RootDir); err != nil {
		return nil, fmt.Errorf("reconcile: root directory: %w", err)
	}
	if p.Concurrency <= 0 {
		p.Concurrency = m.opts.Concurrency
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{
		ID:      uuid.NewString(),
		manager: m,
		root:    p.RootDir,
		cancel:  cancel,
		events:  make(chan Progress, 64),
		done:    make(chan struct{}),
		state:   StateIdle,
		report:  &Report{StartTime: time.Now().UTC()},
	}

	m.mu.Lock()
	if _, busy := m.active[p.RootDir]; busy {
		m.mu.Unlock()
		cancel()
		return nil, ErrAlreadyRunning
	}
	m.active[p.RootDir] = run
	m.mu.Unlock()

	go m.pipeline(runCtx, run, p)
	return run, nil
}

// pipeline is the run's single control-flow context. It owns the report:
// every field written below is written here and nowhere else.
func (m *Manager) pipeline(ctx context.Context, run *Run, p Params) {
	defer func() {
		run.report.EndTime = time.Now().UTC()
		close(run.events)
		close(run.done)
		m.mu.Lock()
		delete(m.active, run.root)
		m.mu.Unlock()
	}()

	// Scanning.
	run.setState(StateScanning)
	run.emit(Progress{Phase: StateScanning, Message: "scanning " + p.RootDir})

	var observed []time.Time
	scanned := 0
	err := m.scanner.Scan(p.RootDir, func(rec inventory.Record) error {
		scanned++
		if !p.DateStart.IsZero() && rec.Timestamp.Before(p.DateStart) {
			return nil
		}
		if !p.DateEnd.IsZero() && rec.Timestamp.After(p.DateEnd) {
			return nil
		}
		observed = append(observed, rec.Timestamp)
		return ctx.Err()
	})
	if err != nil {
		run.finish(ctx, err)
		return
	}
	run.emit(Progress{Phase: StateScanning, Completed: scanned, Total: scanned,
		Message: fmt.Sprintf("found %d timestamped artifacts", len(observed))})

	// Analyzing.
	run.setState(StateAnalyzing)
	result := analyze.AnalyzeRange(observed, p.IntervalOverride, p.DateStart, p.DateEnd)
	run.report.IntervalMinutes = result.IntervalMinutes
	found := countPresent(result)
	run.report.TotalFound = found
	run.report.TotalExpected = found + len(result.Missing)
	run.emit(Progress{Phase: StateAnalyzing, Completed: found, Total: run.report.TotalExpected,
		Message: fmt.Sprintf("interval %dm, %d missing", result.IntervalMinutes, len(result.Missing))})

	if len(result.Missing) == 0 {
		run.finish(ctx, nil)
		return
	}

	// Resolving. Pure computation, never blocks on the network.
	run.setState(StateResolving)
	type target struct {
		ts         time.Time
		candidates []remote.Locator
	}
	targets := make([]target, 0, len(result.Missing))
	for _, ts := range result.Missing {
		candidates, rerr := m.resolver.Resolve(ts, p.SatelliteID, p.ProductType, p.Sector, p.Band, p.ExactKeys)
		if rerr != nil {
			run.finish(ctx, rerr)
			return
		}
		targets = append(targets, target{ts: ts, candidates: candidates})
	}
	run.report.TotalMissingResolved = len(targets)
	run.emit(Progress{Phase: StateResolving, Completed: len(targets), Total: len(targets),
		Message: fmt.Sprintf("resolved %d locators", len(targets))})

	// Downloading. Workers report outcomes over the channel; only this
	// goroutine aggregates them into the report.
	run.setState(StateDownloading)
	outcomes := make(chan Outcome, len(targets))
	pool := taskpool.New(ctx, taskpool.Options{
		Workers:           p.Concurrency,
		MaxRetries:        m.opts.MaxRetries,
		Backoff:           m.opts.Backoff,
		MaxBackoff:        m.opts.MaxBackoff,
		BackoffMultiplier: m.opts.BackoffMultiplier,
		IsTransient:       remote.IsTransient,
		OnProgress: func(completed, total int, desc string) {
			run.emit(Progress{Phase: StateDownloading, Completed: completed, Total: total, Message: desc})
		},
	})

	type submitted struct {
		handle *taskpool.Handle
		target target
	}
	subs := make([]submitted, 0, len(targets))
	for _, tgt := range targets {
		tgt := tgt
		h, serr := pool.Submit(taskpool.Task{
			Description: "fetch " + tgt.ts.Format("2006-01-02 15:04"),
			Run: func(taskCtx context.Context) error {
				out, derr := m.download(taskCtx, run.root, tgt.ts, tgt.candidates, p)
				if derr != nil {
					return derr
				}
				outcomes <- out
				return nil
			},
		})
		if serr != nil {
			break
		}
		subs = append(subs, submitted{handle: h, target: tgt})
	}
	pool.Drain()
	close(outcomes)

	recorded := make(map[int64]Outcome, len(subs))
	for out := range outcomes {
		recorded[out.Timestamp.Unix()] = out
	}
	for _, s := range subs {
		out, ok := recorded[s.target.ts.Unix()]
		if !ok {
			out = Outcome{Timestamp: s.target.ts, Status: OutcomeCancelled}
			if s.handle.Status() == taskpool.StatusFailed {
				out.Status = OutcomeFailed
				if herr := s.handle.Err(); herr != nil {
					out.Error = herr.Error()
				}
				if len(s.target.candidates) > 0 {
					out.Locator = s.target.candidates[0]
				}
			}
		}
		run.report.Outcomes = append(run.report.Outcomes, out)
		switch out.Status {
		case OutcomeDownloaded:
			run.report.TotalDownloaded++
		case OutcomeSkipped:
			run.report.TotalSkipped++
		case OutcomeFailed:
			run.report.TotalFailed++
		case OutcomeCancelled:
			run.report.TotalCancelled++
		}
	}

	run.finish(ctx, nil)
}

// download resolves one missing timestamp against the store and fetches
// it. Wildcard candidates are settled by listing; when several sub-region
// candidates exist the listed object names decide which one answers.
func (m *Manager) download(ctx context.Context, root string, ts time.Time, candidates []remote.Locator, p Params) (Outcome, error) {
	locator, obj, err := m.pick(ctx, candidates)
	if err != nil {
		return Outcome{}, err
	}

	dest := filepath.Join(root, remote.DestinationName(ts, p.SatelliteID, p.Band))
	out := Outcome{Timestamp: ts, Locator: locator, DestPath: dest}

	// Already satisfied: a destination with the expected size is not
	// re-downloaded. This is also what makes re-runs after cancellation or
	// partial failure safe.
	if fi, serr := os.Stat(dest); serr == nil && obj.Size > 0 && fi.Size() == obj.Size {
		out.Status = OutcomeSkipped
		out.Bytes = fi.Size()
		return out, nil
	}

	n, err := m.store.Download(ctx, obj.Key, dest)
	if err != nil {
		return Outcome{}, fmt.Errorf("download %s: %w", obj.Key, err)
	}
	out.Status = OutcomeDownloaded
	out.Bytes = n
	return out, nil
}

// pick settles the candidate locators against the store listing. All
// candidate prefixes are listed concurrently; the first that yields an
// object wins, preferring earlier candidates on ties.
func (m *Manager) pick(ctx context.Context, candidates []remote.Locator) (remote.Locator, remote.Object, error) {
	listed := make([][]remote.Object, len(candidates))
	g, listCtx := errgroup.WithContext(ctx)
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			objs, err := m.store.List(listCtx, c.Key)
			if err != nil {
				return err
			}
			listed[i] = objs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return remote.Locator{}, remote.Object{}, err
	}

	for i, objs := range listed {
		if len(objs) > 0 {
			return candidates[i], objs[0], nil
		}
	}
	return remote.Locator{}, remote.Object{}, fmt.Errorf("%w: no object under %s", remote.ErrNotFound, candidates[0].Key)
}

func countPresent(result analyze.Result) int {
	n := 0
	for _, day := range result.Days {
		for _, slot := range day.Slots {
			if slot.Present {
				n++
			}
		}
	}
	return n
}

func (r *Run) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// finish settles the terminal state. err is a precondition-class failure;
// cancellation is detected from the context and is not an error.
func (r *Run) finish(ctx context.Context, err error) {
	state := StateCompleted
	switch {
	case err != nil && !errors.Is(err, context.Canceled):
		state = StateFailed
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		state = StateCancelled
		err = nil
	}

	r.mu.Lock()
	r.state = state
	r.err = err
	r.mu.Unlock()

	r.emit(Progress{Phase: state, Completed: r.report.TotalDownloaded + r.report.TotalSkipped,
		Total: r.report.TotalMissingResolved, Message: state.String()})
}

// emit sends a progress update without ever blocking the pipeline.
func (r *Run) emit(p Progress) {
	select {
	case r.events <- p:
	default:
	}
}
