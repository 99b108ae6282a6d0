package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/jtn0123/goesfill/internal/reconcile"
)

// Options configures the progress reporter.
type Options struct {
	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// Quiet suppresses per-download lines; phase transitions and the
	// final summary are still printed.
	Quiet bool
}

// Reporter renders a run's progress stream as human-readable lines.
type Reporter struct {
	opts Options

	mu        sync.Mutex
	startTime time.Time
	lastPhase reconcile.State
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	return &Reporter{opts: opts, lastPhase: reconcile.StateIdle}
}

// Start prints the run header.
func (r *Reporter) Start(satellite, product, sector string, band, workers int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startTime = time.Now()

	fmt.Fprintf(r.opts.Output, "[goesfill] Reconciling: %s %s/%s band %d\n", satellite, product, sector, band)
	fmt.Fprintf(r.opts.Output, "[goesfill] Workers: %d\n", workers)
}

// Observe renders one progress update. Phase transitions always get a
// line; within the downloading phase each update prints a counter line
// unless Quiet is set.
func (r *Reporter) Observe(p reconcile.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.Phase != r.lastPhase {
		r.lastPhase = p.Phase
		fmt.Fprintf(r.opts.Output, "[goesfill] %s\n", describePhase(p))
		return
	}
	if p.Phase == reconcile.StateDownloading && !r.opts.Quiet {
		fmt.Fprintf(r.opts.Output, "[goesfill] Downloading: %d/%d | %s\n", p.Completed, p.Total, p.Message)
	}
}

// Finish prints the final accounting for a completed, failed or cancelled
// run.
func (r *Reporter) Finish(rep *reconcile.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var bytes int64
	for _, out := range rep.Outcomes {
		bytes += out.Bytes
	}
	duration := rep.EndTime.Sub(rep.StartTime)

	fmt.Fprintf(r.opts.Output, "[goesfill] Interval: %dm | Expected: %d | Found: %d | Missing: %d\n",
		rep.IntervalMinutes, rep.TotalExpected, rep.TotalFound, rep.TotalMissingResolved)
	fmt.Fprintf(r.opts.Output, "[goesfill] Downloaded: %d | Skipped: %d | Failed: %d | Cancelled: %d\n",
		rep.TotalDownloaded, rep.TotalSkipped, rep.TotalFailed, rep.TotalCancelled)
	fmt.Fprintf(r.opts.Output, "[goesfill] Transferred: %s | Total time: %s\n",
		formatBytes(bytes), formatDuration(duration))

	for _, out := range rep.Outcomes {
		if out.Status == reconcile.OutcomeFailed {
			fmt.Fprintf(r.opts.Output, "[goesfill]   failed %s: %s\n",
				out.Timestamp.Format("2006-01-02 15:04"), out.Error)
		}
	}
}

func describePhase(p reconcile.Progress) string {
	switch p.Phase {
	case reconcile.StateScanning:
		return "Scanning: " + p.Message
	case reconcile.StateAnalyzing:
		return "Analyzing: " + p.Message
	case reconcile.StateResolving:
		return "Resolving: " + p.Message
	case reconcile.StateDownloading:
		return fmt.Sprintf("Downloading: %d/%d", p.Completed, p.Total)
	default:
		return p.Phase.String()
	}
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}
