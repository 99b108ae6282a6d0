package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/jtn0123/goesfill/internal/reconcile"
)

func TestReporterPhaseTransitions(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(Options{Output: &buf})

	r.Start("goes16", "ABI-L2-CMIPC", "CONUS", 13, 4)
	r.Observe(reconcile.Progress{Phase: reconcile.StateScanning, Message: "scanning /data/goes"})
	r.Observe(reconcile.Progress{Phase: reconcile.StateAnalyzing, Message: "interval 30m, 3 missing"})
	r.Observe(reconcile.Progress{Phase: reconcile.StateDownloading, Completed: 0, Total: 3})

	out := buf.String()
	for _, want := range []string{
		"[goesfill] Reconciling: goes16 ABI-L2-CMIPC/CONUS band 13",
		"Workers: 4",
		"Scanning: scanning /data/goes",
		"Analyzing: interval 30m, 3 missing",
		"Downloading: 0/3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReporterDownloadTicks(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(Options{Output: &buf})

	r.Observe(reconcile.Progress{Phase: reconcile.StateDownloading, Completed: 0, Total: 2})
	r.Observe(reconcile.Progress{Phase: reconcile.StateDownloading, Completed: 1, Total: 2, Message: "fetch 2023-10-02 11:00"})
	r.Observe(reconcile.Progress{Phase: reconcile.StateDownloading, Completed: 2, Total: 2, Message: "fetch 2023-10-02 11:30"})

	out := buf.String()
	if !strings.Contains(out, "Downloading: 1/2 | fetch 2023-10-02 11:00") {
		t.Errorf("missing tick line:\n%s", out)
	}
	if !strings.Contains(out, "Downloading: 2/2") {
		t.Errorf("missing final tick:\n%s", out)
	}
}

func TestReporterQuietSuppressesTicks(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(Options{Output: &buf, Quiet: true})

	r.Observe(reconcile.Progress{Phase: reconcile.StateDownloading, Completed: 0, Total: 2})
	r.Observe(reconcile.Progress{Phase: reconcile.StateDownloading, Completed: 1, Total: 2, Message: "fetch"})

	out := buf.String()
	if !strings.Contains(out, "Downloading: 0/2") {
		t.Errorf("phase transition should still print:\n%s", out)
	}
	if strings.Contains(out, "1/2") {
		t.Errorf("tick should be suppressed in quiet mode:\n%s", out)
	}
}

func TestReporterFinish(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(Options{Output: &buf})

	start := time.Date(2023, 10, 2, 15, 0, 0, 0, time.UTC)
	rep := &reconcile.Report{
		StartTime:            start,
		EndTime:              start.Add(95 * time.Second),
		IntervalMinutes:      30,
		TotalExpected:        5,
		TotalFound:           2,
		TotalMissingResolved: 3,
		TotalDownloaded:      2,
		TotalFailed:          1,
		Outcomes: []reconcile.Outcome{
			{Status: reconcile.OutcomeDownloaded, Bytes: 2 * 1024 * 1024},
			{Status: reconcile.OutcomeDownloaded, Bytes: 1024 * 1024},
			{
				Status:    reconcile.OutcomeFailed,
				Timestamp: time.Date(2023, 10, 2, 11, 0, 0, 0, time.UTC),
				Error:     "remote: object not found",
			},
		},
	}
	r.Finish(rep)

	out := buf.String()
	for _, want := range []string{
		"Interval: 30m | Expected: 5 | Found: 2 | Missing: 3",
		"Downloaded: 2 | Skipped: 0 | Failed: 1 | Cancelled: 0",
		"Transferred: 3.00 MB",
		"Total time: 1m 35s",
		"failed 2023-10-02 11:00: remote: object not found",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{3 * 1024 * 1024, "3.00 MB"},
		{5 * 1024 * 1024 * 1024, "5.00 GB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{95 * time.Second, "1m 35s"},
		{3723 * time.Second, "1h 2m 3s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
