// Package reconcile drives the whole pipeline: scan the local archive,
// detect the sampling grid, compute the missing capture times, resolve
// them to remote locators and fetch them under bounded concurrency.
//
// A run is a state machine
//
//	Idle -> Scanning -> Analyzing -> Resolving -> Downloading
//	     -> Completed | Cancelled | Failed
//
// Failed is reserved for precondition violations (missing root, unknown
// product or satellite) and is surfaced from Start before any network
// I/O. Individual download failures never fail a run; they are tallied in
// the report with their locator and reason so a partial run is always
// actionable.
//
// The report has a single writer: the run's pipeline goroutine. Download
// workers hand their outcomes over a channel and never mutate shared
// state. Cancellation is cooperative; Cancel returns immediately and Wait
// returns the partial report once the pool has drained.
package reconcile
