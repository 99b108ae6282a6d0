// Package progress renders a reconcile run's progress stream as
// human-readable lines on stderr.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{})
//	reporter.Start(satellite, product, sector, band, workers)
//	for p := range run.Events() {
//	    reporter.Observe(p)
//	}
//	report, _ := run.Wait()
//	reporter.Finish(report)
//
// # Output Format
//
//	[goesfill] Reconciling: goes16 ABI-L2-CMIPC/CONUS band 13
//	[goesfill] Workers: 4
//	[goesfill] Scanning: scanning /data/goes
//	[goesfill] Analyzing: interval 30m, 3 missing
//	[goesfill] Downloading: 2/3 | fetch 2023-10-02 11:00
//	[goesfill] Downloaded: 3 | Skipped: 0 | Failed: 0 | Cancelled: 0
package progress
