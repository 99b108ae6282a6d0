package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"gocloud.dev/blob"

	"github.com/jtn0123/goesfill/internal/config"
	"github.com/jtn0123/goesfill/internal/inventory"
	"github.com/jtn0123/goesfill/internal/progress"
	"github.com/jtn0123/goesfill/internal/reconcile"
	"github.com/jtn0123/goesfill/internal/remote"
)

func runReconcile(args []string) int {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)

	root := fs.String("root", "", "Local archive directory (required)")
	configPath := fs.String("config", "", "YAML config file")
	satellite := fs.String("satellite", "", "Satellite ID (goes16..goes19)")
	product := fs.String("product", "", "Product type, e.g. ABI-L2-CMIPC")
	sector := fs.String("sector", "", "Scan sector, e.g. CONUS")
	band := fs.Int("band", 0, "ABI band number (1..16)")
	mode := fs.Int("mode", 0, "ABI scan mode (3, 4 or 6; 6 is current operations)")
	workers := fs.Int("workers", 0, "Number of parallel downloads")
	interval := fs.Int("interval", 0, "Sampling interval in minutes (0 = detect)")
	start := fs.String("start", "", "Range start, e.g. 20231002_100000")
	end := fs.String("end", "", "Range end")
	bucket := fs.String("bucket", "", "Bucket URL override, e.g. s3://noaa-goes16?region=us-east-1")
	exact := fs.Bool("exact", false, "Resolve exact object keys instead of prefixes")
	quiet := fs.Bool("quiet", false, "Suppress per-download progress lines")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: goesfill reconcile [options]

Scan the local archive, detect its sampling grid, compute the missing
scan times and fetch them from the satellite's archive bucket. Safe to
re-run: already-present files are never fetched twice.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg, err := loadConfig(*configPath, config.Config{
		RootDir:         *root,
		Satellite:       *satellite,
		Product:         *product,
		Sector:          *sector,
		Band:            *band,
		ScanMode:        *mode,
		Workers:         *workers,
		IntervalMinutes: *interval,
		ExactKeys:       *exact,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitInvalidArgs
	}

	startAt, err := parseWhen(*start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: -start: %v\n", err)
		return ExitInvalidArgs
	}
	endAt, err := parseWhen(*end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: -end: %v\n", err)
		return ExitInvalidArgs
	}

	registry, err := cfg.Registry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	url := *bucket
	if url == "" {
		url, err = bucketURL(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitPrecondition
		}
	}
	b, err := blob.OpenBucket(ctx, url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening bucket %s: %v\n", url, err)
		return ExitStorageError
	}
	defer b.Close()

	manager := reconcile.NewManager(
		registry,
		inventory.NewScanner(afero.NewOsFs()),
		remote.NewStore(b),
		reconcile.Options{
			Concurrency: cfg.Workers,
			MaxRetries:  cfg.Retry.Attempts,
			Backoff:     cfg.Retry.Backoff,
			MaxBackoff:  cfg.Retry.MaxBackoff,
			ScanMode:    cfg.ScanMode,
		},
	)

	run, err := manager.Start(ctx, reconcile.Params{
		RootDir:          cfg.RootDir,
		SatelliteID:      cfg.Satellite,
		ProductType:      cfg.Product,
		Sector:           cfg.Sector,
		Band:             cfg.Band,
		DateStart:        startAt,
		DateEnd:          endAt,
		IntervalOverride: cfg.IntervalMinutes,
		Concurrency:      cfg.Workers,
		ExactKeys:        cfg.ExactKeys,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitPrecondition
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n[goesfill] Received interrupt, shutting down...")
		run.Cancel()
	}()

	reporter := progress.NewReporter(progress.Options{Quiet: *quiet})
	reporter.Start(cfg.Satellite, cfg.Product, cfg.Sector, cfg.Band, cfg.Workers)
	for p := range run.Events() {
		reporter.Observe(p)
	}

	report, err := run.Wait()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}
	reporter.Finish(report)

	switch {
	case run.State() == reconcile.StateCancelled:
		return ExitCancelled
	case report.TotalFailed > 0:
		return ExitIncomplete
	}
	return ExitSuccess
}
