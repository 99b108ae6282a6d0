package main

import (
	"fmt"
	"time"

	"github.com/spf13/afero"

	"github.com/jtn0123/goesfill/internal/config"
	"github.com/jtn0123/goesfill/internal/inventory"
	"github.com/jtn0123/goesfill/internal/remote"
	"github.com/jtn0123/goesfill/internal/timestamp"
)

// loadConfig layers configuration: file (when given), then environment,
// then the flag overrides, which win.
func loadConfig(configPath string, override config.Config) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		fileCfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = fileCfg
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}
	cfg = cfg.Merge(override)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// bucketURL returns the blob URL for a satellite's archive: a configured
// override when present, otherwise the public NOAA bucket.
func bucketURL(cfg config.Config) (string, error) {
	if url, ok := cfg.Buckets[cfg.Satellite]; ok {
		return url, nil
	}
	bucket, err := remote.BucketFor(cfg.Satellite)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("s3://%s?region=us-east-1", bucket), nil
}

// parseWhen parses a -start/-end flag value. Empty means unbounded.
func parseWhen(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return timestamp.Parse(v)
}

// scanObserved collects the timestamps of the local archive, bounded by
// the optional date range.
func scanObserved(root string, start, end time.Time) ([]time.Time, error) {
	scanner := inventory.NewScanner(afero.NewOsFs())
	if err := scanner.Check(root); err != nil {
		return nil, err
	}

	var observed []time.Time
	err := scanner.Scan(root, func(rec inventory.Record) error {
		if !start.IsZero() && rec.Timestamp.Before(start) {
			return nil
		}
		if !end.IsZero() && rec.Timestamp.After(end) {
			return nil
		}
		observed = append(observed, rec.Timestamp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return observed, nil
}
