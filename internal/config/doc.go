// Package config defines configuration structures for the goesfill CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (GOESFILL_ prefix)
//   - YAML configuration file
//
// # Structure
//
//	type Config struct {
//	    RootDir         string
//	    Satellite       string
//	    Product         string
//	    Sector          string
//	    Band            int
//	    Workers         int
//	    IntervalMinutes int
//	    Buckets         map[string]string
//	    Schedule        []ScheduleEntry
//	    Retry           RetryConfig
//	}
//
//	type RetryConfig struct {
//	    Attempts   int
//	    Backoff    time.Duration
//	    MaxBackoff time.Duration
//	}
//
// Schedule entries replace or extend the built-in scan cadence table; the
// Buckets map overrides the default satellite archive buckets, which is how
// tests and mirrors point a run somewhere other than the public NOAA
// buckets.
package config
