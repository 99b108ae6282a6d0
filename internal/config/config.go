package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jtn0123/goesfill/internal/schedule"
)

// Config defines configuration for the goesfill CLI.
type Config struct {
	RootDir         string            `yaml:"root_dir"`
	Satellite       string            `yaml:"satellite"`
	Product         string            `yaml:"product"`
	Sector          string            `yaml:"sector"`
	Band            int               `yaml:"band"`
	ScanMode        int               `yaml:"scan_mode"`
	Workers         int               `yaml:"workers"`
	IntervalMinutes int               `yaml:"interval_minutes"`
	Progress        bool              `yaml:"progress"`
	ExactKeys       bool              `yaml:"exact_keys"`
	Buckets         map[string]string `yaml:"buckets"`
	Schedule        []ScheduleEntry   `yaml:"schedule"`
	Retry           RetryConfig       `yaml:"retry"`
}

// ScheduleEntry overrides or extends the built-in scan cadence table.
type ScheduleEntry struct {
	Product      string `yaml:"product"`
	Sector       string `yaml:"sector"`
	ValidMinutes []int  `yaml:"valid_minutes"`
	IntervalMin  int    `yaml:"interval_minutes"`
	StartSecond  int    `yaml:"start_second"`
	SubRegions   int    `yaml:"sub_regions"`
}

// RetryConfig defines retry behavior.
type RetryConfig struct {
	Attempts   int           `yaml:"attempts"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Satellite: "goes16",
		Product:   "ABI-L2-CMIPC",
		Sector:    "CONUS",
		Band:      13,
		ScanMode:  6,
		Workers:   4,
		Retry: RetryConfig{
			Attempts:   3,
			Backoff:    500 * time.Millisecond,
			MaxBackoff: 30 * time.Second,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	RootDir         string            `yaml:"root_dir"`
	Satellite       string            `yaml:"satellite"`
	Product         string            `yaml:"product"`
	Sector          string            `yaml:"sector"`
	Band            int               `yaml:"band"`
	ScanMode        int               `yaml:"scan_mode"`
	Workers         int               `yaml:"workers"`
	IntervalMinutes int               `yaml:"interval_minutes"`
	Progress        bool              `yaml:"progress"`
	ExactKeys       bool              `yaml:"exact_keys"`
	Buckets         map[string]string `yaml:"buckets"`
	Schedule        []ScheduleEntry   `yaml:"schedule"`
	Retry           yamlRetryConfig   `yaml:"retry"`
}

type yamlRetryConfig struct {
	Attempts   int    `yaml:"attempts"`
	Backoff    string `yaml:"backoff"`
	MaxBackoff string `yaml:"max_backoff"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.RootDir != "" {
		cfg.RootDir = yc.RootDir
	}
	if yc.Satellite != "" {
		cfg.Satellite = yc.Satellite
	}
	if yc.Product != "" {
		cfg.Product = yc.Product
	}
	if yc.Sector != "" {
		cfg.Sector = yc.Sector
	}
	if yc.Band != 0 {
		cfg.Band = yc.Band
	}
	if yc.ScanMode != 0 {
		cfg.ScanMode = yc.ScanMode
	}
	if yc.Workers != 0 {
		cfg.Workers = yc.Workers
	}
	if yc.IntervalMinutes != 0 {
		cfg.IntervalMinutes = yc.IntervalMinutes
	}
	cfg.Progress = yc.Progress
	cfg.ExactKeys = yc.ExactKeys
	if len(yc.Buckets) != 0 {
		cfg.Buckets = yc.Buckets
	}
	if len(yc.Schedule) != 0 {
		cfg.Schedule = yc.Schedule
	}
	if yc.Retry.Attempts != 0 {
		cfg.Retry.Attempts = yc.Retry.Attempts
	}
	if yc.Retry.Backoff != "" {
		d, err := time.ParseDuration(yc.Retry.Backoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.backoff: %w", err)
		}
		cfg.Retry.Backoff = d
	}
	if yc.Retry.MaxBackoff != "" {
		d, err := time.ParseDuration(yc.Retry.MaxBackoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.max_backoff: %w", err)
		}
		cfg.Retry.MaxBackoff = d
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the GOESFILL_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("GOESFILL_ROOT"); v != "" {
		c.RootDir = v
	}
	if v := os.Getenv("GOESFILL_SATELLITE"); v != "" {
		c.Satellite = v
	}
	if v := os.Getenv("GOESFILL_PRODUCT"); v != "" {
		c.Product = v
	}
	if v := os.Getenv("GOESFILL_SECTOR"); v != "" {
		c.Sector = v
	}
	if v := os.Getenv("GOESFILL_BAND"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse GOESFILL_BAND: %w", err)
		}
		c.Band = n
	}
	if v := os.Getenv("GOESFILL_SCAN_MODE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse GOESFILL_SCAN_MODE: %w", err)
		}
		c.ScanMode = n
	}
	if v := os.Getenv("GOESFILL_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse GOESFILL_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("GOESFILL_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse GOESFILL_INTERVAL: %w", err)
		}
		c.IntervalMinutes = n
	}
	if v := os.Getenv("GOESFILL_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := os.Getenv("GOESFILL_EXACT_KEYS"); v != "" {
		c.ExactKeys = v == "true" || v == "1"
	}
	if v := os.Getenv("GOESFILL_RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse GOESFILL_RETRY_ATTEMPTS: %w", err)
		}
		c.Retry.Attempts = n
	}
	if v := os.Getenv("GOESFILL_RETRY_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse GOESFILL_RETRY_BACKOFF: %w", err)
		}
		c.Retry.Backoff = d
	}
	if v := os.Getenv("GOESFILL_RETRY_MAX_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse GOESFILL_RETRY_MAX_BACKOFF: %w", err)
		}
		c.Retry.MaxBackoff = d
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.RootDir == "" {
		return errors.New("config: root_dir is required")
	}
	if c.Satellite == "" {
		return errors.New("config: satellite is required")
	}
	if c.Product == "" || c.Sector == "" {
		return errors.New("config: product and sector are required")
	}
	if c.Band < 1 || c.Band > 16 {
		return errors.New("config: band must be in 1..16")
	}
	if c.ScanMode != 3 && c.ScanMode != 4 && c.ScanMode != 6 {
		return errors.New("config: scan_mode must be 3, 4 or 6")
	}
	if c.Workers <= 0 {
		return errors.New("config: workers must be positive")
	}
	if c.IntervalMinutes < 0 {
		return errors.New("config: interval_minutes must not be negative")
	}
	if c.Retry.Attempts <= 0 {
		return errors.New("config: retry.attempts must be positive")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.RootDir != "" {
		c.RootDir = override.RootDir
	}
	if override.Satellite != "" {
		c.Satellite = override.Satellite
	}
	if override.Product != "" {
		c.Product = override.Product
	}
	if override.Sector != "" {
		c.Sector = override.Sector
	}
	if override.Band != 0 {
		c.Band = override.Band
	}
	if override.ScanMode != 0 {
		c.ScanMode = override.ScanMode
	}
	if override.Workers != 0 {
		c.Workers = override.Workers
	}
	if override.IntervalMinutes != 0 {
		c.IntervalMinutes = override.IntervalMinutes
	}
	if override.Progress {
		c.Progress = override.Progress
	}
	if override.ExactKeys {
		c.ExactKeys = override.ExactKeys
	}
	if len(override.Buckets) != 0 {
		c.Buckets = override.Buckets
	}
	if len(override.Schedule) != 0 {
		c.Schedule = override.Schedule
	}
	if override.Retry.Attempts != 0 {
		c.Retry.Attempts = override.Retry.Attempts
	}
	if override.Retry.Backoff != 0 {
		c.Retry.Backoff = override.Retry.Backoff
	}
	if override.Retry.MaxBackoff != 0 {
		c.Retry.MaxBackoff = override.Retry.MaxBackoff
	}
	return c
}

// Registry materializes the scan cadence table: the built-in entries plus
// any schedule overrides from the config, later entries replacing earlier
// ones for the same product/sector pair.
func (c *Config) Registry() (*schedule.Registry, error) {
	entries := schedule.DefaultEntries()
	for _, se := range c.Schedule {
		e := schedule.Entry{
			ProductType:          se.Product,
			Sector:               se.Sector,
			ValidMinutes:         se.ValidMinutes,
			NominalIntervalMin:   se.IntervalMin,
			StartSecondOffset:    se.StartSecond,
			ConcurrentSubRegions: se.SubRegions,
		}
		replaced := false
		for i, def := range entries {
			if def.ProductType == e.ProductType && def.Sector == e.Sector {
				entries[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			entries = append(entries, e)
		}
	}
	return schedule.NewRegistry(entries)
}
