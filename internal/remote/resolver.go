package remote

import (
	"errors"
	"fmt"
	"time"

	"github.com/jtn0123/goesfill/internal/schedule"
	"github.com/jtn0123/goesfill/internal/timestamp"
)

// ErrUnknownSatellite is returned for satellite IDs with no bucket mapping.
var ErrUnknownSatellite = errors.New("remote: unknown satellite")

// MatchMode says whether a locator names one object or a listing prefix.
type MatchMode int

const (
	// MatchWildcard keys stop at the scan-start minute; the trailing
	// scan-end and creation-time segments of real object names are unknown
	// ahead of time, so the key is meant for a prefix listing.
	MatchWildcard MatchMode = iota

	// MatchExact keys are fully concrete, built from the product's nominal
	// start-second offset. Used for deterministic tests and stores without
	// a listing operation.
	MatchExact
)

// Locator addresses a remote object, concretely or by prefix.
type Locator struct {
	Bucket string
	Key    string
	Mode   MatchMode
}

// Satellite bucket table. The NOAA buckets are public and credential-free.
var satelliteBuckets = map[string]struct {
	bucket     string
	designator string
}{
	"goes16": {"noaa-goes16", "G16"},
	"goes17": {"noaa-goes17", "G17"},
	"goes18": {"noaa-goes18", "G18"},
	"goes19": {"noaa-goes19", "G19"},
}

// BucketFor maps a satellite ID to its archive bucket.
func BucketFor(satelliteID string) (string, error) {
	sat, ok := satelliteBuckets[satelliteID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSatellite, satelliteID)
	}
	return sat.bucket, nil
}

// DefaultScanMode is the ABI scan mode in current operations. Archives
// recorded before April 2019 use mode 3.
const DefaultScanMode = 6

// Resolver turns target timestamps into remote object locators.
type Resolver struct {
	registry *schedule.Registry
	scanMode int
}

// NewResolver returns a resolver against the given schedule registry,
// using the default scan mode.
func NewResolver(registry *schedule.Registry) *Resolver {
	return &Resolver{registry: registry, scanMode: DefaultScanMode}
}

// SetScanMode overrides the ABI scan mode baked into object keys.
func (r *Resolver) SetScanMode(mode int) {
	r.scanMode = mode
}

// Resolve maps a target timestamp to candidate locators for the given
// satellite, product, sector and band.
//
// The requested minute is floored to the sector's scan grid; a request that
// precedes the hour's first valid minute wraps to the previous hour's last
// scan. Sectors with concurrently active sub-regions (mesoscale M1/M2)
// yield one candidate per sub-region sharing the nominal minute; which one
// actually answers a given timestamp can only be settled by inspecting the
// listed object names.
func (r *Resolver) Resolve(t time.Time, satelliteID, productType, sector string, band int, exact bool) ([]Locator, error) {
	sat, ok := satelliteBuckets[satelliteID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSatellite, satelliteID)
	}
	entry, err := r.registry.Lookup(productType, sector)
	if err != nil {
		return nil, err
	}

	t = t.UTC()
	minute := schedule.NearestValidMinute(entry, t.Minute())
	scan := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, time.UTC)
	if minute > t.Minute() {
		scan = scan.Add(-time.Hour)
	}

	mode := MatchWildcard
	if exact {
		mode = MatchExact
	}

	locators := make([]Locator, 0, entry.ConcurrentSubRegions)
	for sub := 1; sub <= entry.ConcurrentSubRegions; sub++ {
		token := productType
		if entry.ConcurrentSubRegions > 1 {
			token = fmt.Sprintf("%s%d", productType, sub)
		}
		locators = append(locators, Locator{
			Bucket: sat.bucket,
			Key:    buildKey(productType, token, sat.designator, scan, r.scanMode, band, entry.StartSecondOffset, exact),
			Mode:   mode,
		})
	}
	return locators, nil
}

// buildKey assembles a GOES object key:
//
//	ABI-L2-CMIPC/2023/275/15/OR_ABI-L2-CMIPC-M6C13_G16_s20232751501...
//
// Wildcard keys stop after the minute digits. Exact keys carry the nominal
// start second, a zero tenths digit, and the .nc suffix.
func buildKey(productType, productToken, designator string, scan time.Time, scanMode, band, startSecond int, exact bool) string {
	prefix := fmt.Sprintf("%s/%04d/%03d/%02d/OR_%s-M%dC%02d_%s_s%04d%03d%02d%02d",
		productType, scan.Year(), scan.YearDay(), scan.Hour(),
		productToken, scanMode, band, designator,
		scan.Year(), scan.YearDay(), scan.Hour(), scan.Minute(),
	)
	if !exact {
		return prefix
	}
	return fmt.Sprintf("%s%02d0.nc", prefix, startSecond)
}

// DestinationName is the local filename for a scan: the canonical compact
// timestamp plus satellite and band, e.g. "goes16_b13_20231002_150100.nc".
func DestinationName(t time.Time, satelliteID string, band int) string {
	return fmt.Sprintf("%s_b%02d_%s.nc", satelliteID, band, timestamp.Format(t, timestamp.PatternCompact))
}
