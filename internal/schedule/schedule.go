package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Common errors.
var (
	ErrUnknownProduct = errors.New("schedule: unknown product/sector")
)

// DefaultIntervalMinutes is returned by DetectInterval when the observed
// data is too sparse to vote on a dominant spacing.
const DefaultIntervalMinutes = 30

// Entry describes the scan cadence of one product/sector pair: the minutes
// within each hour at which a scan starts, the nominal spacing between
// scans, and the nominal second offset of the scan start within its minute.
type Entry struct {
	ProductType          string
	Sector               string
	ValidMinutes         []int // ascending, each in 0..59, never empty
	NominalIntervalMin   int
	StartSecondOffset    int
	ConcurrentSubRegions int // >1 when sub-regions share the same minute grid
}

// Registry is an immutable product/sector -> Entry table. Build it once
// with NewRegistry and hand it to components by value; there is no way to
// mutate it afterwards.
type Registry struct {
	entries map[string]Entry
}

func key(productType, sector string) string {
	return productType + "/" + sector
}

// NewRegistry builds a registry from the given entries.
func NewRegistry(entries []Entry) (*Registry, error) {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if len(e.ValidMinutes) == 0 {
			return nil, fmt.Errorf("schedule: entry %s/%s has no valid minutes", e.ProductType, e.Sector)
		}
		mins := append([]int(nil), e.ValidMinutes...)
		sort.Ints(mins)
		for _, minute := range mins {
			if minute < 0 || minute > 59 {
				return nil, fmt.Errorf("schedule: entry %s/%s has minute %d out of range", e.ProductType, e.Sector, minute)
			}
		}
		e.ValidMinutes = mins
		if e.ConcurrentSubRegions == 0 {
			e.ConcurrentSubRegions = 1
		}
		m[key(e.ProductType, e.Sector)] = e
	}
	return &Registry{entries: m}, nil
}

// DefaultEntries returns the GOES-R ABI level-2 imagery cadences in mode 6:
// full disk every 10 minutes, CONUS every 5 starting at minute 1, and
// mesoscale every minute with two concurrently active sub-regions.
func DefaultEntries() []Entry {
	fullDisk := make([]int, 0, 6)
	for m := 0; m < 60; m += 10 {
		fullDisk = append(fullDisk, m)
	}
	conus := make([]int, 0, 12)
	for m := 1; m < 60; m += 5 {
		conus = append(conus, m)
	}
	meso := make([]int, 0, 60)
	for m := 0; m < 60; m++ {
		meso = append(meso, m)
	}

	return []Entry{
		{ProductType: "ABI-L2-CMIPF", Sector: "FullDisk", ValidMinutes: fullDisk, NominalIntervalMin: 10, StartSecondOffset: 20},
		{ProductType: "ABI-L2-CMIPC", Sector: "CONUS", ValidMinutes: conus, NominalIntervalMin: 5, StartSecondOffset: 17},
		{ProductType: "ABI-L2-CMIPM", Sector: "Mesoscale", ValidMinutes: meso, NominalIntervalMin: 1, StartSecondOffset: 24, ConcurrentSubRegions: 2},
	}
}

// DefaultRegistry returns a registry holding DefaultEntries.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultEntries())
	if err != nil {
		panic(err) // static table, cannot fail
	}
	return r
}

// Lookup returns the entry for a product/sector pair.
func (r *Registry) Lookup(productType, sector string) (Entry, error) {
	e, ok := r.entries[key(productType, sector)]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s/%s", ErrUnknownProduct, productType, sector)
	}
	return e, nil
}

// NearestValidMinute returns the largest valid minute <= requested. When the
// requested minute precedes the first valid minute the schedule wraps to the
// hour's last valid minute: a request at :00 against the CONUS grid
// {1,6,...,56} belongs to the previous hour's :56 scan.
func NearestValidMinute(e Entry, requested int) int {
	best := -1
	for _, m := range e.ValidMinutes {
		if m <= requested && m > best {
			best = m
		}
	}
	if best < 0 {
		return e.ValidMinutes[len(e.ValidMinutes)-1]
	}
	return best
}

// DetectInterval estimates the dominant spacing of the observed timestamps
// in minutes. Successive differences above an hour are treated as session
// or day boundaries rather than representative spacing and are discarded;
// the remainder votes in a histogram and the winner is rounded to the
// nearest 5-minute bucket. Fewer than two observations, or no surviving
// differences, yields DefaultIntervalMinutes.
func DetectInterval(observed []time.Time) int {
	if len(observed) < 2 {
		return DefaultIntervalMinutes
	}

	unique := make([]time.Time, 0, len(observed))
	seen := make(map[int64]bool, len(observed))
	for _, t := range observed {
		u := t.UTC()
		if !seen[u.Unix()] {
			seen[u.Unix()] = true
			unique = append(unique, u)
		}
	}
	if len(unique) < 2 {
		return DefaultIntervalMinutes
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].Before(unique[j]) })

	hist := make(map[int]int)
	for i := 1; i < len(unique); i++ {
		diff := int(unique[i].Sub(unique[i-1]).Minutes())
		if diff <= 0 || diff > 60 {
			continue
		}
		hist[diff]++
	}
	if len(hist) == 0 {
		return DefaultIntervalMinutes
	}

	mode, best := 0, -1
	for diff, count := range hist {
		if count > best || (count == best && diff < mode) {
			mode, best = diff, count
		}
	}

	rounded := ((mode + 2) / 5) * 5
	if rounded == 0 {
		rounded = 5
	}
	return rounded
}
