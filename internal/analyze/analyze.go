package analyze

import (
	"sort"
	"time"

	"github.com/jtn0123/goesfill/internal/schedule"
)

// Slot is one rung of a day's expected-capture ladder.
type Slot struct {
	Label   string // "15:30"
	At      time.Time
	Present bool
}

// DayLadder is the full set of expected slots for one calendar day, in
// chronological order. Days never share slots: a ladder starts at 00:00 UTC
// and ends before the next midnight regardless of neighbouring days.
type DayLadder struct {
	Date  string // "2023-10-02"
	Slots []Slot
}

// Result is the outcome of analyzing an observed timestamp set.
type Result struct {
	IntervalMinutes int
	Days            []DayLadder

	// Missing holds expected slots with no exact observed match, restricted
	// to the span actually observed. Slots before the first or after the
	// last observation are shown absent in the ladders but are not missing;
	// nothing is known about whether they should exist.
	Missing []time.Time
}

// Analyze builds per-day presence ladders and the missing-timestamp list
// for the observed set. intervalOverride, when positive, pins the grid
// spacing; otherwise the dominant interval is detected from the data.
//
// Presence requires an exact grid match. Observed timestamps that fall off
// the grid are ignored: they are neither credited to an adjacent slot nor
// reported. A single observation yields its ladder but no missing slots.
func Analyze(observed []time.Time, intervalOverride int) Result {
	return AnalyzeRange(observed, intervalOverride, time.Time{}, time.Time{})
}

// AnalyzeRange is Analyze with an explicitly requested span. Non-zero
// bounds widen the window inside which unobserved slots count as missing
// beyond the observed span; with an explicit bound on each side even a
// single observation yields missing slots, since the comparison window no
// longer depends on having two observations.
func AnalyzeRange(observed []time.Time, intervalOverride int, rangeStart, rangeEnd time.Time) Result {
	interval := intervalOverride
	if interval <= 0 {
		interval = schedule.DetectInterval(observed)
	}

	unique := make([]time.Time, 0, len(observed))
	seen := make(map[int64]bool, len(observed))
	for _, t := range observed {
		u := t.UTC().Truncate(time.Second)
		if !seen[u.Unix()] {
			seen[u.Unix()] = true
			unique = append(unique, u)
		}
	}
	res := Result{IntervalMinutes: interval}
	explicitSpan := !rangeStart.IsZero() || !rangeEnd.IsZero()
	if len(unique) == 0 && !(!rangeStart.IsZero() && !rangeEnd.IsZero()) {
		// Nothing observed and no complete requested window: there is no
		// span to reconcile against.
		return res
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].Before(unique[j]) })

	present := make(map[int64]bool, len(unique))
	for _, t := range unique {
		present[t.Unix()] = true
	}

	var first, last time.Time
	if len(unique) > 0 {
		first, last = unique[0], unique[len(unique)-1]
	} else {
		first, last = rangeStart.UTC(), rangeEnd.UTC()
	}
	if !rangeStart.IsZero() && rangeStart.UTC().Before(first) {
		first = rangeStart.UTC()
	}
	if !rangeEnd.IsZero() && rangeEnd.UTC().After(last) {
		last = rangeEnd.UTC()
	}
	step := time.Duration(interval) * time.Minute
	compare := len(unique) > 1 || explicitSpan

	for day := midnight(first); !day.After(last); day = day.AddDate(0, 0, 1) {
		ladder := DayLadder{Date: day.Format("2006-01-02")}
		for at := day; at.Before(day.AddDate(0, 0, 1)); at = at.Add(step) {
			slot := Slot{
				Label:   at.Format("15:04"),
				At:      at,
				Present: present[at.Unix()],
			}
			ladder.Slots = append(ladder.Slots, slot)

			inSpan := !at.Before(first) && !at.After(last)
			if inSpan && !slot.Present && compare {
				res.Missing = append(res.Missing, at)
			}
		}
		res.Days = append(res.Days, ladder)
	}

	return res
}

func midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
