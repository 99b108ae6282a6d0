package analyze

import (
	"testing"
	"time"

	"github.com/jtn0123/goesfill/internal/schedule"
)

func at(hh, mm int) time.Time {
	return time.Date(2023, 10, 2, hh, mm, 0, 0, time.UTC)
}

func TestAnalyzeMissingSlots(t *testing.T) {
	// Dominant 30-minute grid with one hole at 11:00. The 12:15 entry is
	// off-grid and must be ignored entirely.
	observed := []time.Time{at(10, 0), at(10, 30), at(11, 30), at(12, 0), at(12, 15)}

	res := Analyze(observed, 30)

	if len(res.Missing) != 1 {
		t.Fatalf("Missing = %v, want exactly one slot", res.Missing)
	}
	if want := at(11, 0); !res.Missing[0].Equal(want) {
		t.Errorf("Missing[0] = %v, want %v", res.Missing[0], want)
	}
}

func TestAnalyzeDetectsInterval(t *testing.T) {
	observed := []time.Time{at(10, 0), at(10, 30), at(11, 0), at(12, 0)}
	res := Analyze(observed, 0)
	if res.IntervalMinutes != 30 {
		t.Errorf("IntervalMinutes = %d, want 30", res.IntervalMinutes)
	}
	if len(res.Missing) != 1 || !res.Missing[0].Equal(at(11, 30)) {
		t.Errorf("Missing = %v, want [11:30]", res.Missing)
	}
}

func TestAnalyzeLadderShape(t *testing.T) {
	observed := []time.Time{at(10, 0), at(11, 0)}
	res := Analyze(observed, 30)

	if len(res.Days) != 1 {
		t.Fatalf("Days = %d, want 1", len(res.Days))
	}
	day := res.Days[0]
	if day.Date != "2023-10-02" {
		t.Errorf("Date = %q", day.Date)
	}
	if len(day.Slots) != 48 {
		t.Fatalf("Slots = %d, want 48 for a 30-minute ladder", len(day.Slots))
	}
	if day.Slots[0].Label != "00:00" || day.Slots[47].Label != "23:30" {
		t.Errorf("ladder bounds: first %q last %q", day.Slots[0].Label, day.Slots[47].Label)
	}
	for i := 1; i < len(day.Slots); i++ {
		if !day.Slots[i].At.After(day.Slots[i-1].At) {
			t.Fatalf("slots out of order at %d", i)
		}
	}

	// Slots outside the observed span are absent in the ladder but not
	// reported missing.
	if day.Slots[0].Present {
		t.Error("00:00 should be absent")
	}
	if len(res.Missing) != 1 || !res.Missing[0].Equal(at(10, 30)) {
		t.Errorf("Missing = %v, want [10:30]", res.Missing)
	}
}

func TestAnalyzeSingleObservation(t *testing.T) {
	res := Analyze([]time.Time{at(10, 0)}, 30)
	if len(res.Missing) != 0 {
		t.Errorf("single observation produced missing slots: %v", res.Missing)
	}
	if len(res.Days) != 1 {
		t.Errorf("Days = %d, want 1", len(res.Days))
	}
}

func TestAnalyzeDuplicatesCollapse(t *testing.T) {
	observed := []time.Time{at(10, 0), at(10, 0), at(10, 30), at(11, 0)}
	res := Analyze(observed, 30)
	if len(res.Missing) != 0 {
		t.Errorf("Missing = %v, want none", res.Missing)
	}
}

func TestAnalyzeDaysIndependent(t *testing.T) {
	// Observations straddling midnight: each day gets its own full ladder
	// and no slot carries across the boundary.
	evening := time.Date(2023, 10, 2, 23, 0, 0, 0, time.UTC)
	morning := time.Date(2023, 10, 3, 1, 0, 0, 0, time.UTC)
	res := Analyze([]time.Time{evening, morning}, 30)

	if len(res.Days) != 2 {
		t.Fatalf("Days = %d, want 2", len(res.Days))
	}
	for _, d := range res.Days {
		if len(d.Slots) != 48 {
			t.Errorf("day %s has %d slots, want 48", d.Date, len(d.Slots))
		}
	}
	// 23:30, 00:00, 00:30 are inside the span and unobserved.
	if len(res.Missing) != 3 {
		t.Errorf("Missing = %v, want 3 slots", res.Missing)
	}
}

func TestAnalyzeRangeExtendsSpan(t *testing.T) {
	// Observed only 10:00 and 11:30, but the caller asked for 10:00-12:00:
	// slots after the last observation up to the requested end are missing
	// too.
	observed := []time.Time{at(10, 0), at(11, 30)}
	res := AnalyzeRange(observed, 30, at(10, 0), at(12, 0))

	want := []time.Time{at(10, 30), at(11, 0), at(12, 0)}
	if len(res.Missing) != len(want) {
		t.Fatalf("Missing = %v, want %v", res.Missing, want)
	}
	for i := range want {
		if !res.Missing[i].Equal(want[i]) {
			t.Errorf("Missing[%d] = %v, want %v", i, res.Missing[i], want[i])
		}
	}
}

func TestAnalyzeRangeSingleObservation(t *testing.T) {
	// An explicit range provides the comparison window a lone observation
	// otherwise lacks.
	res := AnalyzeRange([]time.Time{at(10, 0)}, 30, at(10, 0), at(11, 0))
	want := []time.Time{at(10, 30), at(11, 0)}
	if len(res.Missing) != len(want) {
		t.Fatalf("Missing = %v, want %v", res.Missing, want)
	}
}

func TestAnalyzeRangeEmptyArchive(t *testing.T) {
	// A fully bounded request against an empty archive: every slot in the
	// window is missing.
	res := AnalyzeRange(nil, 30, at(10, 0), at(11, 0))
	if len(res.Missing) != 3 {
		t.Errorf("Missing = %v, want 3 slots", res.Missing)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	res := Analyze(nil, 0)
	if res.IntervalMinutes != schedule.DefaultIntervalMinutes {
		t.Errorf("IntervalMinutes = %d, want default", res.IntervalMinutes)
	}
	if len(res.Days) != 0 || len(res.Missing) != 0 {
		t.Errorf("empty input produced output: %+v", res)
	}
}
