package timestamp

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// PatternKind identifies one of the textual timestamp conventions the codec
// understands.
type PatternKind int

const (
	// PatternCompact is YYYYMMDD_HHMMSS, e.g. "20231002_153000".
	// This is the canonical pattern: Format then Parse round-trips exactly.
	PatternCompact PatternKind = iota

	// PatternISO is YYYY-MM-DD_HH-MM-SS, e.g. "2023-10-02_15-30-00".
	PatternISO

	// PatternGOESStart is the scan-start token embedded in GOES object
	// names, e.g. "s20232751530211" (year, day-of-year, HHMMSS, tenths).
	PatternGOESStart

	// PatternDOYPath is YYYY/DDD, e.g. "2023/275".
	PatternDOYPath

	// PatternDOYCompact is YYYYDDD, e.g. "2023275".
	PatternDOYCompact
)

// ParseError reports text that could not be parsed as a timestamp.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("timestamp: cannot parse %q: %s", e.Input, e.Reason)
}

// Matchers are tried in declaration order; the first one whose pattern
// matches wins, even if a later one would also match.
var matchers = []struct {
	kind PatternKind
	re   *regexp.Regexp
}{
	{PatternGOESStart, regexp.MustCompile(`_s(\d{4})(\d{3})(\d{2})(\d{2})(\d{2})\d`)},
	{PatternCompact, regexp.MustCompile(`(\d{4})(\d{2})(\d{2})[_-](\d{2})(\d{2})(\d{2})`)},
	{PatternISO, regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})[_T](\d{2})-(\d{2})-(\d{2})`)},
	{PatternDOYPath, regexp.MustCompile(`^(\d{4})/(\d{3})$`)},
	{PatternDOYCompact, regexp.MustCompile(`^(\d{4})(\d{3})$`)},
}

// Parse extracts a UTC timestamp from text using the first matching
// convention. The text may contain surrounding noise (satellite prefixes,
// band labels, file extensions); only day-of-year forms are anchored.
func Parse(text string) (time.Time, error) {
	for _, m := range matchers {
		groups := m.re.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		t, err := build(m.kind, groups, text)
		if err != nil {
			return time.Time{}, err
		}
		return t, nil
	}
	return time.Time{}, &ParseError{Input: text, Reason: "no known pattern matches"}
}

// ParseKind parses text against a single convention instead of the full
// matcher chain.
func ParseKind(text string, kind PatternKind) (time.Time, error) {
	for _, m := range matchers {
		if m.kind != kind {
			continue
		}
		groups := m.re.FindStringSubmatch(text)
		if groups == nil {
			return time.Time{}, &ParseError{Input: text, Reason: "pattern does not match"}
		}
		return build(kind, groups, text)
	}
	return time.Time{}, &ParseError{Input: text, Reason: "unknown pattern kind"}
}

func build(kind PatternKind, groups []string, input string) (time.Time, error) {
	n := func(i int) int {
		v, _ := strconv.Atoi(groups[i])
		return v
	}

	switch kind {
	case PatternGOESStart, PatternDOYPath, PatternDOYCompact:
		year, doy := n(1), n(2)
		max := 365
		if isLeap(year) {
			max = 366
		}
		if doy < 1 || doy > max {
			return time.Time{}, &ParseError{Input: input, Reason: fmt.Sprintf("day-of-year %d out of range", doy)}
		}
		t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1)
		if kind == PatternGOESStart {
			hh, mm, ss := n(3), n(4), n(5)
			if hh > 23 || mm > 59 || ss > 59 {
				return time.Time{}, &ParseError{Input: input, Reason: "time component out of range"}
			}
			t = t.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute + time.Duration(ss)*time.Second)
		}
		return t, nil

	case PatternCompact, PatternISO:
		year, month, day := n(1), n(2), n(3)
		hh, mm, ss := n(4), n(5), n(6)
		if month < 1 || month > 12 {
			return time.Time{}, &ParseError{Input: input, Reason: fmt.Sprintf("month %d out of range", month)}
		}
		if hh > 23 || mm > 59 || ss > 59 {
			return time.Time{}, &ParseError{Input: input, Reason: "time component out of range"}
		}
		t := time.Date(year, time.Month(month), day, hh, mm, ss, 0, time.UTC)
		// time.Date normalizes out-of-range days (Feb 30 becomes Mar 2);
		// reject anything that did not survive unchanged.
		if t.Day() != day || t.Month() != time.Month(month) {
			return time.Time{}, &ParseError{Input: input, Reason: fmt.Sprintf("day %d out of range", day)}
		}
		return t, nil
	}

	return time.Time{}, &ParseError{Input: input, Reason: "unknown pattern kind"}
}

// Format renders t in the given convention. The zero tenths digit is used
// for PatternGOESStart; callers needing a different sub-second digit build
// the token themselves.
func Format(t time.Time, kind PatternKind) string {
	t = t.UTC()
	switch kind {
	case PatternCompact:
		return t.Format("20060102_150405")
	case PatternISO:
		return t.Format("2006-01-02_15-04-05")
	case PatternGOESStart:
		return fmt.Sprintf("s%04d%03d%02d%02d%02d0", t.Year(), t.YearDay(), t.Hour(), t.Minute(), t.Second())
	case PatternDOYPath:
		return fmt.Sprintf("%04d/%03d", t.Year(), t.YearDay())
	case PatternDOYCompact:
		return fmt.Sprintf("%04d%03d", t.Year(), t.YearDay())
	}
	return ""
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
