// Package analyze turns an observed timestamp set into per-day presence
// ladders and the list of expected-but-missing capture times.
//
// The grid spacing comes from an explicit override or from
// schedule.DetectInterval. Each calendar day gets an independent ladder of
// expected slots; a slot counts as present only on an exact match, and
// missing slots are reported only inside the observed span.
package analyze
