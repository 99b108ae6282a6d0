// Package schedule models GOES scan cadences.
//
// Each product/sector pair scans at a fixed set of minutes within the hour
// (the CONUS sector in mode 6, for example, starts at minutes 1, 6, 11, ...
// 56). The registry is an immutable lookup table built once at startup;
// components receive it by handle and never mutate it.
//
// DetectInterval recovers the dominant sampling interval from noisy
// observed data, which is what reconciliation uses when no interval is
// declared explicitly: archives routinely contain gaps, session boundaries
// and off-grid stragglers, so the estimate is a histogram vote over
// successive differences rather than a mean.
package schedule
