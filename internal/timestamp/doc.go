// Package timestamp parses and formats the timestamp conventions found in
// GOES imagery archives.
//
// Archives accumulate several naming schemes over time: compact
// YYYYMMDD_HHMMSS names produced by local tooling, ISO-like names from older
// runs, raw GOES object names carrying an _sYYYYDDDHHMMSSt scan-start token,
// and day-of-year directory layouts mirroring the upstream buckets. The codec
// tries each convention in a fixed priority order and the first match wins.
//
// # Usage
//
//	t, err := timestamp.Parse("OR_ABI-L2-CMIPC-M6C13_G16_s20232751531171_e20232751533556_c20232751534046.nc")
//	// t == 2023-10-02 15:31:17 UTC
//
//	name := timestamp.Format(t, timestamp.PatternCompact)
//	// "20231002_153117"
//
// All parsed instants are UTC. Naive local time never enters or leaves this
// package.
package timestamp
