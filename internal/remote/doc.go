// Package remote resolves target timestamps to GOES object locators and
// talks to the bucket holding them.
//
// The NOAA archive buckets shape keys as
//
//	ABI-L2-CMIPC/2023/275/15/OR_ABI-L2-CMIPC-M6C13_G16_s20232751501171_e20232751503544_c20232751504032.nc
//
// where the trailing scan-end and creation-time segments cannot be derived
// from a target timestamp. The resolver therefore produces prefix keys by
// default, resolved through a listing, and fully concrete keys on request
// for tests and listing-free stores.
//
// The store is a thin wrapper over gocloud.dev/blob: any bucket a blob
// driver can open (s3://noaa-goes16, file://, mem://) works unchanged.
// Store operations are single attempts; the task pool owns retry policy
// and consults IsTransient for retryability.
package remote
