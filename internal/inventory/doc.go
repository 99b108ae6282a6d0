// Package inventory discovers timestamped artifacts in a local archive
// tree.
//
// Trees mix naming conventions: some runs name files with compact
// timestamps, others keep the raw GOES object names, and older archives
// lean on YYYY/DDD directory layouts with opaque filenames inside. The
// scanner tries the filename first and falls back to the enclosing
// directory path, recording which one succeeded.
//
// The walk sits on spf13/afero so tests can scan an in-memory tree.
package inventory
