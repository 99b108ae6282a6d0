package inventory

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/jtn0123/goesfill/internal/timestamp"
)

// Source records which part of an artifact's path carried the timestamp.
type Source int

const (
	ViaFilename Source = iota
	ViaDirectory
)

func (s Source) String() string {
	if s == ViaDirectory {
		return "directory"
	}
	return "filename"
}

// Record is one timestamped artifact discovered in the local tree. Records
// are rebuilt fresh on every scan; nothing is persisted across runs.
type Record struct {
	Timestamp time.Time
	Path      string
	SizeBytes int64
	Via       Source
}

// Scanner walks a local artifact tree and extracts a timestamp per file.
type Scanner struct {
	fs afero.Fs
}

// NewScanner returns a scanner over the given filesystem. Production code
// passes afero.NewOsFs(); tests use an in-memory fs.
func NewScanner(fs afero.Fs) *Scanner {
	return &Scanner{fs: fs}
}

// Check verifies that root exists and is a directory.
func (s *Scanner) Check(root string) error {
	fi, err := s.fs.Stat(root)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("inventory: %s is not a directory", root)
	}
	return nil
}

// Scan walks root and invokes fn for each artifact whose timestamp could be
// recovered. The filename is tried first, then the enclosing directory
// path; files yielding neither are skipped silently, since unrelated files
// routinely coexist in the tree. The walk is read-only and restartable: a
// second call re-walks from scratch.
//
// A non-nil error from fn aborts the walk and is returned.
func (s *Scanner) Scan(root string, fn func(Record) error) error {
	if _, err := s.fs.Stat(root); err != nil {
		return err
	}

	return afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rec := Record{Path: path, SizeBytes: info.Size()}

		ts, perr := timestamp.Parse(info.Name())
		if perr == nil {
			rec.Via = ViaFilename
		} else {
			ts, perr = parseDirectory(path)
			if perr != nil {
				return nil // no timestamp anywhere, not our file
			}
			rec.Via = ViaDirectory
		}

		rec.Timestamp = ts
		return fn(rec)
	})
}

// Collect runs Scan and gathers the records into a slice.
func (s *Scanner) Collect(root string) ([]Record, error) {
	var records []Record
	err := s.Scan(root, func(r Record) error {
		records = append(records, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// parseDirectory tries the enclosing directory name, then the last two
// path components joined, which covers the YYYY/DDD bucket layout.
func parseDirectory(path string) (time.Time, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(dir)

	ts, err := timestamp.Parse(base)
	if err == nil {
		return ts, nil
	}

	parent := filepath.Base(filepath.Dir(dir))
	return timestamp.Parse(parent + "/" + base)
}
