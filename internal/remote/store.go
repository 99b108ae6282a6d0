package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Common errors.
var (
	ErrNotFound  = errors.New("remote: object not found")
	ErrForbidden = errors.New("remote: access forbidden")
	ErrThrottled = errors.New("remote: throttled")
	ErrServer    = errors.New("remote: server error")
)

// copyChunkSize is the unit of transfer; cancellation is observed between
// chunks.
const copyChunkSize = 1 * 1024 * 1024

// Object is one listed remote object.
type Object struct {
	Key  string
	Size int64
}

// Store wraps a blob bucket with the two capabilities reconciliation
// needs: prefix listing and download-to-path. Every operation is a single
// attempt; retry and backoff policy live with the caller (the task pool),
// which also decides retryability via IsTransient.
type Store struct {
	bucket *blob.Bucket
}

// NewStore wraps an open bucket. The caller keeps ownership and closes it.
func NewStore(bucket *blob.Bucket) *Store {
	return &Store{bucket: bucket}
}

// List returns all objects under prefix, walking the store's pagination to
// exhaustion. Order follows the store's listing order (lexicographic for
// the buckets we care about).
func (s *Store) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %q: %w", prefix, classify(err))
		}
		if obj.IsDir {
			continue
		}
		objects = append(objects, Object{Key: obj.Key, Size: obj.Size})
	}
	return objects, nil
}

// Download streams the object at key to destPath, creating parent
// directories as needed. The copy checks ctx between chunks so a
// cancelled download aborts at the next chunk boundary; a partial file may
// remain and is reconciled by the next run's size check.
func (s *Store) Download(ctx context.Context, key, destPath string) (int64, error) {
	reader, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return 0, fmt.Errorf("open %q: %w", key, classify(err))
	}
	defer reader.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, fmt.Errorf("create destination dir: %w", err)
	}
	f, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("create destination: %w", err)
	}
	defer f.Close()

	var written int64
	buf := make([]byte, copyChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, rerr := reader.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return written, fmt.Errorf("write destination: %w", werr)
			}
			written += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return written, fmt.Errorf("read %q: %w", key, classify(rerr))
		}
	}

	if err := f.Sync(); err != nil {
		return written, fmt.Errorf("sync destination: %w", err)
	}
	return written, nil
}

// classify maps driver errors onto the package sentinels so callers can
// test with errors.Is instead of poking at driver types.
func classify(err error) error {
	switch gcerrors.Code(err) {
	case gcerrors.NotFound:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case gcerrors.PermissionDenied:
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	case gcerrors.ResourceExhausted:
		return fmt.Errorf("%w: %v", ErrThrottled, err)
	case gcerrors.Internal, gcerrors.Unknown, gcerrors.DeadlineExceeded:
		return fmt.Errorf("%w: %v", ErrServer, err)
	}
	return err
}

// IsTransient reports whether an operation that failed with err is worth
// retrying. Timeouts, throttling and server-side errors are transient;
// missing objects and permission problems are not, and neither is
// cancellation.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden):
		return false
	case errors.Is(err, ErrThrottled), errors.Is(err, ErrServer):
		return true
	}
	return false
}
