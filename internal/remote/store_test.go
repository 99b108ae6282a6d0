package remote

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"
)

func memStore(t *testing.T, objects map[string][]byte) (*Store, *blob.Bucket) {
	t.Helper()
	ctx := context.Background()
	bucket, err := blob.OpenBucket(ctx, "mem://")
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	t.Cleanup(func() { bucket.Close() })
	for key, data := range objects {
		if err := bucket.WriteAll(ctx, key, data, nil); err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
	}
	return NewStore(bucket), bucket
}

func TestListPrefix(t *testing.T) {
	store, _ := memStore(t, map[string][]byte{
		"ABI-L2-CMIPC/2023/275/15/OR_a_s20232751501171.nc": make([]byte, 10),
		"ABI-L2-CMIPC/2023/275/15/OR_a_s20232751506171.nc": make([]byte, 20),
		"ABI-L2-CMIPC/2023/275/16/OR_a_s20232751601171.nc": make([]byte, 30),
	})

	objects, err := store.List(context.Background(), "ABI-L2-CMIPC/2023/275/15/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("objects = %d, want 2", len(objects))
	}
	if objects[0].Size != 10 || objects[1].Size != 20 {
		t.Errorf("sizes = %d, %d", objects[0].Size, objects[1].Size)
	}
}

func TestListEmptyPrefix(t *testing.T) {
	store, _ := memStore(t, nil)
	objects, err := store.List(context.Background(), "nothing/here/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(objects) != 0 {
		t.Errorf("objects = %v, want none", objects)
	}
}

func TestDownload(t *testing.T) {
	data := []byte("netcdf payload")
	store, _ := memStore(t, map[string][]byte{"k/object.nc": data})

	dest := filepath.Join(t.TempDir(), "nested", "object.nc")
	n, err := store.Download(context.Background(), "k/object.nc", dest)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if n != int64(len(data)) {
		t.Errorf("written = %d, want %d", n, len(data))
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("content mismatch: %q", got)
	}
}

func TestDownloadNotFound(t *testing.T) {
	store, _ := memStore(t, nil)
	_, err := store.Download(context.Background(), "missing.nc", filepath.Join(t.TempDir(), "out"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if IsTransient(err) {
		t.Error("not-found must not be retried")
	}
}

func TestDownloadCancelled(t *testing.T) {
	store, _ := memStore(t, map[string][]byte{"k": make([]byte, 64)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.Download(ctx, "k", filepath.Join(t.TempDir(), "out"))
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if IsTransient(err) {
		t.Error("cancellation must not be retried")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrNotFound, false},
		{ErrForbidden, false},
		{ErrThrottled, true},
		{ErrServer, true},
		{context.Canceled, false},
		{context.DeadlineExceeded, false},
		{errors.New("weird"), false},
	}
	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
