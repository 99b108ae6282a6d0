//go:build integration

// Package testutils provides shared test infrastructure for integration tests.
package testutils

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gocloud.dev/blob"
)

// MinioEnv contains connection information for a Minio test environment.
type MinioEnv struct {
	Container testcontainers.Container
	BucketURL string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Close terminates the Minio container.
func (e *MinioEnv) Close(ctx context.Context) error {
	if e.Container != nil {
		return e.Container.Terminate(ctx)
	}
	return nil
}

// OpenBucket opens a gocloud bucket connection to the Minio environment.
func (e *MinioEnv) OpenBucket(ctx context.Context) (*blob.Bucket, error) {
	return blob.OpenBucket(ctx, e.BucketURL)
}

// SeedObjects writes the given objects into the Minio bucket. Keys are
// expected to be full archive keys, e.g.
// "ABI-L2-CMIPF/2023/275/10/OR_ABI-L2-CMIPF-M6C13_G16_s20232751030205_e..._c....nc".
func (e *MinioEnv) SeedObjects(t *testing.T, ctx context.Context, objects map[string][]byte) {
	t.Helper()

	bucket, err := e.OpenBucket(ctx)
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	defer bucket.Close()

	for key, data := range objects {
		if err := bucket.WriteAll(ctx, key, data, nil); err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
	}
}

// ScanKey builds an archive object key for a scan start time, shaped the
// way the NOAA buckets shape them.
func ScanKey(product, token, designator string, ts time.Time, band, startSecond int) string {
	return fmt.Sprintf("%s/%04d/%03d/%02d/OR_%s-M6C%02d_%s_s%04d%03d%02d%02d%02d0_e0_c0.nc",
		product, ts.Year(), ts.YearDay(), ts.Hour(),
		token, band, designator,
		ts.Year(), ts.YearDay(), ts.Hour(), ts.Minute(), startSecond)
}

// StartMinioContainer starts a Minio container with a pre-created bucket.
// Returns a MinioEnv with connection information.
func StartMinioContainer(t *testing.T, ctx context.Context, bucketName string) *MinioEnv {
	t.Helper()

	const (
		accessKey = "minioadmin"
		secretKey = "minioadmin"
	)

	// Create a network for minio and mc to communicate
	networkName := fmt.Sprintf("minio-test-net-%d", time.Now().UnixNano())
	network, err := testcontainers.GenericNetwork(ctx, testcontainers.GenericNetworkRequest{
		NetworkRequest: testcontainers.NetworkRequest{
			Name: networkName,
		},
	})
	if err != nil {
		t.Fatalf("create network: %v", err)
	}
	t.Cleanup(func() { network.Remove(ctx) })

	minioReq := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Networks:     []string{networkName},
		NetworkAliases: map[string][]string{
			networkName: {"minio"},
		},
		Env: map[string]string{
			"MINIO_ROOT_USER":     accessKey,
			"MINIO_ROOT_PASSWORD": secretKey,
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/ready").WithPort("9000"),
	}

	minioContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: minioReq,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start minio container: %v", err)
	}

	createBucketWithMC(t, ctx, networkName, accessKey, secretKey, bucketName)

	host, err := minioContainer.Host(ctx)
	if err != nil {
		t.Fatalf("get container host: %v", err)
	}

	port, err := minioContainer.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("get container port: %v", err)
	}

	endpoint := fmt.Sprintf("%s:%s", host, port.Port())

	// Build gocloud S3 URL with query parameters for minio
	bucketURL := fmt.Sprintf("s3://%s?endpoint=http://%s&use_path_style=true&disable_https=true&region=us-east-1",
		bucketName,
		endpoint,
	)

	// Set AWS credentials via environment variables (gocloud reads these)
	t.Setenv("AWS_ACCESS_KEY_ID", accessKey)
	t.Setenv("AWS_SECRET_ACCESS_KEY", secretKey)

	return &MinioEnv{
		Container: minioContainer,
		BucketURL: bucketURL,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
	}
}

// createBucketWithMC creates a bucket using a separate minio/mc container.
func createBucketWithMC(t *testing.T, ctx context.Context, networkName, accessKey, secretKey, bucketName string) {
	t.Helper()

	// mc container runs, creates the bucket, then exits
	mcReq := testcontainers.ContainerRequest{
		Image:      "minio/mc:latest",
		Networks:   []string{networkName},
		Entrypoint: []string{"/bin/sh", "-c"},
		Cmd: []string{
			fmt.Sprintf(
				"/usr/bin/mc config host add myminio http://minio:9000 %s %s && "+
					"/usr/bin/mc mb myminio/%s && "+
					"/usr/bin/mc policy set download myminio/%s; "+
					"exit 0",
				accessKey, secretKey, bucketName, bucketName,
			),
		},
		WaitingFor: wait.ForExit(),
	}

	mcContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: mcReq,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mc container: %v", err)
	}
	defer mcContainer.Terminate(ctx)
}
