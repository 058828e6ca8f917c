package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/rewind-gg/rewind/internal/config"
)

// Supported backend names.
const (
	BackendS3 = "s3"
	BackendFS = "fs"
)

// Config selects and parameterizes a blob backend.
type Config struct {
	// Backend is "s3" or "fs".
	Backend string

	// Bucket is the S3 bucket name. Required for the s3 backend.
	Bucket string

	// Endpoint optionally overrides the S3 endpoint (MinIO, localstack).
	Endpoint string

	// FSRoot is the root directory for the fs backend.
	FSRoot string
}

// LoadConfig loads blob storage configuration from environment variables
// with fallback to defaults. The default backend is the local filesystem so
// a bare checkout works without cloud credentials.
func LoadConfig() *Config {
	return &Config{
		Backend:  config.GetEnvStr("BLOB_BACKEND", BackendFS),
		Bucket:   config.GetEnvStr("S3_BUCKET", ""),
		Endpoint: config.GetEnvStr("S3_ENDPOINT", ""),
		FSRoot:   config.GetEnvStr("BLOB_FS_ROOT", "./data/blobs"),
	}
}

// Validate checks that the selected backend is fully parameterized.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendS3:
		if c.Bucket == "" {
			return errors.New("S3_BUCKET is required for the s3 blob backend")
		}
	case BackendFS:
		if c.FSRoot == "" {
			return errors.New("BLOB_FS_ROOT is required for the fs blob backend")
		}
	default:
		return fmt.Errorf("unknown blob backend %q (expected %q or %q)", c.Backend, BackendS3, BackendFS)
	}

	return nil
}

// BuildStore constructs the configured backend.
func BuildStore(ctx context.Context, cfg *Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendS3:
		return NewS3Store(ctx, cfg.Bucket, cfg.Endpoint)
	default:
		return NewFSStore(cfg.FSRoot)
	}
}
