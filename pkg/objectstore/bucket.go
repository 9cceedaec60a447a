// Package objectstore reads and writes whole objects in a bucket. Drivers
// exist for Amazon S3, Google Cloud Storage, a local directory and memory.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/config"
)

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Bucket is the subset of object storage the catalog needs.
type Bucket interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	// Name identifies the bucket in logs, e.g. "s3://catalog/prod".
	Name() string
	Close() error
}

// Open builds the driver selected by cfg.Driver.
func Open(ctx context.Context, cfg config.SourceConfig) (Bucket, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3(ctx, S3Config{
			Bucket:   cfg.Bucket,
			Prefix:   cfg.Prefix,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
		})
	case "gcs":
		return NewGCS(ctx, cfg.Bucket, cfg.Prefix, cfg.CredentialsFile)
	case "fs":
		return NewDir(cfg.Dir)
	case "memory":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown object store driver %q", cfg.Driver)
}

// joinKey prefixes key, tolerating prefixes with or without a trailing slash.
func joinKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}
