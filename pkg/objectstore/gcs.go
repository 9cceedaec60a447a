package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCSBucket struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS uses application default credentials unless credentialsFile names a
// service account key.
func NewGCS(ctx context.Context, bucket, prefix, credentialsFile string) (*GCSBucket, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating GCS storage client: %w", err)
	}
	return &GCSBucket{client: client, bucket: bucket, prefix: prefix}, nil
}

func (b *GCSBucket) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := b.client.Bucket(b.bucket).Object(joinKey(b.prefix, key)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("gcs get %s: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("gcs get %s: %w", key, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gcs read %s: %w", key, err)
	}
	return data, nil
}

func (b *GCSBucket) Put(ctx context.Context, key string, data []byte) error {
	w := b.client.Bucket(b.bucket).Object(joinKey(b.prefix, key)).NewWriter(ctx)
	w.ContentType = "application/json"
	w.CacheControl = "no-cache, no-store, must-revalidate"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs close writer for %s: %w", key, err)
	}
	return nil
}

func (b *GCSBucket) Name() string {
	return "gs://" + joinKey(b.bucket, b.prefix)
}

func (b *GCSBucket) Close() error {
	return b.client.Close()
}
