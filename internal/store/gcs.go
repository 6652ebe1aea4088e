package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"statement-worker/internal/domain"
)

var _ domain.ObjectStore = (*GCSStore)(nil)

// GCSStore writes result objects to Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore creates a store authenticated with a service account key file.
func NewGCSStore(ctx context.Context, keyFilePath string) (*GCSStore, error) {
	if keyFilePath == "" {
		return nil, fmt.Errorf("gcs key file path is required")
	}

	client, err := storage.NewClient(ctx, option.WithAuthCredentialsFile(option.ServiceAccount, keyFilePath))
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

// WriteBytes uploads data to gs://{bucket}/{key}, where the bucket is the
// leading path segment.
func (s *GCSStore) WriteBytes(ctx context.Context, path string, data []byte) error {
	bucket, key, err := splitPath(path)
	if err != nil {
		return err
	}

	w := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %q: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize object %q: %w", path, err)
	}
	return nil
}
