// Package store implements object-store backends for result parts and
// manifests. All backends share one write primitive: WriteBytes persists an
// opaque payload at a slash-separated path whose leading segment names the
// bucket (or container, or directory for the filesystem backend).
package store

import (
	"context"
	"fmt"
	"strings"

	"statement-worker/internal/config"
	"statement-worker/internal/domain"
)

// NewFromConfig creates the object store selected by cfg.StorageBackend.
func NewFromConfig(ctx context.Context, cfg *config.Config) (domain.ObjectStore, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendFS:
		return NewFSStore(cfg.FSRoot), nil
	case config.StorageBackendS3:
		return NewS3Store(cfg)
	case config.StorageBackendGCS:
		return NewGCSStore(ctx, cfg.GCSKeyFile)
	case config.StorageBackendAzure:
		return NewAzureStore(cfg.AzureAccountName, cfg.AzureAccountKey)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

// splitPath separates the bucket segment from the object key.
func splitPath(path string) (bucket, key string, err error) {
	bucket, key, ok := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid object path %q: want bucket/key", path)
	}
	return bucket, key, nil
}
