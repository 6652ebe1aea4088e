package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement-worker/internal/config"
)

func TestSplitPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{name: "part path", path: "results/h-1/part_0000.parquet", wantBucket: "results", wantKey: "h-1/part_0000.parquet"},
		{name: "manifest path", path: "results/h-1/manifest.json", wantBucket: "results", wantKey: "h-1/manifest.json"},
		{name: "leading slash", path: "/results/h-1/manifest.json", wantBucket: "results", wantKey: "h-1/manifest.json"},
		{name: "missing key", path: "results", wantErr: true},
		{name: "empty bucket", path: "/onlykeyless", wantErr: true},
		{name: "empty", path: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := splitPath(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestFSStore_WriteBytes(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := NewFSStore(root)

	err := s.WriteBytes(context.Background(), "results/job-1/part_0000.parquet", []byte("payload"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "results", "job-1", "part_0000.parquet"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestFSStore_RejectsBucketlessPath(t *testing.T) {
	t.Parallel()

	s := NewFSStore(t.TempDir())
	err := s.WriteBytes(context.Background(), "orphan.bin", nil)
	require.Error(t, err)
}

func TestNewFromConfig_FS(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{StorageBackend: config.StorageBackendFS, FSRoot: t.TempDir()}
	s, err := NewFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &FSStore{}, s)
}

func TestNewFromConfig_UnknownBackend(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{StorageBackend: "tape"}
	_, err := NewFromConfig(context.Background(), cfg)
	require.Error(t, err)
}

func TestNewS3Store_IncompleteConfig(t *testing.T) {
	t.Parallel()

	_, err := NewS3Store(&config.Config{})
	require.Error(t, err)
}
