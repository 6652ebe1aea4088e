package runner

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement-worker/internal/domain"
)

func TestBuildManifest_SumsPartTotals(t *testing.T) {
	t.Parallel()

	parts := []domain.Part{
		{Index: 0, Path: "results/job-1/part_0000.parquet", RowCount: 10000, ApproxSizeBytes: 4096},
		{Index: 1, Path: "results/job-1/part_0001.parquet", RowCount: 10000, ApproxSizeBytes: 4096},
		{Index: 2, Path: "results/job-1/part_0002.parquet", RowCount: 5000, ApproxSizeBytes: 2048},
	}
	columns := []domain.Column{{Name: "id", Type: "int64"}}

	m := BuildManifest(parts, columns)

	assert.Equal(t, 3, m.TotalParts)
	assert.Equal(t, int64(25000), m.TotalRows)
	assert.Equal(t, int64(10240), m.TotalSizeEstimate)
	assert.Equal(t, "zstd", m.Compression)
	assert.Equal(t, 3, m.CompressionLevel)
	assert.False(t, m.WriteStatistics)
	assert.Equal(t, columns, m.Columns)
	assert.False(t, m.CreatedAt.IsZero())
}

func TestBuildManifest_ZeroPartsYieldsEmptyList(t *testing.T) {
	t.Parallel()

	m := BuildManifest(nil, nil)
	assert.Equal(t, 0, m.TotalParts)
	assert.Equal(t, int64(0), m.TotalRows)

	data, err := EncodeManifest(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"parts":[]`)
	assert.Contains(t, string(data), `"columns":[]`)
}

func TestEncodeManifest_WireSchema(t *testing.T) {
	t.Parallel()

	m := BuildManifest(
		[]domain.Part{{Index: 0, Path: "results/job-1/part_0000.parquet", RowCount: 10, ApproxSizeBytes: 512}},
		[]domain.Column{{Name: "id", Type: "int64"}, {Name: "name", Type: "utf8"}},
	)
	data, err := EncodeManifest(m)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{
		"parts", "total_parts", "total_rows", "total_size_estimate",
		"compression", "compression_level", "write_statistics", "columns", "created_at",
	} {
		assert.Contains(t, decoded, key)
	}

	var parts []map[string]any
	require.NoError(t, json.Unmarshal(decoded["parts"], &parts))
	require.Len(t, parts, 1)
	assert.Equal(t, "results/job-1/part_0000.parquet", parts[0]["path"])
	assert.Equal(t, float64(10), parts[0]["rows"])
	assert.Equal(t, float64(512), parts[0]["approx_size"])
	assert.NotContains(t, parts[0], "index", "part index is positional, not serialized")
}
