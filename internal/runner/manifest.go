package runner

import (
	"encoding/json"
	"fmt"
	"time"

	"statement-worker/internal/domain"
)

// BuildManifest aggregates the recorded parts into the job's manifest.
// Totals are recomputed by summation rather than trusted from the caller.
// The parts slice is always non-nil so a zero-row job still yields "parts": [].
func BuildManifest(parts []domain.Part, columns []domain.Column) domain.Manifest {
	if parts == nil {
		parts = []domain.Part{}
	}
	if columns == nil {
		columns = []domain.Column{}
	}

	var totalRows, totalSize int64
	for _, p := range parts {
		totalRows += p.RowCount
		totalSize += p.ApproxSizeBytes
	}

	return domain.Manifest{
		Parts:             parts,
		TotalParts:        len(parts),
		TotalRows:         totalRows,
		TotalSizeEstimate: totalSize,
		Compression:       partCompression,
		CompressionLevel:  partCompressionLevel,
		WriteStatistics:   partWriteStatistics,
		Columns:           columns,
		CreatedAt:         time.Now().UTC(),
	}
}

// EncodeManifest renders the manifest as the UTF-8 JSON document persisted
// next to the part files.
func EncodeManifest(m domain.Manifest) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}
