package domain

import "time"

// Part describes one persisted output file. Parts are immutable once written;
// indices are contiguous, zero-based, and zero-padded in the object path.
type Part struct {
	Index           int    `json:"-"`
	Path            string `json:"path"`
	RowCount        int64  `json:"rows"`
	ApproxSizeBytes int64  `json:"approx_size"`
}

// Manifest is the aggregate descriptor of all parts for a job, written once
// per successful execution. The JSON layout is a wire contract; field names
// and order must not change.
type Manifest struct {
	Parts             []Part    `json:"parts"`
	TotalParts        int       `json:"total_parts"`
	TotalRows         int64     `json:"total_rows"`
	TotalSizeEstimate int64     `json:"total_size_estimate"`
	Compression       string    `json:"compression"`
	CompressionLevel  int       `json:"compression_level"`
	WriteStatistics   bool      `json:"write_statistics"`
	Columns           []Column  `json:"columns"`
	CreatedAt         time.Time `json:"created_at"`
}
