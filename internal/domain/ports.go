package domain

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
)

// Ledger is the external record store holding job status and metadata.
// Updates use merge semantics: only fields supplied in the JobUpdate change.
// Implemented by repository.JobRepo.
type Ledger interface {
	GetJob(ctx context.Context, handle string) (*Job, error)
	UpdateJob(ctx context.Context, handle string, update JobUpdate) error
	CreateJob(ctx context.Context, job *Job) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]Job, error)
}

// ResultStream is a finite, forward-only, non-restartable sequence of
// columnar row-batches produced by the query engine. Next returns io.EOF
// once the sequence is exhausted; Telemetry is meaningful only after that.
type ResultStream interface {
	Next(ctx context.Context) (arrow.Record, error)
	Schema() *arrow.Schema
	Telemetry() map[string]any
	Close() error
}

// QueryEngine executes a SQL statement and yields its result stream.
// Implemented by engine.DuckDBEngine.
type QueryEngine interface {
	Execute(ctx context.Context, sqlText string) (ResultStream, error)
}

// ObjectStore persists opaque byte payloads at slash-separated paths whose
// leading segment names the bucket or container.
// Implemented by the store package backends (S3, GCS, Azure, filesystem).
type ObjectStore interface {
	WriteBytes(ctx context.Context, path string, data []byte) error
}
