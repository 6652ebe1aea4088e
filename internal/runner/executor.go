package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"statement-worker/internal/domain"
)

// Executor drives one statement job end to end: ledger fetch, engine
// execution, part materialization, manifest write, ledger finalization.
// It owns the QUEUED -> EXECUTING -> {COMPLETED | FAILED} state machine.
//
// Executions of distinct jobs may run concurrently; each call owns its own
// accumulator and touches only its own job's ledger record. Nothing here
// guards against two callers executing the same handle at once.
type Executor struct {
	ledger         domain.Ledger
	engine         domain.QueryEngine
	store          domain.ObjectStore
	bucket         string
	flushThreshold int64
	logger         *slog.Logger
}

// NewExecutor wires an executor from its collaborators. A non-positive
// flushThreshold falls back to DefaultFlushThreshold.
func NewExecutor(ledger domain.Ledger, engine domain.QueryEngine, store domain.ObjectStore, bucket string, flushThreshold int64, logger *slog.Logger) *Executor {
	if flushThreshold <= 0 {
		flushThreshold = DefaultFlushThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		ledger:         ledger,
		engine:         engine,
		store:          store,
		bucket:         bucket,
		flushThreshold: flushThreshold,
		logger:         logger.With("component", "executor"),
	}
}

// PartPath returns the object path for one indexed result part.
func PartPath(bucket, handle string, index int) string {
	return fmt.Sprintf("%s/%s/part_%04d.parquet", bucket, handle, index)
}

// ManifestPath returns the object path for a job's manifest document.
func ManifestPath(bucket, handle string) string {
	return bucket + "/" + handle + "/manifest.json"
}

// Execute runs the job identified by handle through the full pipeline.
//
// An unknown handle returns a NotFoundError without touching the ledger.
// A job with no SQL text is marked FAILED and Execute returns nil; callers
// learn about it from the ledger record, not from an error. Every other
// failure marks the job FAILED with the stringified cause and returns the
// original error. Parts written before a failure stay in the store.
func (e *Executor) Execute(ctx context.Context, handle string) error {
	job, err := e.ledger.GetJob(ctx, handle)
	if err != nil {
		return err
	}

	if strings.TrimSpace(job.SQLText) == "" {
		e.logger.Warn("job has no sql text", "handle", handle)
		invalid := domain.ErrInvalidJob("missing sqlText")
		if err := e.ledger.UpdateJob(ctx, handle, domain.FailureUpdate(invalid.Error(), time.Now().UTC())); err != nil {
			return domain.ErrLedger(err, "mark job %s failed", handle)
		}
		return nil
	}

	if err := e.run(ctx, job); err != nil {
		e.markFailed(ctx, handle, err)
		return err
	}
	return nil
}

// run performs the EXECUTING portion of the pipeline and returns the first
// failure. The caller owns the FAILED transition.
func (e *Executor) run(ctx context.Context, job *domain.Job) error {
	handle := job.Handle
	started := time.Now().UTC()
	executing := domain.JobStatusExecuting
	if err := e.ledger.UpdateJob(ctx, handle, domain.JobUpdate{Status: &executing, StartedAt: &started}); err != nil {
		return domain.ErrLedger(err, "mark job %s executing", handle)
	}
	e.logger.Info("executing statement", "handle", handle)

	stream, err := e.engine.Execute(ctx, job.SQLText)
	if err != nil {
		return domain.ErrEngine(err, "execute statement for job %s", handle)
	}
	defer stream.Close()

	acc := NewBatchAccumulator(e.flushThreshold)
	schema := stream.Schema()
	var parts []domain.Part
	for {
		rec, err := stream.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.ErrEngine(err, "read result batch for job %s", handle)
		}
		unit := acc.Append(rec)
		rec.Release()
		if unit == nil {
			continue
		}
		part, err := e.writePart(ctx, handle, len(parts), schema, unit)
		if err != nil {
			return err
		}
		parts = append(parts, part)
	}
	if unit := acc.Drain(); unit != nil {
		part, err := e.writePart(ctx, handle, len(parts), schema, unit)
		if err != nil {
			return err
		}
		parts = append(parts, part)
	}

	manifest := BuildManifest(parts, columnsFromSchema(schema))
	manifestBytes, err := EncodeManifest(manifest)
	if err != nil {
		return domain.ErrWrite(err, "encode manifest for job %s", handle)
	}
	manifestPath := ManifestPath(e.bucket, handle)
	if err := e.store.WriteBytes(ctx, manifestPath, manifestBytes); err != nil {
		return domain.ErrWrite(err, "write manifest for job %s", handle)
	}

	finished := time.Now().UTC()
	completed := domain.JobStatusCompleted
	update := domain.JobUpdate{
		Status:             &completed,
		TotalRows:          &manifest.TotalRows,
		Columns:            manifest.Columns,
		TotalSizeEstimate:  &manifest.TotalSizeEstimate,
		ResultManifestPath: &manifestPath,
		Telemetry:          stream.Telemetry(),
		FinishedAt:         &finished,
	}
	if err := e.ledger.UpdateJob(ctx, handle, update); err != nil {
		return domain.ErrLedger(err, "mark job %s completed", handle)
	}

	e.logger.Info("statement completed",
		"handle", handle,
		"parts", manifest.TotalParts,
		"rows", manifest.TotalRows,
		"size_estimate", manifest.TotalSizeEstimate,
		"duration_ms", finished.Sub(started).Milliseconds())
	return nil
}

// writePart encodes one flush unit and persists it as the part at index.
// The unit's memory is released once the write acknowledges, either way.
func (e *Executor) writePart(ctx context.Context, handle string, index int, schema *arrow.Schema, unit *FlushUnit) (domain.Part, error) {
	defer unit.Release()

	data, err := EncodePart(schema, *unit)
	if err != nil {
		return domain.Part{}, domain.ErrWrite(err, "encode part %d for job %s", index, handle)
	}
	path := PartPath(e.bucket, handle, index)
	if err := e.store.WriteBytes(ctx, path, data); err != nil {
		return domain.Part{}, domain.ErrWrite(err, "write part %d for job %s", index, handle)
	}
	e.logger.Debug("part written", "handle", handle, "path", path, "rows", unit.RowCount, "size_estimate", unit.ApproxSizeBytes)
	return domain.Part{
		Index:           index,
		Path:            path,
		RowCount:        unit.RowCount,
		ApproxSizeBytes: unit.ApproxSizeBytes,
	}, nil
}

// markFailed persists the FAILED status with the stringified cause. A ledger
// failure here is logged and swallowed so it cannot mask the original error.
func (e *Executor) markFailed(ctx context.Context, handle string, cause error) {
	if err := e.ledger.UpdateJob(ctx, handle, domain.FailureUpdate(cause.Error(), time.Now().UTC())); err != nil {
		e.logger.Error("could not persist failed status", "handle", handle, "error", err, "cause", cause.Error())
	}
}

// columnsFromSchema projects the arrow schema into the manifest column list.
func columnsFromSchema(schema *arrow.Schema) []domain.Column {
	if schema == nil {
		return []domain.Column{}
	}
	cols := make([]domain.Column, 0, schema.NumFields())
	for _, f := range schema.Fields() {
		cols = append(cols, domain.Column{Name: f.Name, Type: f.Type.String()})
	}
	return cols
}
