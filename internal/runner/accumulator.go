// Package runner implements the statement execution and result
// materialization pipeline: it buffers engine row-batches into byte-budgeted
// flush units, persists each unit as an indexed parquet part, and finalizes
// the job's ledger record with a manifest describing the output set.
package runner

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// DefaultFlushThreshold is the accumulator's default byte budget: large
// enough to amortize per-part overhead, small enough to stay memory-safe.
const DefaultFlushThreshold int64 = 256 << 20 // 256 MiB

// FlushUnit is the concatenation of buffered row-batches that becomes one
// output part. The unit owns its records; Release must be called once the
// part write has been acknowledged, success or failure.
type FlushUnit struct {
	Records         []arrow.Record
	RowCount        int64
	ApproxSizeBytes int64
}

// Release drops the unit's reference to every buffered record.
func (u *FlushUnit) Release() {
	for _, rec := range u.Records {
		rec.Release()
	}
	u.Records = nil
}

// BatchAccumulator buffers row-batches and yields a flush unit whenever the
// estimated in-memory footprint of the buffer reaches the threshold. The
// estimate sums the byte sizes of each batch's underlying column storage
// buffers — not row count and not serialized size — trading precision for
// avoiding a serialization pass per batch. The threshold is a trigger, not a
// hard cap: batches are never split, so a single oversized batch still
// becomes exactly one part.
type BatchAccumulator struct {
	threshold int64
	buffered  []arrow.Record
	rows      int64
	size      int64
}

// NewBatchAccumulator creates an accumulator with the given byte threshold.
// A non-positive threshold falls back to DefaultFlushThreshold.
func NewBatchAccumulator(threshold int64) *BatchAccumulator {
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}
	return &BatchAccumulator{threshold: threshold}
}

// Append adds a batch to the buffer, retaining it, and returns a flush unit
// if the recomputed footprint estimate has reached the threshold. Returns
// nil otherwise.
func (a *BatchAccumulator) Append(rec arrow.Record) *FlushUnit {
	rec.Retain()
	a.buffered = append(a.buffered, rec)
	a.rows += rec.NumRows()
	a.size += recordFootprint(rec)

	if a.size >= a.threshold {
		return a.take()
	}
	return nil
}

// Drain yields one final flush unit covering any remainder, or nil when the
// buffer is empty. Called once after the source sequence is exhausted; a
// remainder that never reached the threshold still becomes exactly one part.
func (a *BatchAccumulator) Drain() *FlushUnit {
	if len(a.buffered) == 0 {
		return nil
	}
	return a.take()
}

// BufferedRows reports the number of rows currently buffered.
func (a *BatchAccumulator) BufferedRows() int64 { return a.rows }

func (a *BatchAccumulator) take() *FlushUnit {
	unit := &FlushUnit{
		Records:         a.buffered,
		RowCount:        a.rows,
		ApproxSizeBytes: a.size,
	}
	a.buffered = nil
	a.rows = 0
	a.size = 0
	return unit
}

// recordFootprint estimates the in-memory size of a record by summing the
// lengths of all column storage buffers, recursing into nested arrays.
func recordFootprint(rec arrow.Record) int64 {
	var total int64
	for _, col := range rec.Columns() {
		total += arrayDataFootprint(col.Data())
	}
	return total
}

func arrayDataFootprint(data arrow.ArrayData) int64 {
	var total int64
	for _, buf := range data.Buffers() {
		if buf != nil {
			total += int64(buf.Len())
		}
	}
	for _, child := range data.Children() {
		total += arrayDataFootprint(child)
	}
	return total
}
