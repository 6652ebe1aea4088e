// Package engine adapts an embedded DuckDB database to the query engine
// interface, yielding results incrementally as arrow record batches.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"statement-worker/internal/domain"
)

// DefaultBatchRows is the row count per emitted record batch.
const DefaultBatchRows = 10000

// DuckDBEngine executes SQL statements against a *sql.DB (DuckDB in
// production) and exposes results as a lazy, forward-only batch stream.
type DuckDBEngine struct {
	db        *sql.DB
	batchRows int
	logger    *slog.Logger
}

// NewDuckDBEngine creates an engine over the given connection. A
// non-positive batchRows falls back to DefaultBatchRows.
func NewDuckDBEngine(db *sql.DB, batchRows int, logger *slog.Logger) *DuckDBEngine {
	if batchRows <= 0 {
		batchRows = DefaultBatchRows
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DuckDBEngine{db: db, batchRows: batchRows, logger: logger.With("component", "engine")}
}

var _ domain.QueryEngine = (*DuckDBEngine)(nil)

// Execute runs sqlText and returns the result stream. The stream must be
// closed by the caller; its telemetry is valid only after exhaustion.
func (e *DuckDBEngine) Execute(ctx context.Context, sqlText string) (domain.ResultStream, error) {
	started := time.Now()
	rows, err := e.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("execute statement: %w", err)
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("read column types: %w", err)
	}
	return &resultStream{
		rows:      rows,
		schema:    schemaFromColumnTypes(colTypes),
		batchRows: e.batchRows,
		started:   started,
	}, nil
}

// resultStream adapts sql.Rows to the columnar batch contract. Not safe for
// concurrent use; one goroutine drives Next until io.EOF.
type resultStream struct {
	rows      *sql.Rows
	schema    *arrow.Schema
	batchRows int
	started   time.Time

	rowsRead int64
	batches  int64
	done     bool
	elapsed  time.Duration
}

func (s *resultStream) Schema() *arrow.Schema { return s.schema }

// Next assembles the next record batch of up to batchRows rows. It returns
// io.EOF once the underlying cursor is exhausted.
func (s *resultStream) Next(ctx context.Context) (arrow.Record, error) {
	if s.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := array.NewRecordBuilder(memory.DefaultAllocator, s.schema)
	defer b.Release()

	n := 0
	for n < s.batchRows {
		if !s.rows.Next() {
			s.done = true
			s.elapsed = time.Since(s.started)
			if err := s.rows.Err(); err != nil {
				return nil, fmt.Errorf("advance result cursor: %w", err)
			}
			break
		}
		dest := make([]any, s.schema.NumFields())
		for i := range dest {
			dest[i] = new(any)
		}
		if err := s.rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		for i, d := range dest {
			if err := appendValue(b.Field(i), *(d.(*any))); err != nil {
				return nil, fmt.Errorf("column %q: %w", s.schema.Field(i).Name, err)
			}
		}
		n++
	}
	if n == 0 {
		return nil, io.EOF
	}
	s.rowsRead += int64(n)
	s.batches++
	return b.NewRecord(), nil
}

// Telemetry reports engine-side execution statistics. Meaningful only after
// Next has returned io.EOF.
func (s *resultStream) Telemetry() map[string]any {
	elapsed := s.elapsed
	if elapsed == 0 {
		elapsed = time.Since(s.started)
	}
	return map[string]any{
		"rows_read":  s.rowsRead,
		"batches":    s.batches,
		"elapsed_ms": elapsed.Milliseconds(),
	}
}

func (s *resultStream) Close() error {
	s.done = true
	return s.rows.Close()
}

// schemaFromColumnTypes maps driver-reported column types onto arrow fields.
// Unknown types fall back to strings, which every driver value can render.
func schemaFromColumnTypes(colTypes []*sql.ColumnType) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(colTypes))
	for _, ct := range colTypes {
		fields = append(fields, arrow.Field{
			Name:     ct.Name(),
			Type:     arrowTypeForSQL(strings.ToUpper(ct.DatabaseTypeName())),
			Nullable: true,
		})
	}
	return arrow.NewSchema(fields, nil)
}

func arrowTypeForSQL(dataType string) arrow.DataType {
	switch {
	case strings.Contains(dataType, "BIGINT") || strings.Contains(dataType, "HUGEINT"):
		return arrow.PrimitiveTypes.Int64
	case strings.Contains(dataType, "INT"):
		return arrow.PrimitiveTypes.Int64
	case strings.Contains(dataType, "DOUBLE") || strings.Contains(dataType, "FLOAT") ||
		strings.Contains(dataType, "DECIMAL") || strings.Contains(dataType, "NUMERIC") ||
		strings.Contains(dataType, "REAL"):
		return arrow.PrimitiveTypes.Float64
	case strings.Contains(dataType, "BOOL"):
		return arrow.FixedWidthTypes.Boolean
	case strings.Contains(dataType, "TIMESTAMP"):
		return &arrow.TimestampType{Unit: arrow.Microsecond}
	case strings.Contains(dataType, "DATE"):
		return arrow.FixedWidthTypes.Date32
	default:
		return arrow.BinaryTypes.String
	}
}

// appendValue writes one driver value into the field builder, translating
// the driver's native Go representation to the field's arrow type.
func appendValue(fb array.Builder, value any) error {
	if value == nil {
		fb.AppendNull()
		return nil
	}
	switch b := fb.(type) {
	case *array.Int64Builder:
		switch v := value.(type) {
		case int64:
			b.Append(v)
		case int32:
			b.Append(int64(v))
		case int:
			b.Append(int64(v))
		case uint64:
			b.Append(int64(v))
		default:
			return fmt.Errorf("unsupported integer value %T", value)
		}
	case *array.Float64Builder:
		switch v := value.(type) {
		case float64:
			b.Append(v)
		case float32:
			b.Append(float64(v))
		case int64:
			b.Append(float64(v))
		default:
			return fmt.Errorf("unsupported float value %T", value)
		}
	case *array.BooleanBuilder:
		switch v := value.(type) {
		case bool:
			b.Append(v)
		case int64:
			b.Append(v != 0)
		default:
			return fmt.Errorf("unsupported boolean value %T", value)
		}
	case *array.TimestampBuilder:
		v, ok := value.(time.Time)
		if !ok {
			return fmt.Errorf("unsupported timestamp value %T", value)
		}
		ts, err := arrow.TimestampFromTime(v, arrow.Microsecond)
		if err != nil {
			return fmt.Errorf("convert timestamp: %w", err)
		}
		b.Append(ts)
	case *array.Date32Builder:
		v, ok := value.(time.Time)
		if !ok {
			return fmt.Errorf("unsupported date value %T", value)
		}
		b.Append(arrow.Date32FromTime(v))
	case *array.StringBuilder:
		switch v := value.(type) {
		case string:
			b.Append(v)
		case []byte:
			b.Append(string(v))
		default:
			b.Append(fmt.Sprintf("%v", v))
		}
	default:
		return fmt.Errorf("unsupported column builder %T", fb)
	}
	return nil
}
