package engine

import (
	"context"
	"database/sql"
	"io"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB returns an in-memory database seeded with a small table.
// SQLite stands in for DuckDB here; both speak database/sql.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE events (id INTEGER, label TEXT, score REAL)`)
	require.NoError(t, err)
	for i := 0; i < 25; i++ {
		_, err = db.Exec(`INSERT INTO events (id, label, score) VALUES (?, ?, ?)`, i, "ev", float64(i)/2)
		require.NoError(t, err)
	}
	return db
}

func TestDuckDBEngine_StreamsBatches(t *testing.T) {
	t.Parallel()

	eng := NewDuckDBEngine(openTestDB(t), 10, nil)
	stream, err := eng.Execute(context.Background(), `SELECT id, label, score FROM events ORDER BY id`)
	require.NoError(t, err)
	defer stream.Close()

	schema := stream.Schema()
	require.Equal(t, 3, schema.NumFields())
	assert.Equal(t, "id", schema.Field(0).Name)
	assert.Equal(t, arrow.PrimitiveTypes.Int64, schema.Field(0).Type)
	assert.Equal(t, arrow.BinaryTypes.String, schema.Field(1).Type)
	assert.Equal(t, arrow.PrimitiveTypes.Float64, schema.Field(2).Type)

	var batchSizes []int64
	var total int64
	for {
		rec, err := stream.Next(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		batchSizes = append(batchSizes, rec.NumRows())
		total += rec.NumRows()
		rec.Release()
	}

	assert.Equal(t, []int64{10, 10, 5}, batchSizes)
	assert.Equal(t, int64(25), total)

	telemetry := stream.Telemetry()
	assert.Equal(t, int64(25), telemetry["rows_read"])
	assert.Equal(t, int64(3), telemetry["batches"])
	assert.Contains(t, telemetry, "elapsed_ms")
}

func TestDuckDBEngine_EmptyResult(t *testing.T) {
	t.Parallel()

	eng := NewDuckDBEngine(openTestDB(t), 0, nil)
	stream, err := eng.Execute(context.Background(), `SELECT id FROM events WHERE id < 0`)
	require.NoError(t, err)
	defer stream.Close()

	_, err = stream.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, int64(0), stream.Telemetry()["rows_read"])
}

func TestDuckDBEngine_InvalidSQL(t *testing.T) {
	t.Parallel()

	eng := NewDuckDBEngine(openTestDB(t), 0, nil)
	_, err := eng.Execute(context.Background(), `SELECT FROM FROM`)
	require.Error(t, err)
}

func TestDuckDBEngine_NullValuesBecomeArrowNulls(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	_, err := db.Exec(`INSERT INTO events (id, label, score) VALUES (NULL, NULL, NULL)`)
	require.NoError(t, err)

	eng := NewDuckDBEngine(db, 100, nil)
	stream, err := eng.Execute(context.Background(), `SELECT id, label, score FROM events WHERE id IS NULL`)
	require.NoError(t, err)
	defer stream.Close()

	rec, err := stream.Next(context.Background())
	require.NoError(t, err)
	defer rec.Release()

	require.Equal(t, int64(1), rec.NumRows())
	assert.True(t, rec.Column(0).(*array.Int64).IsNull(0))
	assert.True(t, rec.Column(1).(*array.String).IsNull(0))
}
