package runner

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// Encoding settings applied to every result part. Statistics are skipped
// because parts are read back whole, never predicate-pruned.
const (
	partCompression      = "zstd"
	partCompressionLevel = 3
	partWriteStatistics  = false
)

// EncodePart serializes the accumulated records of a flush unit into a
// single parquet file and returns its bytes. The unit's records are not
// released; the caller owns their lifecycle.
func EncodePart(schema *arrow.Schema, unit FlushUnit) ([]byte, error) {
	var buf bytes.Buffer

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Zstd),
		parquet.WithCompressionLevel(partCompressionLevel),
		parquet.WithStats(partWriteStatistics),
		parquet.WithDataPageVersion(parquet.DataPageV2),
	)

	fw, err := pqarrow.NewFileWriter(schema, &buf, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return nil, fmt.Errorf("create parquet writer: %w", err)
	}

	for _, rec := range unit.Records {
		if err := fw.Write(rec); err != nil {
			fw.Close()
			return nil, fmt.Errorf("write record batch: %w", err)
		}
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("finalize parquet file: %w", err)
	}
	return buf.Bytes(), nil
}
