package columnar

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"

	"github.com/iAL-2/fed-soma-pipeline/logging"
	"github.com/iAL-2/fed-soma-pipeline/store"
	"github.com/iAL-2/fed-soma-pipeline/transform"
)

// arrowCodecs maps configuration names onto Parquet codecs.
var arrowCodecs = map[string]compress.Compression{
	"none":   compress.Codecs.Uncompressed,
	"snappy": compress.Codecs.Snappy,
	"gzip":   compress.Codecs.Gzip,
	"lz4":    compress.Codecs.Lz4Raw,
	"zstd":   compress.Codecs.Zstd,
}

// ArrowEngine writes Parquet through the pure-Go Arrow implementation.
type ArrowEngine struct {
	codec     compress.Compression
	allocator memory.Allocator
	logger    *logging.ComponentLogger
}

// NewArrowEngine creates a new Arrow-backed export engine.
func NewArrowEngine(compression string, logger *logging.ComponentLogger) *ArrowEngine {
	codec, ok := arrowCodecs[compression]
	if !ok {
		codec = compress.Codecs.Snappy
	}
	return &ArrowEngine{
		codec:     codec,
		allocator: memory.NewGoAllocator(),
		logger:    logger,
	}
}

// Name implements Engine.
func (e *ArrowEngine) Name() string { return "arrow" }

// Available implements Engine. The Arrow writer is pure Go and needs
// nothing beyond the binary itself.
func (e *ArrowEngine) Available() bool { return true }

// Export implements Engine. The schema is derived from the CSV header:
// as_of_date becomes date32, category utf8, every other column float64.
func (e *ArrowEngine) Export(ctx context.Context, csvPath, parquetPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	table, err := store.ReadFile(csvPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", csvPath, err)
	}
	if len(table.Header) == 0 {
		return fmt.Errorf("%s has no header to derive a schema from", csvPath)
	}

	schema := buildSchema(table.Header)
	record := buildRecord(e.allocator, schema, table)
	defer record.Release()

	file, err := os.Create(parquetPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", parquetPath, err)
	}

	props := parquet.NewWriterProperties(
		parquet.WithCompression(e.codec),
		parquet.WithDictionaryDefault(true),
		parquet.WithCreatedBy("fed-soma-pipeline"),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithStoreSchema(),
	)

	writer, err := pqarrow.NewFileWriter(schema, file, props, arrowProps)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to create Parquet writer: %w", err)
	}

	if err := writer.Write(record); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write record: %w", err)
	}

	// Closing the Parquet writer also closes the underlying file.
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close Parquet writer: %w", err)
	}

	e.logger.Info().
		Str("engine", e.Name()).
		Str("path", parquetPath).
		Int("rows", len(table.Rows)).
		Int("schema_fields", len(schema.Fields())).
		Msg("Wrote Parquet mirror")

	return nil
}

// buildSchema derives the Arrow schema from a CSV header.
func buildSchema(header []string) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(header))
	for _, name := range header {
		var dt arrow.DataType
		switch name {
		case store.DateColumn:
			dt = arrow.FixedWidthTypes.Date32
		case transform.CategoryColumn:
			dt = arrow.BinaryTypes.String
		default:
			dt = arrow.PrimitiveTypes.Float64
		}
		fields = append(fields, arrow.Field{Name: name, Type: dt, Nullable: false})
	}
	return arrow.NewSchema(fields, nil)
}

// buildRecord appends every CSV row through typed builders. Cells that
// fail to parse become zero values, matching the lenient load path.
func buildRecord(allocator memory.Allocator, schema *arrow.Schema, table *store.Table) arrow.Record {
	builder := array.NewRecordBuilder(allocator, schema)
	defer builder.Release()

	fields := builder.Fields()
	for _, row := range table.Rows {
		for i, fb := range fields {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			switch b := fb.(type) {
			case *array.Date32Builder:
				if t, err := store.ParseAsOfDate(cell); err == nil {
					b.Append(arrow.Date32FromTime(t))
				} else {
					b.Append(0)
				}
			case *array.StringBuilder:
				b.Append(cell)
			case *array.Float64Builder:
				b.Append(store.LenientFloat(cell))
			}
		}
	}

	return builder.NewRecord()
}
