package columnar

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/iAL-2/fed-soma-pipeline/logging"
)

// duckdbCodecs maps configuration names onto COPY compression options.
var duckdbCodecs = map[string]string{
	"none":   "uncompressed",
	"snappy": "snappy",
	"gzip":   "gzip",
	"lz4":    "lz4",
	"zstd":   "zstd",
}

// DuckDBEngine runs the export through an in-memory DuckDB instance,
// letting the database infer column types while reading the CSV.
type DuckDBEngine struct {
	compression string
	logger      *logging.ComponentLogger

	probeOnce sync.Once
	probeOK   bool
}

// NewDuckDBEngine creates a new DuckDB-backed export engine.
func NewDuckDBEngine(compression string, logger *logging.ComponentLogger) *DuckDBEngine {
	codec, ok := duckdbCodecs[compression]
	if !ok {
		codec = "snappy"
	}
	return &DuckDBEngine{
		compression: codec,
		logger:      logger,
	}
}

// Name implements Engine.
func (e *DuckDBEngine) Name() string { return "duckdb" }

// Available implements Engine. The driver links a native library, so
// the probe opens and pings an in-memory database once per process.
func (e *DuckDBEngine) Available() bool {
	e.probeOnce.Do(func() {
		db, err := sql.Open("duckdb", "")
		if err != nil {
			e.logger.Debug().Err(err).Msg("DuckDB probe failed to open")
			return
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			e.logger.Debug().Err(err).Msg("DuckDB probe failed to ping")
			return
		}
		e.probeOK = true
	})
	return e.probeOK
}

// Export implements Engine. A single COPY statement reads the CSV and
// rewrites the Parquet file.
func (e *DuckDBEngine) Export(ctx context.Context, csvPath, parquetPath string) error {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("failed to open DuckDB: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	query := fmt.Sprintf(
		"COPY (SELECT * FROM read_csv(%s, header = true)) TO %s (FORMAT PARQUET, COMPRESSION %s)",
		quoteLiteral(csvPath), quoteLiteral(parquetPath), e.compression,
	)
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to copy %s to parquet: %w", csvPath, err)
	}

	e.logger.Info().
		Str("engine", e.Name()).
		Str("path", parquetPath).
		Str("compression", e.compression).
		Msg("Wrote Parquet mirror")

	return nil
}

// quoteLiteral wraps a path as a single-quoted SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
