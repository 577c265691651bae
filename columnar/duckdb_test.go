package columnar

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/iAL-2/fed-soma-pipeline/logging"
)

func TestDuckDBEngineExport(t *testing.T) {
	engine := NewDuckDBEngine("snappy", logging.NewComponentLogger("test"))
	if !engine.Available() {
		t.Skip("duckdb driver unavailable in this environment")
	}

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "weekly.csv")
	parquetPath := filepath.Join(dir, "weekly.parquet")

	csv := "as_of_date,total,mbs\n2024-06-05,100.5,40\n2024-06-12,200,80.25\n"
	if err := os.WriteFile(csvPath, []byte(csv), 0644); err != nil {
		t.Fatalf("failed to write csv: %v", err)
	}

	if err := engine.Export(context.Background(), csvPath, parquetPath); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	checkParquetFile(t, parquetPath)
}

func TestDuckDBEngineUnknownCompressionFallsBack(t *testing.T) {
	engine := NewDuckDBEngine("bogus", logging.NewComponentLogger("test"))
	if engine.compression != "snappy" {
		t.Errorf("expected snappy fallback, got %s", engine.compression)
	}

	engine = NewDuckDBEngine("none", logging.NewComponentLogger("test"))
	if engine.compression != "uncompressed" {
		t.Errorf("expected uncompressed, got %s", engine.compression)
	}
}

func TestQuoteLiteral(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"data/weekly.csv", "'data/weekly.csv'"},
		{"it's.csv", "'it''s.csv'"},
	}
	for _, tc := range cases {
		if got := quoteLiteral(tc.in); got != tc.want {
			t.Errorf("quoteLiteral(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
