package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "data_dir: out\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DataDir != "out" {
		t.Errorf("expected data_dir out, got %q", cfg.DataDir)
	}
	if cfg.Source.BaseURL != "https://markets.newyorkfed.org/read" {
		t.Errorf("unexpected default base_url: %q", cfg.Source.BaseURL)
	}
	if cfg.Source.Retries != 3 {
		t.Errorf("expected default retries 3, got %d", cfg.Source.Retries)
	}
	if cfg.Source.Backoff != 1.5 {
		t.Errorf("expected default backoff 1.5, got %g", cfg.Source.Backoff)
	}
	if cfg.Source.Timeout() != 60*time.Second {
		t.Errorf("expected default timeout 60s, got %v", cfg.Source.Timeout())
	}
	if cfg.Schedule.Alignment() != time.Wednesday {
		t.Errorf("expected default weekday wednesday, got %v", cfg.Schedule.Alignment())
	}
	if cfg.Export.Compression != "snappy" {
		t.Errorf("expected default compression snappy, got %q", cfg.Export.Compression)
	}
	if len(cfg.Export.Engines) != 2 || cfg.Export.Engines[0] != "arrow" || cfg.Export.Engines[1] != "duckdb" {
		t.Errorf("unexpected default engines: %v", cfg.Export.Engines)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
data_dir: /var/lib/soma
source:
  base_url: http://localhost:8080/read
  product_code: "31"
  query: detail
  timeout_seconds: 5
  retries: 5
  backoff: 2.0
schedule:
  weekday: thursday
  backfill_start: 2020-01-01
export:
  compression: zstd
  engines: [duckdb]
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Source.BaseURL != "http://localhost:8080/read" {
		t.Errorf("unexpected base_url: %q", cfg.Source.BaseURL)
	}
	if cfg.Source.ProductCode != "31" {
		t.Errorf("unexpected product_code: %q", cfg.Source.ProductCode)
	}
	if cfg.Source.Retries != 5 {
		t.Errorf("unexpected retries: %d", cfg.Source.Retries)
	}
	if cfg.Schedule.Alignment() != time.Thursday {
		t.Errorf("unexpected weekday: %v", cfg.Schedule.Alignment())
	}
	start, err := cfg.Schedule.BackfillStartDate()
	if err != nil {
		t.Fatalf("BackfillStartDate failed: %v", err)
	}
	if start.Format("2006-01-02") != "2020-01-01" {
		t.Errorf("unexpected backfill start: %v", start)
	}
	if cfg.Export.Compression != "zstd" {
		t.Errorf("unexpected compression: %q", cfg.Export.Compression)
	}
	if len(cfg.Export.Engines) != 1 || cfg.Export.Engines[0] != "duckdb" {
		t.Errorf("unexpected engines: %v", cfg.Export.Engines)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("unexpected log level: %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name     string
		contents string
	}{
		{"negative retries", "source:\n  retries: -1\n"},
		{"backoff below one", "source:\n  backoff: 0.5\n"},
		{"negative timeout", "source:\n  timeout_seconds: -10\n"},
		{"unknown weekday", "schedule:\n  weekday: someday\n"},
		{"bad backfill date", "schedule:\n  backfill_start: January 1st\n"},
		{"unknown compression", "export:\n  compression: brotli\n"},
		{"unknown engine", "export:\n  engines: [sqlite]\n"},
		{"unknown log level", "logging:\n  level: shouty\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.contents)
			if _, err := Load(path); err == nil {
				t.Errorf("expected Load to reject %q", tc.contents)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestDefaultMatchesValidation(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config does not validate: %v", err)
	}
}

func TestPathHelpers(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "data"

	if got := cfg.WideCSVPath(); got != filepath.Join("data", "soma_summary_weekly.csv") {
		t.Errorf("unexpected wide CSV path: %q", got)
	}
	if got := cfg.WideParquetPath(); got != filepath.Join("data", "soma_summary_weekly.parquet") {
		t.Errorf("unexpected wide parquet path: %q", got)
	}
	if got := cfg.LongCSVPath(); got != filepath.Join("data", "soma_summary_long.csv") {
		t.Errorf("unexpected long CSV path: %q", got)
	}
	if got := cfg.LongParquetPath(); got != filepath.Join("data", "soma_summary_long.parquet") {
		t.Errorf("unexpected long parquet path: %q", got)
	}
}
