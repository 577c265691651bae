package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the pipeline
type Config struct {
	DataDir  string         `yaml:"data_dir"`
	Source   SourceConfig   `yaml:"source"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Export   ExportConfig   `yaml:"export"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SourceConfig holds remote endpoint configuration
type SourceConfig struct {
	BaseURL        string  `yaml:"base_url"`
	ProductCode    string  `yaml:"product_code"`
	Query          string  `yaml:"query"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	Retries        int     `yaml:"retries"`
	Backoff        float64 `yaml:"backoff"`
}

// ScheduleConfig holds as-of date alignment configuration
type ScheduleConfig struct {
	// Weekday is the weekday name the published snapshots are as-of.
	Weekday string `yaml:"weekday"`
	// BackfillStart is the default first date considered when
	// bootstrapping a store from scratch, in YYYY-MM-DD form.
	BackfillStart string `yaml:"backfill_start"`
}

// ExportConfig holds columnar mirror configuration
type ExportConfig struct {
	Compression string   `yaml:"compression"`
	Engines     []string `yaml:"engines"`
}

// LoggingConfig holds log output configuration
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var compressionCodecs = map[string]bool{
	"none":   true,
	"snappy": true,
	"gzip":   true,
	"lz4":    true,
	"zstd":   true,
}

var engineNames = map[string]bool{
	"arrow":  true,
	"duckdb": true,
}

var logLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.Source.BaseURL == "" {
		c.Source.BaseURL = "https://markets.newyorkfed.org/read"
	}
	if c.Source.ProductCode == "" {
		c.Source.ProductCode = "30"
	}
	if c.Source.Query == "" {
		c.Source.Query = "summary"
	}
	if c.Source.TimeoutSeconds == 0 {
		c.Source.TimeoutSeconds = 60
	}
	if c.Source.Retries == 0 {
		c.Source.Retries = 3
	}
	if c.Source.Backoff == 0 {
		c.Source.Backoff = 1.5
	}
	if c.Schedule.Weekday == "" {
		c.Schedule.Weekday = "wednesday"
	}
	if c.Schedule.BackfillStart == "" {
		c.Schedule.BackfillStart = "2025-01-01"
	}
	if c.Export.Compression == "" {
		c.Export.Compression = "snappy"
	}
	if len(c.Export.Engines) == 0 {
		c.Export.Engines = []string{"arrow", "duckdb"}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 100
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 3
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Source.Retries < 1 {
		return fmt.Errorf("source.retries must be at least 1, got %d", c.Source.Retries)
	}
	if c.Source.Backoff < 1 {
		return fmt.Errorf("source.backoff must be at least 1, got %g", c.Source.Backoff)
	}
	if c.Source.TimeoutSeconds < 1 {
		return fmt.Errorf("source.timeout_seconds must be at least 1, got %d", c.Source.TimeoutSeconds)
	}
	if _, ok := weekdayNames[strings.ToLower(c.Schedule.Weekday)]; !ok {
		return fmt.Errorf("schedule.weekday %q is not a weekday name", c.Schedule.Weekday)
	}
	if _, err := c.Schedule.BackfillStartDate(); err != nil {
		return fmt.Errorf("schedule.backfill_start: %w", err)
	}
	if !compressionCodecs[strings.ToLower(c.Export.Compression)] {
		return fmt.Errorf("export.compression %q is not one of none, snappy, gzip, lz4, zstd", c.Export.Compression)
	}
	for _, name := range c.Export.Engines {
		if !engineNames[strings.ToLower(name)] {
			return fmt.Errorf("export.engines entry %q is not a known engine", name)
		}
	}
	if !logLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

// Timeout returns the per-attempt request timeout as a time.Duration
func (c *SourceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Alignment returns the configured snapshot weekday.
func (c *ScheduleConfig) Alignment() time.Weekday {
	return weekdayNames[strings.ToLower(c.Weekday)]
}

// BackfillStartDate returns the configured backfill anchor as a date.
func (c *ScheduleConfig) BackfillStartDate() (time.Time, error) {
	return time.Parse("2006-01-02", c.BackfillStart)
}

// WideCSVPath returns the canonical wide table location.
func (c *Config) WideCSVPath() string {
	return filepath.Join(c.DataDir, "soma_summary_weekly.csv")
}

// WideParquetPath returns the wide columnar mirror location.
func (c *Config) WideParquetPath() string {
	return filepath.Join(c.DataDir, "soma_summary_weekly.parquet")
}

// LongCSVPath returns the derived long table location.
func (c *Config) LongCSVPath() string {
	return filepath.Join(c.DataDir, "soma_summary_long.csv")
}

// LongParquetPath returns the long columnar mirror location.
func (c *Config) LongParquetPath() string {
	return filepath.Join(c.DataDir, "soma_summary_long.parquet")
}
