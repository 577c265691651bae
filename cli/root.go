// Package cli wires the soma-pipeline commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iAL-2/fed-soma-pipeline/config"
	"github.com/iAL-2/fed-soma-pipeline/fetch"
	"github.com/iAL-2/fed-soma-pipeline/logging"
	"github.com/iAL-2/fed-soma-pipeline/pipeline"
)

// RootOptions holds the global flags shared by every command.
type RootOptions struct {
	ConfigPath string
	DataDir    string
	LogLevel   string
	LogFile    string
}

// NewRootCommand creates the soma-pipeline root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "soma-pipeline",
		Short: "Weekly NY Fed SOMA summary sync",
		Long: `soma-pipeline maintains a local append-only CSV store of the NY Fed's
weekly SOMA summary publication, derives a tidy long view from it, and
mirrors both tables to Parquet.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "override the configured data directory")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override the configured log level")
	cmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", "", "override the configured log file")

	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewBackfillCommand(opts))
	cmd.AddCommand(NewMeltCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	return cmd
}

// loadConfig resolves configuration (flags over YAML over defaults) and
// configures logging before anything else runs.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}

	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.LogFile != "" {
		cfg.Logging.File = opts.LogFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logging.Configure(logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	return cfg, nil
}

// buildPipeline assembles the production pipeline.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	client := fetch.NewClient(cfg.Source, logging.NewComponentLogger("fetch"))
	return pipeline.New(cfg, client, logging.NewComponentLogger("pipeline"))
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return GetExitCode(err)
	}
	return 0
}
