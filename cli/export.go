package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Compression string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write Parquet mirrors of the CSV tables",
		Long: `Convert the wide store, and the long view when present, into Parquet
files next to the CSVs. Fails when no Parquet engine is available; the
CSV files remain the authoritative copies either way.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Compression, "compression", "", "Parquet compression codec (none, snappy, gzip, lz4, zstd)")

	return cmd
}

func runExport(opts *ExportOptions) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.Compression != "" {
		cfg.Export.Compression = opts.Compression
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return p.Export(ctx)
}
