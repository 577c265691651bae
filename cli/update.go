package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iAL-2/fed-soma-pipeline/pipeline"
	"github.com/iAL-2/fed-soma-pipeline/schedule"
	"github.com/iAL-2/fed-soma-pipeline/store"
)

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	AsOfToday string
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Fetch pending weeks and refresh the derived views",
		Long: `Fetch every aligned week after the store's current cursor, append the
snapshots, reconcile the store, and rebuild the long view and Parquet
mirrors. The store must already exist; run backfill first on a fresh
checkout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts)
		},
	}

	cmd.Flags().StringVar(&opts.AsOfToday, "as-of-today", "", "treat this date (YYYY-MM-DD) as today when computing pending weeks")

	return cmd
}

func runUpdate(opts *UpdateOptions) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	today := schedule.DateOnly(time.Now().UTC())
	if opts.AsOfToday != "" {
		today, err = time.Parse(store.DateLayout, opts.AsOfToday)
		if err != nil {
			return fmt.Errorf("invalid --as-of-today: %w", err)
		}
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := p.Update(ctx, today)
	if err != nil {
		return err
	}
	if result.Outcome == pipeline.OutcomePartial {
		return NewExitError(result.Outcome.ExitCode(),
			fmt.Sprintf("%d of %d weeks skipped after exhausting retries", result.Stats.WeeksSkipped, result.Stats.WeeksPending))
	}
	return nil
}
