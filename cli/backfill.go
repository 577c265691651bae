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

// BackfillOptions holds flags for the backfill command.
type BackfillOptions struct {
	*RootOptions
	Start string
	End   string
}

// NewBackfillCommand creates the backfill command.
func NewBackfillCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BackfillOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Fetch a date range of weekly snapshots",
		Long: `Fetch every aligned week in [start, end] and append the snapshots to the
store, creating it if needed. Weeks already present are kept as first
written; re-fetched duplicates are dropped during reconciliation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Start, "start", "", "first date (YYYY-MM-DD) of the range, default from config")
	cmd.Flags().StringVar(&opts.End, "end", "", "last date (YYYY-MM-DD) of the range, default today")

	return cmd
}

func runBackfill(opts *BackfillOptions) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	start, err := cfg.Schedule.BackfillStartDate()
	if err != nil {
		return err
	}
	if opts.Start != "" {
		start, err = time.Parse(store.DateLayout, opts.Start)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
	}

	end := schedule.DateOnly(time.Now().UTC())
	if opts.End != "" {
		end, err = time.Parse(store.DateLayout, opts.End)
		if err != nil {
			return fmt.Errorf("invalid --end: %w", err)
		}
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := p.Backfill(ctx, start, end)
	if err != nil {
		return err
	}
	if result.Outcome == pipeline.OutcomePartial {
		return NewExitError(result.Outcome.ExitCode(),
			fmt.Sprintf("%d of %d weeks skipped after exhausting retries", result.Stats.WeeksSkipped, result.Stats.WeeksPending))
	}
	return nil
}
