// Package pipeline runs the weekly synchronization cycle: resolve the
// store cursor, fetch and append each pending snapshot, reconcile the
// store, derive the long view, and refresh the Parquet mirrors.
package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/iAL-2/fed-soma-pipeline/columnar"
	"github.com/iAL-2/fed-soma-pipeline/config"
	"github.com/iAL-2/fed-soma-pipeline/fetch"
	"github.com/iAL-2/fed-soma-pipeline/logging"
	"github.com/iAL-2/fed-soma-pipeline/metrics"
	"github.com/iAL-2/fed-soma-pipeline/resilience"
	"github.com/iAL-2/fed-soma-pipeline/schedule"
	"github.com/iAL-2/fed-soma-pipeline/store"
	"github.com/iAL-2/fed-soma-pipeline/transform"
)

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeUpToDate  Outcome = "up-to-date"
	OutcomeCompleted Outcome = "completed"
	OutcomePartial   Outcome = "partial"
	OutcomeFatal     Outcome = "fatal"
)

// ExitCode maps an outcome onto the process exit code.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomePartial:
		return 2
	case OutcomeFatal:
		return 1
	default:
		return 0
	}
}

// Result summarizes one run.
type Result struct {
	RunID   string
	Outcome Outcome
	Stats   metrics.RunStats
	Elapsed time.Duration
}

// Fetcher retrieves one dated snapshot. *fetch.Client implements it;
// tests substitute their own.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, asOf time.Time) (*store.Table, error)
	RetryMetrics() resilience.RetryMetrics
}

// Pipeline owns the components of the sync cycle.
type Pipeline struct {
	cfg     *config.Config
	client  Fetcher
	store   *store.Store
	engines *columnar.Registry
	logger  *logging.ComponentLogger
}

// New wires a pipeline from configuration. The data directory is
// created up front so every write path below it just works.
func New(cfg *config.Config, client Fetcher, logger *logging.ComponentLogger) (*Pipeline, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	engines, err := columnar.BuildRegistry(cfg.Export.Engines, cfg.Export.Compression, logger)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:     cfg,
		client:  client,
		store:   store.NewStore(cfg.WideCSVPath(), logger),
		engines: engines,
		logger:  logger,
	}, nil
}

// Update synchronizes the store up to today: every aligned date after
// the current cursor is fetched, appended, and reconciled, then the
// derived views are refreshed. A missing or empty store is fatal;
// backfill is the bootstrap path.
func (p *Pipeline) Update(ctx context.Context, today time.Time) (*Result, error) {
	run := newRun(p.logger)

	cursor, err := p.store.Cursor()
	if err != nil {
		return run.fatal(err)
	}
	run.logger.Info().
		Str("cursor", cursor.Format(store.DateLayout)).
		Msg("Resolved store cursor")

	pending := schedule.PendingDates(cursor, schedule.DateOnly(today), p.cfg.Schedule.Alignment())
	if len(pending) == 0 {
		run.logger.Info().Msg("No new weeks to fetch.")
		return run.finish(OutcomeUpToDate)
	}

	return p.sync(ctx, run, pending)
}

// Backfill bootstraps or extends the store over [start, end]. Unlike
// Update it tolerates a missing store file; dates the store already
// holds are dropped as duplicates at reconciliation.
func (p *Pipeline) Backfill(ctx context.Context, start, end time.Time) (*Result, error) {
	run := newRun(p.logger)

	pending := schedule.WeeklyDates(schedule.DateOnly(start), schedule.DateOnly(end), p.cfg.Schedule.Alignment())
	if len(pending) == 0 {
		run.logger.Info().Msg("No weeks to fetch in the requested range.")
		return run.finish(OutcomeUpToDate)
	}

	return p.sync(ctx, run, pending)
}

// sync is the shared body of Update and Backfill: the per-week
// fetch/append loop, reconciliation, and derivation. A week that
// exhausts its retry budget is skipped; everything else is fatal.
func (p *Pipeline) sync(ctx context.Context, run *run, pending []time.Time) (*Result, error) {
	run.collector.SetPending(len(pending))
	run.logger.Info().
		Int("weeks_pending", len(pending)).
		Str("from", pending[0].Format(store.DateLayout)).
		Str("to", pending[len(pending)-1].Format(store.DateLayout)).
		Msg("Starting weekly sync")

	retriesBefore := p.client.RetryMetrics().Retries
	for _, asOf := range pending {
		if err := ctx.Err(); err != nil {
			return run.fatal(err)
		}

		table, err := p.client.FetchSnapshot(ctx, asOf)
		if err != nil {
			if resilience.IsRetryable(err) {
				run.logger.Warn().
					Err(err).
					Str("as_of_date", asOf.Format(store.DateLayout)).
					Msg("Week failed after retries, skipping")
				run.collector.IncrementSkipped()
				continue
			}
			return run.fatal(err)
		}
		run.collector.IncrementFetched()

		normalized := fetch.Normalize(table, asOf)
		if err := p.store.Append(normalized); err != nil {
			return run.fatal(err)
		}
		run.collector.IncrementAppended(len(normalized.Rows))
		run.logger.Info().
			Str("as_of_date", asOf.Format(store.DateLayout)).
			Int("rows", len(normalized.Rows)).
			Msg("Appended week")
	}
	run.collector.AddRetries(p.client.RetryMetrics().Retries - retriesBefore)

	recStats, err := p.store.Reconcile()
	if err != nil {
		return run.fatal(err)
	}
	run.collector.SetStoredRows(recStats.RowsKept)
	run.collector.SetDuplicatesDropped(recStats.DuplicatesDropped)

	if err := p.derive(ctx, run.logger); err != nil {
		return run.fatal(err)
	}

	outcome := OutcomeCompleted
	if run.collector.GetStats().WeeksSkipped > 0 {
		outcome = OutcomePartial
	}
	return run.finish(outcome)
}

// derive refreshes everything downstream of the reconciled store, in
// the order the mirrors are consumed: wide Parquet, long CSV, long
// Parquet.
func (p *Pipeline) derive(ctx context.Context, logger *logging.ComponentLogger) error {
	engine := p.pickEngine(logger)

	if engine != nil {
		if err := engine.Export(ctx, p.cfg.WideCSVPath(), p.cfg.WideParquetPath()); err != nil {
			return err
		}
	}

	if err := p.melt(logger); err != nil {
		return err
	}

	if engine != nil {
		if err := engine.Export(ctx, p.cfg.LongCSVPath(), p.cfg.LongParquetPath()); err != nil {
			return err
		}
	}
	return nil
}

// pickEngine returns the preferred available engine, or nil when the
// mirrors must be skipped this run.
func (p *Pipeline) pickEngine(logger *logging.ComponentLogger) columnar.Engine {
	engine, err := p.engines.Pick()
	if err != nil {
		logger.Warn().Err(err).Msg("Parquet mirrors skipped; CSV outputs remain authoritative")
		return nil
	}
	return engine
}

// Melt rebuilds the long CSV from the current store.
func (p *Pipeline) Melt() error {
	return p.melt(p.logger)
}

func (p *Pipeline) melt(logger *logging.ComponentLogger) error {
	wide, err := p.store.Load()
	if err != nil {
		return err
	}
	long := transform.Melt(wide)
	if err := store.WriteFile(p.cfg.LongCSVPath(), long); err != nil {
		return err
	}
	logger.Info().
		Str("path", p.cfg.LongCSVPath()).
		Int("rows", len(long.Rows)).
		Msg("Derived long view")
	return nil
}

// Export refreshes the Parquet mirrors for whichever CSVs exist. The
// wide store is required; a long CSV that has never been derived is
// skipped. Unlike the in-run mirror step, an explicit export surfaces
// engine unavailability as an error.
func (p *Pipeline) Export(ctx context.Context) error {
	if !p.store.Exists() {
		return &store.MissingStoreError{Path: p.store.Path()}
	}

	engine, err := p.engines.Pick()
	if err != nil {
		return err
	}

	if err := engine.Export(ctx, p.cfg.WideCSVPath(), p.cfg.WideParquetPath()); err != nil {
		return err
	}

	if _, err := os.Stat(p.cfg.LongCSVPath()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p.logger.Info().Str("path", p.cfg.LongCSVPath()).Msg("Long CSV absent, mirror skipped")
			return nil
		}
		return err
	}
	return engine.Export(ctx, p.cfg.LongCSVPath(), p.cfg.LongParquetPath())
}

// run carries the identity and counters of one pipeline run.
type run struct {
	id        string
	logger    *logging.ComponentLogger
	collector *metrics.Collector
}

func newRun(logger *logging.ComponentLogger) *run {
	id := uuid.NewString()
	r := &run{
		id:        id,
		logger:    logger.WithRun(id),
		collector: metrics.NewCollector(),
	}
	r.logger.Info().Msg("Run started")
	return r
}

// finish emits the run summary and packages the result.
func (r *run) finish(outcome Outcome) (*Result, error) {
	stats := r.collector.GetStats()
	r.logger.Info().
		Str("outcome", string(outcome)).
		Int("weeks_pending", stats.WeeksPending).
		Int("weeks_fetched", stats.WeeksFetched).
		Int("weeks_appended", stats.WeeksAppended).
		Int("weeks_skipped", stats.WeeksSkipped).
		Int("rows_appended", stats.RowsAppended).
		Int("rows_stored", stats.RowsStored).
		Int("duplicates_dropped", stats.DuplicatesDropped).
		Int64("retries", stats.Retries).
		Dur("elapsed", r.collector.Elapsed()).
		Msg("Run complete")
	return &Result{
		RunID:   r.id,
		Outcome: outcome,
		Stats:   stats,
		Elapsed: r.collector.Elapsed(),
	}, nil
}

// fatal logs the terminal failure and propagates the error.
func (r *run) fatal(err error) (*Result, error) {
	r.logger.Error().
		Err(err).
		Str("outcome", string(OutcomeFatal)).
		Dur("elapsed", r.collector.Elapsed()).
		Msg("Run failed")
	return nil, err
}
