//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package pipeline runs the ETL stages in order: staging load, dimensions,
// fact and, optionally, validation. Each stage commits before the next one
// starts and a failed stage stops the run.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderdw/orderdw-etl/internal/config"
	"github.com/orderdw/orderdw-etl/internal/db"
	"github.com/orderdw/orderdw-etl/internal/events"
	"github.com/orderdw/orderdw-etl/internal/logging"
	"github.com/orderdw/orderdw-etl/internal/metrics"
	"github.com/orderdw/orderdw-etl/internal/model"
	"github.com/orderdw/orderdw-etl/internal/staging"
	"github.com/orderdw/orderdw-etl/internal/transform"
	"github.com/orderdw/orderdw-etl/internal/validation"
	"github.com/orderdw/orderdw-etl/internal/warehouse"
	"github.com/orderdw/orderdw-etl/pkg/version"
)

// Run statuses.
const (
	RunSucceeded = "success"
	RunFailed    = "failed"
)

// RunOptions selects the stages of a run.
type RunOptions struct {
	// SkipStaging starts from the tables already staged.
	SkipStaging bool

	// StagingOnly stops after the staging load.
	StagingOnly bool

	// Validate runs the validation suite after the fact stage.
	Validate bool
}

// RunResult summarizes one run.
type RunResult struct {
	RunID      string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	Stages     []StageResult
	Validation *validation.Report
}

// Elapsed is the wall time of the run.
func (r *RunResult) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Runner executes pipeline runs against one database.
type Runner struct {
	pool      *pgxpool.Pool
	cfg       *config.Config
	recorder  *metrics.Recorder
	publisher events.Publisher
	now       func() time.Time
}

// NewRunner creates a Runner. A nil publisher disables run events.
func NewRunner(pool *pgxpool.Pool, cfg *config.Config, publisher events.Publisher) *Runner {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Runner{
		pool:      pool,
		cfg:       cfg,
		recorder:  metrics.NewRecorder(),
		publisher: publisher,
		now:       time.Now,
	}
}

// Recorder returns the metrics recorder of the runner.
func (r *Runner) Recorder() *metrics.Recorder {
	return r.recorder
}

// Run executes the selected stages. The returned result is never nil and
// lists every stage attempted; on failure the error is a *StageError.
// Metrics are pushed and the run event is published whether or not the run
// succeeded.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	res := &RunResult{RunID: uuid.NewString(), StartedAt: r.now().UTC()}

	logging.Info().
		Str("run_id", res.RunID).
		Bool("staging", !opts.SkipStaging).
		Bool("validate", opts.Validate && !opts.StagingOnly).
		Msg("Starting pipeline run")

	err := r.run(ctx, opts, res)

	res.FinishedAt = r.now().UTC()
	res.Status = RunSucceeded
	if err != nil {
		res.Status = RunFailed
	}
	r.finish(ctx, res)

	event := logging.Info()
	if err != nil {
		event = logging.Error().Err(err)
	}
	event.
		Str("run_id", res.RunID).
		Str("status", res.Status).
		Int("stages", len(res.Stages)).
		Dur("elapsed", res.Elapsed()).
		Msg("Pipeline run finished")

	return res, err
}

func (r *Runner) run(ctx context.Context, opts RunOptions, res *RunResult) error {
	if !opts.SkipStaging {
		if err := r.stage(ctx, res); err != nil {
			return err
		}
	}
	if opts.StagingOnly {
		return nil
	}

	if err := r.dimensions(ctx, res); err != nil {
		return err
	}
	if err := r.facts(ctx, res); err != nil {
		return err
	}

	if opts.Validate {
		report, err := r.validate(ctx, res)
		if err != nil {
			return err
		}
		res.Validation = report
	}
	return nil
}

// stage loads every configured source file into its staging table.
func (r *Runner) stage(ctx context.Context, res *RunResult) error {
	loader := staging.NewLoader(r.pool, r.cfg.Staging)

	for _, m := range staging.Mappings(r.cfg.Staging.Files) {
		started := r.now().UTC()
		fr, loadErr := loader.LoadFile(ctx, m.File, m.Table)

		sr := StageResult{
			Stage:      StageStaging,
			Table:      m.Table,
			Status:     db.RunStatusSuccess,
			Rows:       fr.Rows,
			Rejected:   fr.Failed,
			Checksum:   fr.Checksum,
			StartedAt:  started,
			FinishedAt: r.now().UTC(),
		}
		if fr.Skipped {
			sr.Status = db.RunStatusSkipped
		}
		r.recorder.ObserveRejected(m.Table, fr.Failed)
		if err := r.record(ctx, res, sr, loadErr); err != nil {
			return err
		}
	}
	return nil
}

// dimensions rebuilds dim_customer and dim_seller from staging.
func (r *Runner) dimensions(ctx context.Context, res *RunResult) error {
	started := r.now().UTC()
	fail := func(table string, err error) error {
		return r.record(ctx, res, StageResult{
			Stage:      StageDimensions,
			Table:      table,
			StartedAt:  started,
			FinishedAt: r.now().UTC(),
		}, err)
	}

	geoRows, err := staging.ReadGeolocations(ctx, r.pool)
	if err != nil {
		return fail(staging.TableGeolocation, err)
	}
	customerRows, err := staging.ReadCustomers(ctx, r.pool)
	if err != nil {
		return fail(staging.TableCustomers, err)
	}
	sellerRows, err := staging.ReadSellers(ctx, r.pool)
	if err != nil {
		return fail(staging.TableSellers, err)
	}

	geo, geoStats := transform.BuildGeoLookup(geoRows)
	logging.Info().
		Int("rows", geoStats.Rows).
		Int("prefixes", geoStats.Prefixes).
		Int("duplicates", geoStats.DuplicateRows).
		Msg("Built geolocation lookup")
	r.anomaly("geolocation_empty_prefix", geoStats.EmptyPrefixRows)

	loadedAt := r.now().UTC()
	customers, customerStats := transform.BuildCustomerDimension(customerRows, geo, loadedAt)
	sellers, sellerStats := transform.BuildSellerDimension(sellerRows, geo, loadedAt)
	r.anomaly("customer_duplicate_rows", customerStats.DuplicateRows)
	r.anomaly("customer_geo_miss", customerStats.GeoMisses)
	r.anomaly("seller_duplicate_rows", sellerStats.DuplicateRows)
	r.anomaly("seller_geo_miss", sellerStats.GeoMisses)

	counts, err := warehouse.ReplaceDimensions(ctx, r.pool, customers, sellers)
	if err != nil {
		return fail(model.TableDimCustomer+","+model.TableDimSeller, err)
	}

	finished := r.now().UTC()
	if err := r.record(ctx, res, StageResult{
		Stage: StageDimensions, Table: model.TableDimCustomer, Status: db.RunStatusSuccess,
		Rows: counts.Customers, StartedAt: started, FinishedAt: finished,
	}, nil); err != nil {
		return err
	}
	return r.record(ctx, res, StageResult{
		Stage: StageDimensions, Table: model.TableDimSeller, Status: db.RunStatusSuccess,
		Rows: counts.Sellers, StartedAt: started, FinishedAt: finished,
	}, nil)
}

// facts rebuilds fact_order_delivery from staging and the current
// dimensions.
func (r *Runner) facts(ctx context.Context, res *RunResult) error {
	sr := StageResult{Stage: StageFacts, Table: model.TableFactOrderDelivery, StartedAt: r.now().UTC()}

	rows, err := r.buildAndLoadFacts(ctx)
	sr.Rows = rows
	sr.Status = db.RunStatusSuccess
	sr.FinishedAt = r.now().UTC()
	return r.record(ctx, res, sr, err)
}

func (r *Runner) buildAndLoadFacts(ctx context.Context) (int64, error) {
	orders, err := staging.ReadOrders(ctx, r.pool)
	if err != nil {
		return 0, err
	}
	items, err := staging.ReadOrderItems(ctx, r.pool)
	if err != nil {
		return 0, err
	}
	lookups, err := warehouse.LoadLookups(ctx, r.pool)
	if err != nil {
		return 0, err
	}

	facts, stats, err := transform.BuildFacts(orders, items, lookups, r.now().UTC())
	if err != nil {
		return 0, err
	}
	r.factAnomalies(stats)

	return warehouse.ReplaceFacts(ctx, r.pool, facts)
}

func (r *Runner) factAnomalies(stats transform.FactStats) {
	logging.Info().
		Int("items", stats.Items.Rows).
		Int("orders", stats.Metrics.Orders).
		Int("joined", stats.Metrics.Joined).
		Int("late", stats.Metrics.LateDeliveries).
		Int("facts", stats.Facts).
		Msg("Computed delivery metrics")

	r.anomaly("invalid_price", stats.Items.InvalidPrice)
	r.anomaly("invalid_freight", stats.Items.InvalidFreight)
	r.anomaly("order_without_items", stats.Metrics.DroppedWithoutItems)
	r.anomaly("unparseable_timestamp", stats.Metrics.UnparseableTimestamps)
	r.anomaly("unknown_customer", stats.Keys.UnknownCustomers)
	r.anomaly("unknown_seller", stats.Keys.UnknownSellers)

	measures := make([]string, 0, len(stats.Metrics.NegativeMasked))
	for m := range stats.Metrics.NegativeMasked {
		measures = append(measures, m)
	}
	sort.Strings(measures)
	for _, m := range measures {
		r.anomaly("negative_"+m, stats.Metrics.NegativeMasked[m])
	}

	missing := 0
	for _, n := range stats.Keys.MissingDates {
		missing += n
	}
	if missing > 0 {
		dates := make([]string, 0, len(stats.Keys.MissingDates))
		for d := range stats.Keys.MissingDates {
			dates = append(dates, d)
		}
		sort.Strings(dates)
		logging.Warn().Strs("dates", dates).Msg("Dates outside dim_date")
	}
	r.anomaly("missing_date_key", missing)
}

// validate runs the configured checks.
func (r *Runner) validate(ctx context.Context, res *RunResult) (*validation.Report, error) {
	sr := StageResult{Stage: StageValidation, Table: "dwh", StartedAt: r.now().UTC()}

	report, runErr := Validate(ctx, r.pool, r.cfg.Validate)
	if report != nil {
		report.RunID = res.RunID
		sr.Rows = int64(len(report.Results))
	}
	sr.Status = db.RunStatusSuccess
	sr.FinishedAt = r.now().UTC()
	if err := r.record(ctx, res, sr, runErr); err != nil {
		return nil, err
	}
	return report, nil
}

// Validate loads the check registry named by cfg, runs it and writes the
// JSON report when cfg.ReportDir is set.
func Validate(ctx context.Context, q db.DBTX, cfg config.ValidateConfig) (*validation.Report, error) {
	checks, err := validation.LoadChecks(cfg.ChecksFile)
	if err != nil {
		return nil, err
	}
	report, err := validation.NewRunner(q, checks).Run(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.ReportDir != "" {
		path, err := report.WriteJSON(cfg.ReportDir)
		if err != nil {
			return report, err
		}
		logging.Info().Str("path", path).Msg("Wrote validation report")
	}
	return report, nil
}

// record appends sr to the run, exports it and writes it to the run log.
// When err is set the stage is marked failed and a *StageError is returned.
func (r *Runner) record(ctx context.Context, res *RunResult, sr StageResult, err error) error {
	if err != nil {
		sr.Status = db.RunStatusFailed
		sr.Err = err
	}
	res.Stages = append(res.Stages, sr)
	r.recorder.ObserveStage(sr.Stage, sr.Table, sr.Rows, sr.Elapsed(), err)

	if logErr := db.RecordStage(context.WithoutCancel(ctx), r.pool, sr.logEntry(res.RunID)); logErr != nil {
		logging.Warn().Err(logErr).Str("stage", sr.Stage).Msg("Failed to write run log")
	}

	if err != nil {
		return &StageError{Stage: sr.Stage, Table: sr.Table, Err: err}
	}

	logging.Info().
		Str("run_id", res.RunID).
		Str("stage", sr.Stage).
		Str("table", sr.Table).
		Str("status", sr.Status).
		Int64("rows", sr.Rows).
		Dur("elapsed", sr.Elapsed()).
		Msg("Stage finished")
	return nil
}

func (r *Runner) anomaly(kind string, n int) {
	if n == 0 {
		return
	}
	r.recorder.AddAnomalies(kind, n)
	logging.Warn().Str("kind", kind).Int("count", n).Msg("Value anomalies substituted")
}

// finish exports the run's metrics and publishes its completion event.
// Neither failure affects the run's outcome.
func (r *Runner) finish(ctx context.Context, res *RunResult) {
	ctx = context.WithoutCancel(ctx)
	r.recorder.RunFinished(res.Status, res.FinishedAt, res.Elapsed())

	if url := r.cfg.Metrics.PushgatewayURL; url != "" {
		pushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := r.recorder.Push(pushCtx, url, r.cfg.Metrics.Job)
		cancel()
		if err != nil {
			logging.Warn().Err(err).Msg("Failed to push metrics")
		}
	}

	event := &events.RunCompleted{
		EventType:  events.EventTypeRunCompleted,
		RunID:      res.RunID,
		Status:     res.Status,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Version:    version.Short(),
	}
	for _, sr := range res.Stages {
		event.Stages = append(event.Stages, sr.summary())
	}
	if res.Validation != nil {
		event.ValidationStatus = string(res.Validation.Status)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := r.publisher.PublishRunCompleted(pubCtx, event); err != nil {
		logging.Warn().Err(err).Msg("Failed to publish run event")
	}
}
