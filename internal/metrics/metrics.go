//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package metrics collects Prometheus metrics for one pipeline run and
// pushes them to a Pushgateway. A batch job has no scrape endpoint, so the
// registry is per run rather than global.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "orderdw_etl"

// Recorder holds the metrics of one run.
type Recorder struct {
	registry *prometheus.Registry

	RowsLoaded    *prometheus.CounterVec
	RowsRejected  *prometheus.CounterVec
	StageDuration *prometheus.GaugeVec
	StageFailures *prometheus.CounterVec
	Anomalies     *prometheus.CounterVec
	LastRun       *prometheus.GaugeVec
	RunDuration   prometheus.Gauge
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		// RowsLoaded tracks rows written per stage and table
		RowsLoaded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "rows_loaded_total",
				Help:      "Rows written by a stage into a table",
			},
			[]string{"stage", "table"},
		),

		// RowsRejected tracks malformed source records skipped during staging
		RowsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "rows_rejected_total",
				Help:      "Malformed source records skipped while staging",
			},
			[]string{"table"},
		),

		StageDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "duration_seconds",
				Help:      "Wall time of a stage in seconds",
			},
			[]string{"stage", "table"},
		),

		StageFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "failures_total",
				Help:      "Stages that failed",
			},
			[]string{"stage", "table"},
		),

		// Anomalies tracks value-level substitutions (invalid amounts,
		// unparseable timestamps, masked negatives, key misses)
		Anomalies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transform",
				Name:      "anomalies_total",
				Help:      "Value anomalies substituted during transform, by kind",
			},
			[]string{"kind"},
		),

		LastRun: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "last_completion_timestamp_seconds",
				Help:      "Unix time the last run finished, by status",
			},
			[]string{"status"},
		),

		RunDuration: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "duration_seconds",
				Help:      "Wall time of the last run in seconds",
			},
		),
	}
}

// Registry returns the registry holding the run's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStage records the outcome of one stage on one table.
func (r *Recorder) ObserveStage(stage, table string, rows int64, elapsed time.Duration, err error) {
	r.StageDuration.WithLabelValues(stage, table).Set(elapsed.Seconds())
	if err != nil {
		r.StageFailures.WithLabelValues(stage, table).Inc()
		return
	}
	r.RowsLoaded.WithLabelValues(stage, table).Add(float64(rows))
}

// ObserveRejected records malformed records skipped while staging table.
func (r *Recorder) ObserveRejected(table string, n int64) {
	if n > 0 {
		r.RowsRejected.WithLabelValues(table).Add(float64(n))
	}
}

// AddAnomalies records n value anomalies of the given kind.
func (r *Recorder) AddAnomalies(kind string, n int) {
	if n > 0 {
		r.Anomalies.WithLabelValues(kind).Add(float64(n))
	}
}

// RunFinished records the end of the run.
func (r *Recorder) RunFinished(status string, finishedAt time.Time, elapsed time.Duration) {
	r.LastRun.WithLabelValues(status).Set(float64(finishedAt.Unix()))
	r.RunDuration.Set(elapsed.Seconds())
}

// Push replaces the metrics of job on the Pushgateway at url with the run's
// metrics.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
