//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5"

	"github.com/orderdw/orderdw-etl/internal/logging"
)

const runLogTable = "dwh.etl_run_log"

// Run log statuses.
const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
	RunStatusSkipped = "skipped"
)

// RunLogEntry is one row of dwh.etl_run_log: the outcome of one stage on one
// table during one run.
type RunLogEntry struct {
	RunID       string    `db:"run_id"`
	Stage       string    `db:"stage"`
	TargetTable string    `db:"target_table"`
	Status      string    `db:"status"`
	Rows        int64     `db:"row_count"`
	Checksum    *string   `db:"checksum"`
	StartedAt   time.Time `db:"started_at"`
	FinishedAt  time.Time `db:"finished_at"`
	Error       *string   `db:"error"`
}

// Duration is the wall time the stage took.
func (e RunLogEntry) Duration() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

// RecordStage appends an entry to the run log. It is written outside the
// stage transaction so failed stages are recorded too.
func RecordStage(ctx context.Context, q DBTX, e RunLogEntry) error {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(runLogTable)
	ib.Cols("run_id", "stage", "target_table", "status", "row_count",
		"checksum", "started_at", "finished_at", "error")
	ib.Values(e.RunID, e.Stage, e.TargetTable, e.Status, e.Rows,
		e.Checksum, e.StartedAt, e.FinishedAt, e.Error)

	sql, args := ib.Build()
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to record %s stage for %s: %w", e.Stage, e.TargetTable, err)
	}

	logging.Debug().
		Str("run_id", e.RunID).
		Str("stage", e.Stage).
		Str("table", e.TargetTable).
		Str("status", e.Status).
		Msg("Recorded stage in run log")

	return nil
}

// RecentRuns returns the entries of the most recent runs, newest first.
// runs limits the number of distinct run ids returned.
func RecentRuns(ctx context.Context, q DBTX, runs int) ([]RunLogEntry, error) {
	recent := sqlbuilder.PostgreSQL.NewSelectBuilder()
	recent.Select("run_id").
		From(runLogTable).
		GroupBy("run_id").
		OrderBy("MAX(started_at)").Desc().
		Limit(runs)

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("run_id::text AS run_id", "stage", "target_table", "status", "row_count",
		"checksum", "started_at", "finished_at", "error").
		From(runLogTable).
		Where(sb.In("run_id", recent)).
		OrderBy("started_at DESC", "id DESC")

	sql, args := sb.Build()
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query run log: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[RunLogEntry])
}

// RunLogExists checks if the run log table exists.
func RunLogExists(ctx context.Context, q DBTX) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT FROM information_schema.tables
            WHERE table_schema = 'dwh' AND table_name = 'etl_run_log'
        )
    `).Scan(&exists)
	return exists, err
}
