//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package pipeline

import (
	"fmt"
	"time"

	"github.com/orderdw/orderdw-etl/internal/db"
	"github.com/orderdw/orderdw-etl/internal/events"
)

// Stage names as recorded in the run log and metrics.
const (
	StageStaging    = "staging"
	StageDimensions = "dimensions"
	StageFacts      = "fact"
	StageValidation = "validation"
)

// StageError reports the stage and table a run failed on.
type StageError struct {
	Stage string
	Table string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed on %s: %v", e.Stage, e.Table, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageResult is the outcome of one stage on one table.
type StageResult struct {
	Stage      string
	Table      string
	Status     string
	Rows       int64
	Rejected   int64
	Checksum   string
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// Elapsed is the wall time of the stage.
func (r StageResult) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r StageResult) logEntry(runID string) db.RunLogEntry {
	e := db.RunLogEntry{
		RunID:       runID,
		Stage:       r.Stage,
		TargetTable: r.Table,
		Status:      r.Status,
		Rows:        r.Rows,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
	}
	if r.Checksum != "" {
		e.Checksum = &r.Checksum
	}
	if r.Err != nil {
		msg := r.Err.Error()
		e.Error = &msg
	}
	return e
}

func (r StageResult) summary() events.StageSummary {
	s := events.StageSummary{
		Stage:     r.Stage,
		Table:     r.Table,
		Status:    r.Status,
		Rows:      r.Rows,
		ElapsedMS: r.Elapsed().Milliseconds(),
	}
	if r.Err != nil {
		msg := r.Err.Error()
		s.Error = &msg
	}
	return s
}
