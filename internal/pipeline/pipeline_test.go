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
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdw/orderdw-etl/internal/db"
	"github.com/orderdw/orderdw-etl/internal/transform"
)

func TestStageError(t *testing.T) {
	cause := &transform.MissingColumnsError{Table: "dwh.fact_order_delivery", Columns: []string{"total_price"}}
	err := fmt.Errorf("run: %w", &StageError{Stage: StageFacts, Table: "dwh.fact_order_delivery", Err: cause})

	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageFacts, se.Stage)
	assert.Equal(t, "stage fact failed on dwh.fact_order_delivery: "+cause.Error(), se.Error())

	var mc *transform.MissingColumnsError
	assert.True(t, errors.As(err, &mc))
}

func TestStageResultLogEntry(t *testing.T) {
	started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	ok := StageResult{
		Stage:      StageStaging,
		Table:      "staging.stg_orders",
		Status:     db.RunStatusSuccess,
		Rows:       12,
		Checksum:   "00000000deadbeef",
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
	}
	e := ok.logEntry("run-1")
	assert.Equal(t, "run-1", e.RunID)
	assert.Equal(t, int64(12), e.Rows)
	require.NotNil(t, e.Checksum)
	assert.Equal(t, "00000000deadbeef", *e.Checksum)
	assert.Nil(t, e.Error)
	assert.Equal(t, 1500*time.Millisecond, e.Duration())

	failed := StageResult{Stage: StageFacts, Table: "dwh.fact_order_delivery", Status: db.RunStatusFailed,
		StartedAt: started, FinishedAt: started, Err: errors.New("boom")}
	e = failed.logEntry("run-1")
	assert.Nil(t, e.Checksum)
	require.NotNil(t, e.Error)
	assert.Equal(t, "boom", *e.Error)

	s := failed.summary()
	assert.Equal(t, db.RunStatusFailed, s.Status)
	require.NotNil(t, s.Error)
	assert.Equal(t, int64(0), s.ElapsedMS)

	assert.Equal(t, int64(1500), ok.summary().ElapsedMS)
	assert.Nil(t, ok.summary().Error)
}
