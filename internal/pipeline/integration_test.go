//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

//go:build integration

// End-to-end runs against a real database.
// Run with: go test -tags=integration ./internal/pipeline/...
// Set ORDERDW_TEST_CONN to use an existing server instead of a container.

package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdw/orderdw-etl/internal/config"
	"github.com/orderdw/orderdw-etl/internal/db"
	"github.com/orderdw/orderdw-etl/internal/model"
	"github.com/orderdw/orderdw-etl/internal/pipeline"
	"github.com/orderdw/orderdw-etl/internal/staging"
	"github.com/orderdw/orderdw-etl/internal/testutil"
	"github.com/orderdw/orderdw-etl/internal/transform"
	"github.com/orderdw/orderdw-etl/internal/validation"
)

var dataset = map[string]string{
	"olist_geolocation_dataset.csv": `geolocation_zip_code_prefix,geolocation_lat,geolocation_lng,geolocation_city,geolocation_state
01001,-23.55,-46.63, Sao Paulo ,sp
1001,-23.56,-46.64,osasco,SP
20000,-22.90,-43.17,Rio de Janeiro,rj
`,
	"olist_customers_dataset.csv": `customer_id,customer_unique_id,customer_zip_code_prefix,customer_city,customer_state
c1,u1,01001,sao paulo,SP
c2,u2,99999,nowhere,XX
`,
	"olist_sellers_dataset.csv": `seller_id,seller_zip_code_prefix,seller_city,seller_state
s1,20000.0,rio,RJ
`,
	"olist_orders_dataset.csv": `order_id,customer_id,order_status,order_purchase_timestamp,order_approved_at,order_delivered_carrier_date,order_delivered_customer_date,order_estimated_delivery_date
o1,c1,delivered,2018-01-01 10:00:00,2018-01-01 12:00:00,2018-01-03 09:00:00,2018-01-10 15:00:00,2018-01-08 00:00:00
o2,c2,delivered,2018-02-01 08:00:00,2018-02-01 09:30:00,2018-02-02 10:00:00,2018-02-05 10:00:00,2018-02-10 00:00:00
o3,c1,canceled,2018-02-03 08:00:00,,,,2018-02-20 00:00:00
o4,cx,shipped,2018-03-01 10:00:00,,,,2018-03-15 00:00:00
`,
	"olist_order_items_dataset.csv": `order_id,order_item_id,product_id,seller_id,shipping_limit_date,price,freight_value
o1,1,p1,s1,2018-01-05 00:00:00,10.00,1.00
o1,2,p2,s1,2018-01-05 00:00:00,5.50,1.00
o2,1,p3,s1,2018-02-04 00:00:00,abc,2.50
o4,1,p4,sx,2018-03-05 00:00:00,20.00,3.00
`,
}

func writeDataset(t *testing.T, skip ...string) string {
	t.Helper()
	dir := t.TempDir()
	skipped := make(map[string]bool)
	for _, s := range skip {
		skipped[s] = true
	}
	for name, content := range dataset {
		if skipped[name] {
			continue
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newRunner(t *testing.T, pool *pgxpool.Pool, dataDir string) *pipeline.Runner {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Staging.DataDir = dataDir
	cfg.Validate.ReportDir = t.TempDir()
	return pipeline.NewRunner(pool, cfg, nil)
}

type factRow struct {
	CustomerKey     int64
	SellerKey       int64
	Late            bool
	DeliveryDays    *int64
	ApprovedDateKey *int64
	TotalPrice      string
	ItemCount       int64
}

func readFact(t *testing.T, pool *pgxpool.Pool, orderID string) factRow {
	t.Helper()
	var f factRow
	err := pool.QueryRow(context.Background(), `
        SELECT customer_key, seller_key, is_late_delivery_flag, delivery_time_days,
               approved_date_key, total_price::text, item_count
        FROM dwh.fact_order_delivery WHERE order_id = $1`, orderID).
		Scan(&f.CustomerKey, &f.SellerKey, &f.Late, &f.DeliveryDays, &f.ApprovedDateKey, &f.TotalPrice, &f.ItemCount)
	require.NoError(t, err)
	return f
}

func count(t *testing.T, pool *pgxpool.Pool, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, pool.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}

func TestRunEndToEnd(t *testing.T) {
	pool := testutil.NewTestDB(t)
	ctx := context.Background()
	runner := newRunner(t, pool, writeDataset(t))

	res, err := runner.Run(ctx, pipeline.RunOptions{Validate: true})
	require.NoError(t, err)
	assert.Equal(t, pipeline.RunSucceeded, res.Status)

	// 5 staging tables, 2 dimensions, fact, validation
	require.Len(t, res.Stages, 9)
	for _, s := range res.Stages {
		assert.Equal(t, db.RunStatusSuccess, s.Status, "%s %s", s.Stage, s.Table)
	}
	assert.Len(t, res.Stages[0].Checksum, 16)

	require.NotNil(t, res.Validation)
	assert.Equal(t, validation.StatusPass, res.Validation.Status)
	assert.NoError(t, res.Validation.Err(true))

	t.Run("dimensions", func(t *testing.T) {
		var city, state string
		require.NoError(t, pool.QueryRow(ctx,
			"SELECT customer_city, customer_state FROM dwh.dim_customer WHERE customer_id = 'c1'").
			Scan(&city, &state))
		assert.Equal(t, "sao paulo", city)
		assert.Equal(t, "SP", state)

		require.NoError(t, pool.QueryRow(ctx,
			"SELECT customer_city, customer_state FROM dwh.dim_customer WHERE customer_id = 'c2'").
			Scan(&city, &state))
		assert.Equal(t, "Unknown", city)
		assert.Equal(t, "NA", state)

		require.NoError(t, pool.QueryRow(ctx,
			"SELECT seller_city FROM dwh.dim_seller WHERE seller_id = 's1'").Scan(&city))
		assert.Equal(t, "rio de janeiro", city)
	})

	t.Run("facts", func(t *testing.T) {
		assert.Equal(t, int64(3), count(t, pool, "SELECT COUNT(*) FROM dwh.fact_order_delivery"))
		assert.Zero(t, count(t, pool, "SELECT COUNT(*) FROM dwh.fact_order_delivery WHERE order_id = 'o3'"))

		c1Key := count(t, pool, "SELECT customer_key FROM dwh.dim_customer WHERE customer_id = 'c1'")
		o1 := readFact(t, pool, "o1")
		assert.Equal(t, c1Key, o1.CustomerKey)
		assert.True(t, o1.Late)
		require.NotNil(t, o1.DeliveryDays)
		assert.Equal(t, int64(9), *o1.DeliveryDays)
		require.NotNil(t, o1.ApprovedDateKey)
		assert.Equal(t, int64(20180101), *o1.ApprovedDateKey)
		assert.Equal(t, "15.50", o1.TotalPrice)
		assert.Equal(t, int64(2), o1.ItemCount)

		o2 := readFact(t, pool, "o2")
		assert.False(t, o2.Late)
		assert.Equal(t, "0.00", o2.TotalPrice)

		o4 := readFact(t, pool, "o4")
		assert.Equal(t, model.UnknownKey, o4.CustomerKey)
		assert.Equal(t, model.UnknownKey, o4.SellerKey)
		assert.False(t, o4.Late)
		assert.Nil(t, o4.DeliveryDays)
		assert.Nil(t, o4.ApprovedDateKey)
	})

	t.Run("run log", func(t *testing.T) {
		entries, err := db.RecentRuns(ctx, pool, 1)
		require.NoError(t, err)
		assert.Len(t, entries, 9)
		for _, e := range entries {
			assert.Equal(t, res.RunID, e.RunID)
		}
	})

	t.Run("rerun is idempotent", func(t *testing.T) {
		again, err := runner.Run(ctx, pipeline.RunOptions{SkipStaging: true})
		require.NoError(t, err)
		assert.Len(t, again.Stages, 3)
		assert.Equal(t, int64(3), count(t, pool, "SELECT COUNT(*) FROM dwh.fact_order_delivery"))
		assert.Equal(t, int64(2), count(t, pool, "SELECT COUNT(*) FROM dwh.dim_customer WHERE is_current"))
		assert.Equal(t, int64(1), count(t, pool, "SELECT COUNT(*) FROM dwh.dim_seller"))
	})
}

func TestRunSkipsMissingFile(t *testing.T) {
	pool := testutil.NewTestDB(t)
	runner := newRunner(t, pool, writeDataset(t, "olist_geolocation_dataset.csv"))

	res, err := runner.Run(context.Background(), pipeline.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, db.RunStatusSkipped, res.Stages[0].Status)
	assert.Equal(t, "staging.stg_geolocation", res.Stages[0].Table)

	assert.Equal(t, int64(2), count(t, pool,
		"SELECT COUNT(*) FROM dwh.dim_customer WHERE customer_city = 'Unknown' AND customer_state = 'NA'"))
}

func TestRunFailsOnMissingFactColumn(t *testing.T) {
	pool := testutil.NewTestDB(t)
	ctx := context.Background()
	runner := newRunner(t, pool, writeDataset(t))

	_, err := pool.Exec(ctx, "ALTER TABLE dwh.fact_order_delivery DROP COLUMN total_freight_value")
	require.NoError(t, err)

	start := time.Now()
	res, err := runner.Run(ctx, pipeline.RunOptions{Validate: true})
	require.Error(t, err)
	assert.Equal(t, pipeline.RunFailed, res.Status)
	assert.Nil(t, res.Validation)
	assert.WithinDuration(t, start, res.FinishedAt, time.Minute)

	var se *pipeline.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, pipeline.StageFacts, se.Stage)
	assert.Equal(t, "dwh.fact_order_delivery", se.Table)

	var mc *transform.MissingColumnsError
	require.True(t, errors.As(err, &mc))
	assert.Equal(t, []string{"total_freight_value"}, mc.Columns)

	last := res.Stages[len(res.Stages)-1]
	assert.Equal(t, db.RunStatusFailed, last.Status)

	// The failure is in the run log as well.
	assert.Equal(t, int64(1), count(t, pool,
		"SELECT COUNT(*) FROM dwh.etl_run_log WHERE run_id = $1::uuid AND status = 'failed'", res.RunID))
}

func TestDimensionFailureKeepsPreviousRows(t *testing.T) {
	pool := testutil.NewTestDB(t)
	ctx := context.Background()
	runner := newRunner(t, pool, writeDataset(t))

	_, err := runner.Run(ctx, pipeline.RunOptions{})
	require.NoError(t, err)
	customers := count(t, pool, "SELECT COUNT(*) FROM dwh.dim_customer")
	sellers := count(t, pool, "SELECT COUNT(*) FROM dwh.dim_seller")
	facts := count(t, pool, "SELECT COUNT(*) FROM dwh.fact_order_delivery")
	require.Equal(t, int64(2), customers)
	require.Equal(t, int64(3), facts)

	// Customers are copied before sellers; the seller COPY now fails.
	_, err = pool.Exec(ctx, `ALTER TABLE dwh.dim_seller
        ADD CONSTRAINT no_rio CHECK (seller_city <> 'rio de janeiro') NOT VALID`)
	require.NoError(t, err)

	res, err := runner.Run(ctx, pipeline.RunOptions{SkipStaging: true})
	require.Error(t, err)
	assert.Equal(t, pipeline.RunFailed, res.Status)

	var se *pipeline.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, pipeline.StageDimensions, se.Stage)

	assert.Equal(t, customers, count(t, pool, "SELECT COUNT(*) FROM dwh.dim_customer"))
	assert.Equal(t, sellers, count(t, pool, "SELECT COUNT(*) FROM dwh.dim_seller"))
	assert.Equal(t, facts, count(t, pool, "SELECT COUNT(*) FROM dwh.fact_order_delivery"))

	// The fact stage never ran.
	for _, s := range res.Stages {
		assert.NotEqual(t, pipeline.StageFacts, s.Stage)
	}
}

func TestStagingErrorFractionKeepsPreviousRows(t *testing.T) {
	pool := testutil.NewTestDB(t)
	ctx := context.Background()
	dir := writeDataset(t)
	runner := newRunner(t, pool, dir)

	_, err := runner.Run(ctx, pipeline.RunOptions{StagingOnly: true})
	require.NoError(t, err)
	require.Equal(t, int64(2), count(t, pool, "SELECT COUNT(*) FROM staging.stg_customers"))

	// Two of four records have the wrong number of fields.
	broken := `customer_id,customer_unique_id,customer_zip_code_prefix,customer_city,customer_state
c7,u7,01001,sao paulo,SP
c8,u8
c9,u9,20000,rio de janeiro,RJ,extra
c10,u10,20000,rio de janeiro,RJ
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "olist_customers_dataset.csv"), []byte(broken), 0o644))

	res, err := runner.Run(ctx, pipeline.RunOptions{StagingOnly: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, staging.ErrTooManyErrors)

	var se *pipeline.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, pipeline.StageStaging, se.Stage)
	assert.Equal(t, "staging.stg_customers", se.Table)

	last := res.Stages[len(res.Stages)-1]
	assert.Equal(t, db.RunStatusFailed, last.Status)
	assert.Equal(t, int64(2), last.Rejected)

	assert.Equal(t, int64(2), count(t, pool, "SELECT COUNT(*) FROM staging.stg_customers"))
	assert.Equal(t, int64(1), count(t, pool, "SELECT COUNT(*) FROM staging.stg_customers WHERE customer_id = 'c1'"))
	assert.Zero(t, count(t, pool, "SELECT COUNT(*) FROM staging.stg_customers WHERE customer_id = 'c7'"))
}
