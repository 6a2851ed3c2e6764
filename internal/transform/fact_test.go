//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package transform

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdw/orderdw-etl/internal/model"
)

func TestAssembleFacts(t *testing.T) {
	loadedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("stamps grain and load time", func(t *testing.T) {
		facts, err := AssembleFacts([]ResolvedOrder{
			{OrderMetrics: OrderMetrics{OrderID: "o1", Status: "delivered", ItemCount: 2}, CustomerKey: 1, SellerKey: model.UnknownKey},
		}, loadedAt)

		require.NoError(t, err)
		require.Len(t, facts, 1)
		assert.Equal(t, int64(1), facts[0].OrderCount)
		assert.Equal(t, loadedAt, facts[0].DWLoadTimestamp)
		assert.Equal(t, "delivered", facts[0].OrderStatus)
		assert.Equal(t, model.UnknownKey, facts[0].SellerKey)
	})

	t.Run("duplicate order id", func(t *testing.T) {
		_, err := AssembleFacts([]ResolvedOrder{
			{OrderMetrics: OrderMetrics{OrderID: "o1"}},
			{OrderMetrics: OrderMetrics{OrderID: "o1"}},
		}, loadedAt)

		assert.ErrorContains(t, err, `duplicate order_id "o1"`)
	})
}

func TestFactProjection(t *testing.T) {
	assert.Len(t, FactColumns, 21)

	f := &model.FactOrderDelivery{OrderID: "o1", OrderCount: 1}
	values, err := FactValues(f, FactColumns)
	require.NoError(t, err)
	require.Len(t, values, len(FactColumns))
	assert.Equal(t, "o1", values[0])

	_, err = FactValues(f, []string{"order_id", "no_such_column"})
	var missing *MissingColumnsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"no_such_column"}, missing.Columns)
}

func TestCheckFactColumns(t *testing.T) {
	assert.NoError(t, CheckFactColumns(model.TableFactOrderDelivery, append([]string{"fact_key"}, FactColumns...)))

	err := CheckFactColumns(model.TableFactOrderDelivery, FactColumns[:19])
	var missing *MissingColumnsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"order_count", "dw_load_timestamp"}, missing.Columns)
	assert.Contains(t, err.Error(), "dwh.fact_order_delivery is missing required columns")
}

func TestBuildFacts(t *testing.T) {
	loadedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	lookups := testLookups()

	orders := []model.Order{
		{
			OrderID:               "o1",
			CustomerID:            "c1",
			Status:                "delivered",
			PurchaseTimestamp:     "2018-01-01 09:00:00",
			ApprovedAt:            "2018-01-01 11:00:00",
			DeliveredCarrierDate:  "2018-01-02 08:00:00",
			DeliveredCustomerDate: "2018-01-08 00:00:00",
			EstimatedDeliveryDate: "2018-01-06 00:00:00",
		},
		{OrderID: "o2", CustomerID: "unknown", PurchaseTimestamp: "2018-01-02 10:00:00"},
		{OrderID: "no-items", CustomerID: "c1"},
	}
	items := []model.OrderItem{
		{OrderID: "o1", SellerID: "s1", Price: "10.00", FreightValue: "2.00"},
		{OrderID: "o1", SellerID: "s1", Price: "bad", FreightValue: "2.00"},
		{OrderID: "o2", SellerID: "s9", Price: "7.50", FreightValue: "1.00"},
	}

	facts, stats, err := BuildFacts(orders, items, lookups, loadedAt)
	require.NoError(t, err)
	require.Len(t, facts, 2)

	late := facts[0]
	assert.Equal(t, "o1", late.OrderID)
	assert.True(t, late.IsLateDeliveryFlag)
	require.NotNil(t, late.PurchaseDateKey)
	assert.Equal(t, int64(20180101), *late.PurchaseDateKey)
	require.NotNil(t, late.EstimatedDeliveryDateKey)
	assert.Equal(t, int64(101), late.CustomerKey)
	assert.Equal(t, int64(201), late.SellerKey)
	assert.Equal(t, int64(2), late.ItemCount)
	assert.Equal(t, "10.00", late.TotalPrice.StringFixed(2))

	orphan := facts[1]
	assert.Equal(t, model.UnknownKey, orphan.CustomerKey)
	assert.Equal(t, model.UnknownKey, orphan.SellerKey)
	assert.False(t, orphan.IsLateDeliveryFlag)

	assert.Equal(t, 1, stats.Metrics.DroppedWithoutItems)
	assert.Equal(t, 1, stats.Items.InvalidPrice)
	assert.Equal(t, 1, stats.Keys.UnknownCustomers)
	assert.Equal(t, 2, stats.Facts)
}
