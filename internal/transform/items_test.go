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
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdw/orderdw-etl/internal/model"
)

func TestAggregateItems(t *testing.T) {
	t.Run("invalid prices count as zero", func(t *testing.T) {
		aggs, stats := AggregateItems([]model.OrderItem{
			{OrderID: "o1", SellerID: "s1", Price: "10.00", FreightValue: "1.50"},
			{OrderID: "o1", SellerID: "s1", Price: "bad", FreightValue: "1.50"},
			{OrderID: "o1", SellerID: "s1", Price: "5.00", FreightValue: ""},
		})

		require.Len(t, aggs, 1)
		assert.Equal(t, int64(3), aggs[0].ItemCount)
		assert.True(t, decimal.RequireFromString("15.00").Equal(aggs[0].TotalPrice), aggs[0].TotalPrice.String())
		assert.True(t, decimal.RequireFromString("3.00").Equal(aggs[0].TotalFreightValue))
		assert.Equal(t, 1, stats.InvalidPrice)
		assert.Equal(t, 1, stats.InvalidFreight)
	})

	t.Run("seller is the first item's seller", func(t *testing.T) {
		aggs, _ := AggregateItems([]model.OrderItem{
			{OrderID: "o1", SellerID: "s1", Price: "1"},
			{OrderID: "o1", SellerID: "s2", Price: "1"},
		})

		require.Len(t, aggs, 1)
		assert.Equal(t, "s1", aggs[0].SellerID)
	})

	t.Run("orders keep first-seen order", func(t *testing.T) {
		aggs, stats := AggregateItems([]model.OrderItem{
			{OrderID: "o2", Price: "1"},
			{OrderID: "o1", Price: "2"},
			{OrderID: "o2", Price: "3"},
		})

		require.Len(t, aggs, 2)
		assert.Equal(t, "o2", aggs[0].OrderID)
		assert.Equal(t, "o1", aggs[1].OrderID)
		assert.True(t, decimal.NewFromInt(4).Equal(aggs[0].TotalPrice))
		assert.Equal(t, 2, stats.Orders)
		assert.Equal(t, 3, stats.Rows)
	})

	t.Run("all amounts invalid", func(t *testing.T) {
		aggs, _ := AggregateItems([]model.OrderItem{{OrderID: "o1", Price: "n/a", FreightValue: "n/a"}})

		require.Len(t, aggs, 1)
		assert.True(t, aggs[0].TotalPrice.IsZero())
		assert.True(t, aggs[0].TotalFreightValue.IsZero())
	})
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"10.00", "10", true},
		{" 5.5 ", "5.5", true},
		{"1e2", "100", true},
		{"", "0", false},
		{"bad", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAmount(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), got.String())
		})
	}
}
