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
	"github.com/shopspring/decimal"

	"github.com/orderdw/orderdw-etl/internal/model"
)

// ItemAggregate summarizes the items of one order.
type ItemAggregate struct {
	OrderID           string
	ItemCount         int64
	TotalFreightValue decimal.Decimal
	TotalPrice        decimal.Decimal

	// SellerID is the seller of the first item in input order that names one.
	SellerID string
}

// ItemStats counts what happened while aggregating items.
type ItemStats struct {
	Rows           int
	Orders         int
	InvalidPrice   int
	InvalidFreight int
}

// AggregateItems groups order items by order_id. Prices and freight values
// that are empty or non-numeric count as zero. Aggregates are returned in the
// order each order_id first appears.
func AggregateItems(items []model.OrderItem) ([]ItemAggregate, ItemStats) {
	stats := ItemStats{Rows: len(items)}
	index := make(map[string]int)
	var aggs []ItemAggregate

	for _, item := range items {
		i, ok := index[item.OrderID]
		if !ok {
			i = len(aggs)
			index[item.OrderID] = i
			aggs = append(aggs, ItemAggregate{
				OrderID:           item.OrderID,
				TotalFreightValue: decimal.Zero,
				TotalPrice:        decimal.Zero,
			})
		}
		agg := &aggs[i]

		agg.ItemCount++
		if price, ok := ParseAmount(item.Price); ok {
			agg.TotalPrice = agg.TotalPrice.Add(price)
		} else {
			stats.InvalidPrice++
		}
		if freight, ok := ParseAmount(item.FreightValue); ok {
			agg.TotalFreightValue = agg.TotalFreightValue.Add(freight)
		} else {
			stats.InvalidFreight++
		}
		if agg.SellerID == "" {
			agg.SellerID = item.SellerID
		}
	}

	stats.Orders = len(aggs)
	return aggs, stats
}
