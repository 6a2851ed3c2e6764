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
	"time"

	"github.com/orderdw/orderdw-etl/internal/model"
)

// FactStats collects the counters of every step of BuildFacts.
type FactStats struct {
	Items   ItemStats
	Metrics MetricStats
	Keys    KeyStats
	Facts   int
}

// BuildFacts runs item aggregation, metric calculation, key resolution and
// fact assembly in sequence.
func BuildFacts(orders []model.Order, items []model.OrderItem, lookups Lookups, loadedAt time.Time) ([]model.FactOrderDelivery, FactStats, error) {
	var stats FactStats

	aggs, itemStats := AggregateItems(items)
	stats.Items = itemStats

	metrics, metricStats := CalculateMetrics(orders, aggs)
	stats.Metrics = metricStats

	resolved, keyStats := ResolveKeys(metrics, lookups)
	stats.Keys = keyStats

	facts, err := AssembleFacts(resolved, loadedAt)
	if err != nil {
		return nil, stats, err
	}
	stats.Facts = len(facts)
	return facts, stats, nil
}
