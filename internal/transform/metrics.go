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
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderdw/orderdw-etl/internal/model"
)

const secondsPerDay = 24 * 60 * 60

var secondsPerHour = decimal.NewFromInt(60 * 60)

// Measure names, as used for the per-measure masking counters.
const (
	MeasureDeliveryTimeDays           = "delivery_time_days"
	MeasureEstimatedDeliveryTimeDays  = "estimated_delivery_time_days"
	MeasureDeliveryTimeDifferenceDays = "delivery_time_difference_days"
	MeasureTimeToApproveHours         = "time_to_approve_hours"
	MeasureSellerProcessingHours      = "seller_processing_hours"
	MeasureCarrierShippingHours       = "carrier_shipping_hours"
)

// OrderTimestamps holds the five lifecycle timestamps of an order. A nil
// field is missing or was unparseable.
type OrderTimestamps struct {
	Purchase          *time.Time
	Approved          *time.Time
	DeliveredCarrier  *time.Time
	DeliveredCustomer *time.Time
	EstimatedDelivery *time.Time
}

// Dates returns the timestamps truncated to calendar dates.
func (ts OrderTimestamps) Dates() OrderTimestamps {
	return OrderTimestamps{
		Purchase:          truncate(ts.Purchase),
		Approved:          truncate(ts.Approved),
		DeliveredCarrier:  truncate(ts.DeliveredCarrier),
		DeliveredCustomer: truncate(ts.DeliveredCustomer),
		EstimatedDelivery: truncate(ts.EstimatedDelivery),
	}
}

// OrderMetrics is an order joined with its item aggregate, carrying the
// derived delivery measures.
type OrderMetrics struct {
	OrderID    string
	CustomerID string
	SellerID   string
	Status     string

	// Timestamps are the parsed source values; Dates are the same values
	// truncated to calendar dates.
	Timestamps OrderTimestamps
	Dates      OrderTimestamps

	DeliveryTimeDays           *int64
	EstimatedDeliveryTimeDays  *int64
	DeliveryTimeDifferenceDays *int64
	TimeToApproveHours         decimal.NullDecimal
	SellerProcessingHours      decimal.NullDecimal
	CarrierShippingHours       decimal.NullDecimal
	IsLateDeliveryFlag         bool

	ItemCount         int64
	TotalFreightValue decimal.Decimal
	TotalPrice        decimal.Decimal
}

// MetricStats counts what happened while calculating metrics.
type MetricStats struct {
	Orders                int
	Joined                int
	DroppedWithoutItems   int
	UnparseableTimestamps int
	LateDeliveries        int

	// NegativeMasked counts, per measure, values that computed negative and
	// were stored as null.
	NegativeMasked map[string]int
}

// CalculateMetrics inner-joins orders with their item aggregates and derives
// the delivery measures. Orders without items are dropped. Day measures
// subtract calendar dates; hour measures subtract full timestamps and round
// to two decimals. Any measure that computes negative is set to null.
func CalculateMetrics(orders []model.Order, items []ItemAggregate) ([]OrderMetrics, MetricStats) {
	stats := MetricStats{Orders: len(orders), NegativeMasked: make(map[string]int)}

	byOrder := make(map[string]*ItemAggregate, len(items))
	for i := range items {
		byOrder[items[i].OrderID] = &items[i]
	}

	out := make([]OrderMetrics, 0, len(orders))
	for _, order := range orders {
		agg, ok := byOrder[order.OrderID]
		if !ok {
			stats.DroppedWithoutItems++
			continue
		}

		ts := OrderTimestamps{
			Purchase:          parseTracked(order.PurchaseTimestamp, &stats),
			Approved:          parseTracked(order.ApprovedAt, &stats),
			DeliveredCarrier:  parseTracked(order.DeliveredCarrierDate, &stats),
			DeliveredCustomer: parseTracked(order.DeliveredCustomerDate, &stats),
			EstimatedDelivery: parseTracked(order.EstimatedDeliveryDate, &stats),
		}
		dates := ts.Dates()

		m := OrderMetrics{
			OrderID:           order.OrderID,
			CustomerID:        order.CustomerID,
			SellerID:          agg.SellerID,
			Status:            order.Status,
			Timestamps:        ts,
			Dates:             dates,
			ItemCount:         agg.ItemCount,
			TotalFreightValue: agg.TotalFreightValue,
			TotalPrice:        agg.TotalPrice,
		}

		m.DeliveryTimeDays = daysBetween(dates.DeliveredCustomer, dates.Approved)
		m.EstimatedDeliveryTimeDays = daysBetween(dates.EstimatedDelivery, dates.Approved)
		m.DeliveryTimeDifferenceDays = daysBetween(dates.DeliveredCustomer, dates.EstimatedDelivery)
		m.TimeToApproveHours = hoursBetween(ts.Approved, ts.Purchase)
		m.SellerProcessingHours = hoursBetween(ts.DeliveredCarrier, ts.Approved)
		m.CarrierShippingHours = hoursBetween(ts.DeliveredCustomer, ts.DeliveredCarrier)

		// The flag is taken before masking so a late delivery keeps its flag.
		m.IsLateDeliveryFlag = dates.DeliveredCustomer != nil &&
			m.DeliveryTimeDifferenceDays != nil && *m.DeliveryTimeDifferenceDays > 0
		if m.IsLateDeliveryFlag {
			stats.LateDeliveries++
		}

		maskNegativeDays(&m.DeliveryTimeDays, MeasureDeliveryTimeDays, &stats)
		maskNegativeDays(&m.EstimatedDeliveryTimeDays, MeasureEstimatedDeliveryTimeDays, &stats)
		maskNegativeDays(&m.DeliveryTimeDifferenceDays, MeasureDeliveryTimeDifferenceDays, &stats)
		maskNegativeHours(&m.TimeToApproveHours, MeasureTimeToApproveHours, &stats)
		maskNegativeHours(&m.SellerProcessingHours, MeasureSellerProcessingHours, &stats)
		maskNegativeHours(&m.CarrierShippingHours, MeasureCarrierShippingHours, &stats)

		out = append(out, m)
	}

	stats.Joined = len(out)
	return out, stats
}

func parseTracked(s string, stats *MetricStats) *time.Time {
	t, ok := ParseTimestamp(s)
	if !ok {
		if strings.TrimSpace(s) != "" {
			stats.UnparseableTimestamps++
		}
		return nil
	}
	return &t
}

func truncate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := TruncateToDate(*t)
	return &d
}

// daysBetween returns a-b in whole days. Both arguments are calendar dates.
func daysBetween(a, b *time.Time) *int64 {
	if a == nil || b == nil {
		return nil
	}
	days := a.Unix()/secondsPerDay - b.Unix()/secondsPerDay
	return &days
}

// hoursBetween returns a-b in hours, rounded half to even at two decimals.
func hoursBetween(a, b *time.Time) decimal.NullDecimal {
	if a == nil || b == nil {
		return decimal.NullDecimal{}
	}
	// Seconds and nanoseconds separately: time.Sub saturates past ~292 years.
	secs := decimal.NewFromInt(a.Unix() - b.Unix()).
		Add(decimal.New(int64(a.Nanosecond()-b.Nanosecond()), -9))
	hours := secs.Div(secondsPerHour).RoundBank(2)
	return decimal.NullDecimal{Decimal: hours, Valid: true}
}

func maskNegativeDays(v **int64, measure string, stats *MetricStats) {
	if *v != nil && **v < 0 {
		*v = nil
		stats.NegativeMasked[measure]++
	}
}

func maskNegativeHours(v *decimal.NullDecimal, measure string, stats *MetricStats) {
	if v.Valid && v.Decimal.IsNegative() {
		*v = decimal.NullDecimal{}
		stats.NegativeMasked[measure]++
	}
}
