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

const dateKeyLayout = "2006-01-02"

// Lookups holds the surrogate key mappings read from the warehouse.
type Lookups struct {
	// DateKeys maps a calendar date to its dim_date key.
	DateKeys map[time.Time]int64

	// CustomerKeys and SellerKeys map natural keys of current dimension rows
	// to their surrogate keys.
	CustomerKeys map[string]int64
	SellerKeys   map[string]int64
}

// NewLookups returns empty lookups ready to be filled.
func NewLookups() Lookups {
	return Lookups{
		DateKeys:     make(map[time.Time]int64),
		CustomerKeys: make(map[string]int64),
		SellerKeys:   make(map[string]int64),
	}
}

// AddDate registers the key of a calendar date. The time of day is ignored.
func (l Lookups) AddDate(date time.Time, key int64) {
	l.DateKeys[TruncateToDate(date)] = key
}

// DateKey returns the key of the calendar date of *t, or nil when t is nil or
// the date is not in the date dimension.
func (l Lookups) DateKey(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	key, ok := l.DateKeys[TruncateToDate(*t)]
	if !ok {
		return nil
	}
	return &key
}

// DateKeys of one fact row.
type DateKeys struct {
	Purchase          *int64
	Approved          *int64
	DeliveredCarrier  *int64
	DeliveredCustomer *int64
	EstimatedDelivery *int64
}

// ResolvedOrder is an OrderMetrics row with its surrogate keys attached.
type ResolvedOrder struct {
	OrderMetrics
	DateKeys    DateKeys
	CustomerKey int64
	SellerKey   int64
}

// KeyStats counts lookup misses.
type KeyStats struct {
	// MissingDates lists present dates with no dim_date row, formatted
	// YYYY-MM-DD, with their occurrence counts.
	MissingDates     map[string]int
	UnknownCustomers int
	UnknownSellers   int
}

// ResolveKeys attaches date, customer and seller keys to each row. A date
// that misses the date dimension stays nil. A customer or seller that misses
// its dimension gets model.UnknownKey.
func ResolveKeys(rows []OrderMetrics, lookups Lookups) ([]ResolvedOrder, KeyStats) {
	stats := KeyStats{MissingDates: make(map[string]int)}
	out := make([]ResolvedOrder, 0, len(rows))

	dateKey := func(t *time.Time) *int64 {
		key := lookups.DateKey(t)
		if key == nil && t != nil {
			stats.MissingDates[t.Format(dateKeyLayout)]++
		}
		return key
	}

	for _, row := range rows {
		r := ResolvedOrder{
			OrderMetrics: row,
			DateKeys: DateKeys{
				Purchase:          dateKey(row.Dates.Purchase),
				Approved:          dateKey(row.Dates.Approved),
				DeliveredCarrier:  dateKey(row.Dates.DeliveredCarrier),
				DeliveredCustomer: dateKey(row.Dates.DeliveredCustomer),
				EstimatedDelivery: dateKey(row.Dates.EstimatedDelivery),
			},
			CustomerKey: model.UnknownKey,
			SellerKey:   model.UnknownKey,
		}

		if key, ok := lookups.CustomerKeys[row.CustomerID]; ok {
			r.CustomerKey = key
		} else {
			stats.UnknownCustomers++
		}
		if key, ok := lookups.SellerKeys[row.SellerID]; ok {
			r.SellerKey = key
		} else {
			stats.UnknownSellers++
		}

		out = append(out, r)
	}
	return out, stats
}
