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

// DimensionStats counts what happened while building a dimension.
type DimensionStats struct {
	Rows          int
	Unique        int
	DuplicateRows int
	GeoMisses     int
}

// BuildCustomerDimension deduplicates customers by customer_id, keeping the
// last row seen, and enriches each one with city and state from the
// geolocation lookup. Customers whose prefix has no match get UnknownCity and
// UnknownState. Every row is stamped as current from loadedAt.
func BuildCustomerDimension(rows []model.Customer, geo GeoLookup, loadedAt time.Time) ([]model.CustomerDimension, DimensionStats) {
	keep := lastOccurrence(len(rows), func(i int) string { return rows[i].CustomerID })
	stats := DimensionStats{Rows: len(rows), Unique: len(keep), DuplicateRows: len(rows) - len(keep)}

	dims := make([]model.CustomerDimension, 0, len(keep))
	for i, row := range rows {
		if keep[row.CustomerID] != i {
			continue
		}
		loc, ok := resolveLocation(geo, row.ZipCodePrefix)
		if !ok {
			stats.GeoMisses++
		}
		dims = append(dims, model.CustomerDimension{
			CustomerID:       row.CustomerID,
			CustomerUniqueID: row.CustomerUniqueID,
			ZipCodePrefix:    NormalizeZipPrefix(row.ZipCodePrefix),
			City:             loc.City,
			State:            loc.State,
			SCD:              currentSCD(loadedAt),
		})
	}
	return dims, stats
}

// BuildSellerDimension is BuildCustomerDimension for sellers, keyed by
// seller_id.
func BuildSellerDimension(rows []model.Seller, geo GeoLookup, loadedAt time.Time) ([]model.SellerDimension, DimensionStats) {
	keep := lastOccurrence(len(rows), func(i int) string { return rows[i].SellerID })
	stats := DimensionStats{Rows: len(rows), Unique: len(keep), DuplicateRows: len(rows) - len(keep)}

	dims := make([]model.SellerDimension, 0, len(keep))
	for i, row := range rows {
		if keep[row.SellerID] != i {
			continue
		}
		loc, ok := resolveLocation(geo, row.ZipCodePrefix)
		if !ok {
			stats.GeoMisses++
		}
		dims = append(dims, model.SellerDimension{
			SellerID:      row.SellerID,
			ZipCodePrefix: NormalizeZipPrefix(row.ZipCodePrefix),
			City:          loc.City,
			State:         loc.State,
			SCD:           currentSCD(loadedAt),
		})
	}
	return dims, stats
}

// lastOccurrence maps each key to the index of its last row. Emitting rows in
// input order and skipping any index that is not the last occurrence keeps the
// surviving rows in the order of their final appearance.
func lastOccurrence(n int, key func(int) string) map[string]int {
	last := make(map[string]int, n)
	for i := 0; i < n; i++ {
		last[key(i)] = i
	}
	return last
}

func resolveLocation(geo GeoLookup, prefix string) (GeoLocation, bool) {
	if loc, ok := geo.Resolve(prefix); ok {
		return loc, true
	}
	return GeoLocation{City: model.UnknownCity, State: model.UnknownState}, false
}

func currentSCD(loadedAt time.Time) model.SCD {
	return model.SCD{
		EffectiveStartDate: loadedAt,
		EffectiveEndDate:   nil,
		IsCurrent:          true,
	}
}
