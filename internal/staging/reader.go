//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package staging

import (
	"context"
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5"

	"github.com/orderdw/orderdw-etl/internal/db"
	"github.com/orderdw/orderdw-etl/internal/model"
)

// Read returns every row of a staging table as T, in source file order.
// NULL text columns read as empty strings.
func Read[T any](ctx context.Context, q db.DBTX, table string) ([]T, error) {
	columns := columnsOf[T]()
	exprs := make([]string, len(columns))
	for i, c := range columns {
		if isMetadataColumn(c) {
			exprs[i] = c
			continue
		}
		exprs[i] = fmt.Sprintf("COALESCE(%s, '') AS %s", c, c)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(exprs...).From(table).OrderBy(columnSourceRow)

	sql, args := sb.Build()
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	return records, nil
}

// ReadGeolocations reads staging.stg_geolocation.
func ReadGeolocations(ctx context.Context, q db.DBTX) ([]model.Geolocation, error) {
	return Read[model.Geolocation](ctx, q, TableGeolocation)
}

// ReadCustomers reads staging.stg_customers.
func ReadCustomers(ctx context.Context, q db.DBTX) ([]model.Customer, error) {
	return Read[model.Customer](ctx, q, TableCustomers)
}

// ReadSellers reads staging.stg_sellers.
func ReadSellers(ctx context.Context, q db.DBTX) ([]model.Seller, error) {
	return Read[model.Seller](ctx, q, TableSellers)
}

// ReadOrders reads staging.stg_orders.
func ReadOrders(ctx context.Context, q db.DBTX) ([]model.Order, error) {
	return Read[model.Order](ctx, q, TableOrders)
}

// ReadOrderItems reads staging.stg_order_items.
func ReadOrderItems(ctx context.Context, q db.DBTX) ([]model.OrderItem, error) {
	return Read[model.OrderItem](ctx, q, TableOrderItems)
}

// CheckColumns returns an error naming every column in want that table
// lacks. A missing table lacks all of them.
func CheckColumns(ctx context.Context, q db.DBTX, table string, want []string) error {
	have, err := db.TableColumns(ctx, q, table)
	if err != nil {
		return err
	}
	if len(have) == 0 {
		return fmt.Errorf("table %s does not exist (run 'orderdw-etl migrate up')", table)
	}

	present := make(map[string]struct{}, len(have))
	for _, c := range have {
		present[c] = struct{}{}
	}
	var missing []string
	for _, c := range want {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("table %s is missing columns: %s", table, strings.Join(missing, ", "))
	}
	return nil
}
