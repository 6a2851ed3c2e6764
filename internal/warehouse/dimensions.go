//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package warehouse writes dimension and fact rows to the dwh schema and
// reads the surrogate key lookups back.
package warehouse

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderdw/orderdw-etl/internal/db"
	"github.com/orderdw/orderdw-etl/internal/logging"
	"github.com/orderdw/orderdw-etl/internal/model"
)

// DimensionCounts reports the rows written by ReplaceDimensions.
type DimensionCounts struct {
	Customers int64
	Sellers   int64
}

// ReplaceDimensions replaces the content of dim_customer and dim_seller in
// one transaction. The truncate cascades to fact_order_delivery, which is
// rebuilt by the fact stage. On error nothing is changed.
func ReplaceDimensions(ctx context.Context, pool *pgxpool.Pool, customers []model.CustomerDimension, sellers []model.SellerDimension) (DimensionCounts, error) {
	var counts DimensionCounts

	err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		if err := db.Truncate(ctx, tx, true,
			model.TableDimCustomer, model.TableDimSeller, model.TableFactOrderDelivery); err != nil {
			return err
		}

		n, err := copyRows(ctx, tx, model.TableDimCustomer, model.CustomerDimensionColumns, len(customers),
			func(i int) []any { return customers[i].Values() })
		if err != nil {
			return err
		}
		counts.Customers = n

		n, err = copyRows(ctx, tx, model.TableDimSeller, model.SellerDimensionColumns, len(sellers),
			func(i int) []any { return sellers[i].Values() })
		if err != nil {
			return err
		}
		counts.Sellers = n
		return nil
	})
	if err != nil {
		return DimensionCounts{}, err
	}

	logging.Info().
		Int64("customers", counts.Customers).
		Int64("sellers", counts.Sellers).
		Msg("Replaced dimension tables")

	return counts, nil
}

// copyRows streams n rows into table with COPY.
func copyRows(ctx context.Context, tx pgx.Tx, table string, columns []string, n int, row func(int) []any) (int64, error) {
	ident, err := db.Identifier(table)
	if err != nil {
		return 0, err
	}

	i := 0
	src := pgx.CopyFromFunc(func() ([]any, error) {
		if i >= n {
			return nil, nil
		}
		values := row(i)
		i++
		return values, nil
	})

	copied, err := tx.CopyFrom(ctx, ident, columns, src)
	if err != nil {
		return 0, fmt.Errorf("failed to copy into %s: %w", table, err)
	}
	return copied, nil
}
