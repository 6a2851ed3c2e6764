//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/orderdw/orderdw-etl/internal/db"
	"github.com/orderdw/orderdw-etl/internal/logging"
	"github.com/orderdw/orderdw-etl/internal/model"
	"github.com/orderdw/orderdw-etl/internal/transform"
)

// ReplaceFacts replaces the content of fact_order_delivery. The table must
// carry every column of transform.FactColumns; a missing column fails
// before anything is truncated. Truncate and COPY share one transaction.
func ReplaceFacts(ctx context.Context, pool *pgxpool.Pool, facts []model.FactOrderDelivery) (int64, error) {
	rows := make([][]any, len(facts))
	for i := range facts {
		values, err := transform.FactValues(&facts[i], transform.FactColumns)
		if err != nil {
			return 0, err
		}
		rows[i] = encodeValues(values)
	}

	var copied int64
	err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		columns, err := db.TableColumns(ctx, tx, model.TableFactOrderDelivery)
		if err != nil {
			return err
		}
		if err := transform.CheckFactColumns(model.TableFactOrderDelivery, columns); err != nil {
			return err
		}

		if err := db.Truncate(ctx, tx, false, model.TableFactOrderDelivery); err != nil {
			return err
		}

		copied, err = copyRows(ctx, tx, model.TableFactOrderDelivery, transform.FactColumns, len(rows),
			func(i int) []any { return rows[i] })
		return err
	})
	if err != nil {
		return 0, err
	}

	logging.Info().Int64("rows", copied).Msg("Replaced fact table")
	return copied, nil
}

// encodeValues converts decimals to pgtype.Numeric so COPY can send them in
// binary form.
func encodeValues(values []any) []any {
	for i, v := range values {
		switch d := v.(type) {
		case decimal.Decimal:
			values[i] = Numeric(d)
		case decimal.NullDecimal:
			if d.Valid {
				values[i] = Numeric(d.Decimal)
			} else {
				values[i] = pgtype.Numeric{}
			}
		}
	}
	return values
}

// Numeric converts a decimal to its exact pgtype representation.
func Numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

// Decimal converts a scanned numeric back to a decimal. NULL and NaN read as
// invalid.
func Decimal(n pgtype.Numeric) decimal.NullDecimal {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: decimal.NewFromBigInt(n.Int, n.Exp), Valid: true}
}
