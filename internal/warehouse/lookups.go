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
	"fmt"
	"time"

	"github.com/huandu/go-sqlbuilder"

	"github.com/orderdw/orderdw-etl/internal/db"
	"github.com/orderdw/orderdw-etl/internal/logging"
	"github.com/orderdw/orderdw-etl/internal/model"
	"github.com/orderdw/orderdw-etl/internal/transform"
)

// LoadLookups reads the date dimension and the natural to surrogate key
// mappings of the current customer and seller rows.
func LoadLookups(ctx context.Context, q db.DBTX) (transform.Lookups, error) {
	lookups := transform.NewLookups()

	dates := sqlbuilder.PostgreSQL.NewSelectBuilder()
	dates.Select("full_date", "date_key").From(model.TableDimDate)
	err := scanPairs(ctx, q, dates, func(date time.Time, key int64) {
		lookups.AddDate(date, key)
	})
	if err != nil {
		return lookups, fmt.Errorf("failed to load %s: %w", model.TableDimDate, err)
	}

	if err := loadKeys(ctx, q, model.TableDimCustomer, "customer_id", "customer_key", lookups.CustomerKeys); err != nil {
		return lookups, err
	}
	if err := loadKeys(ctx, q, model.TableDimSeller, "seller_id", "seller_key", lookups.SellerKeys); err != nil {
		return lookups, err
	}

	logging.Debug().
		Int("dates", len(lookups.DateKeys)).
		Int("customers", len(lookups.CustomerKeys)).
		Int("sellers", len(lookups.SellerKeys)).
		Msg("Loaded key lookups")

	return lookups, nil
}

func loadKeys(ctx context.Context, q db.DBTX, table, naturalKey, surrogateKey string, into map[string]int64) error {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(naturalKey, surrogateKey).
		From(table).
		Where(sb.Equal("is_current", true))

	err := scanPairs(ctx, q, sb, func(id string, key int64) {
		into[id] = key
	})
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", table, err)
	}
	return nil
}

func scanPairs[K any, V any](ctx context.Context, q db.DBTX, sb *sqlbuilder.SelectBuilder, fn func(K, V)) error {
	sql, args := sb.Build()
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var k K
		var v V
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		fn(k, v)
	}
	return rows.Err()
}
