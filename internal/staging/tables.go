//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package staging lands the raw source files in the staging schema and reads
// staging rows back as typed records.
package staging

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5"

	"github.com/orderdw/orderdw-etl/internal/model"
)

// Staging table names.
const (
	TableGeolocation = "staging.stg_geolocation"
	TableCustomers   = "staging.stg_customers"
	TableSellers     = "staging.stg_sellers"
	TableOrders      = "staging.stg_orders"
	TableOrderItems  = "staging.stg_order_items"
)

// Tables lists the staging tables in load order.
var Tables = []string{TableGeolocation, TableCustomers, TableSellers, TableOrders, TableOrderItems}

// Metadata columns stamped by the loader rather than read from the file.
const (
	columnSourceRow     = "_source_row"
	columnLoadTimestamp = "_load_timestamp"
)

// copier copies one decoded CSV stream into a staging table.
type copier func(ctx context.Context, tx pgx.Tx, table pgx.Identifier, src io.Reader, opts copyOptions) (copyStats, error)

type entity struct {
	columns []string
	load    copier
}

var entities = map[string]entity{
	TableGeolocation: newEntity[model.Geolocation](),
	TableCustomers:   newEntity[model.Customer](),
	TableSellers:     newEntity[model.Seller](),
	TableOrders:      newEntity[model.Order](),
	TableOrderItems:  newEntity[model.OrderItem](),
}

func newEntity[T any, PT interface {
	*T
	model.StagingRecord
}]() entity {
	return entity{
		columns: columnsOf[T](),
		load:    copyCSV[T, PT],
	}
}

func entityFor(table string) (entity, error) {
	e, ok := entities[table]
	if !ok {
		return entity{}, fmt.Errorf("no staging record type for table '%s'", table)
	}
	return e, nil
}

// columnsOf returns the db-tagged columns of T in field order.
func columnsOf[T any]() []string {
	return sqlbuilder.NewStruct(new(T)).Columns()
}

func isMetadataColumn(c string) bool {
	return c == columnSourceRow || c == columnLoadTimestamp
}

type copyOptions struct {
	batchSize int
	loadedAt  time.Time
}

type copyStats struct {
	rows   int64
	failed int64
}
