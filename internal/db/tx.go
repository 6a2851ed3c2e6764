//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WithTx runs fn inside a transaction on a pooled connection. The
// transaction is committed when fn returns nil and rolled back otherwise;
// the connection goes back to the pool either way.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	return pgx.BeginFunc(ctx, conn, fn)
}

// Truncate empties the given tables in one statement. With cascade set,
// tables holding foreign keys to them are emptied as well.
func Truncate(ctx context.Context, tx pgx.Tx, cascade bool, tables ...string) error {
	sanitized := make([]string, 0, len(tables))
	for _, t := range tables {
		ident, err := Identifier(t)
		if err != nil {
			return err
		}
		sanitized = append(sanitized, ident.Sanitize())
	}

	sql := "TRUNCATE TABLE " + strings.Join(sanitized, ", ")
	if cascade {
		sql += " CASCADE"
	}

	if _, err := tx.Exec(ctx, sql); err != nil {
		return fmt.Errorf("failed to truncate %v: %w", tables, err)
	}
	return nil
}
