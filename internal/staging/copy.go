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
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jszwec/csvutil"

	"github.com/orderdw/orderdw-etl/internal/logging"
	"github.com/orderdw/orderdw-etl/internal/model"
)

// copyCSV decodes src into T records and COPYs them into table in batches.
// Records the CSV reader rejects are counted and skipped. A header missing
// any of T's columns fails the copy.
func copyCSV[T any, PT interface {
	*T
	model.StagingRecord
}](ctx context.Context, tx pgx.Tx, table pgx.Identifier, src io.Reader, opts copyOptions) (copyStats, error) {
	var stats copyStats

	dec, err := newDecoder(src)
	if errors.Is(err, io.EOF) {
		return stats, nil
	}
	if err != nil {
		return stats, err
	}

	columns := columnsOf[T]()
	batch := make([][]any, 0, opts.batchSize)
	var line int64

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := tx.CopyFrom(ctx, table, columns, pgx.CopyFromRows(batch))
		if err != nil {
			return fmt.Errorf("failed to copy into %s: %w", table.Sanitize(), err)
		}
		stats.rows += n
		batch = batch[:0]
		return nil
	}

	for {
		line++
		var rec T
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return stats, fmt.Errorf("failed to decode %s record %d: %w", table.Sanitize(), line, err)
			}
			stats.failed++
			logging.Debug().
				Str("table", table.Sanitize()).
				Int64("record", line).
				Err(err).
				Msg("Skipping malformed record")
			continue
		}

		PT(&rec).Stamp(line, opts.loadedAt)
		batch = append(batch, nullEmpty(PT(&rec).Values()))
		if len(batch) >= opts.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}

	return stats, flush()
}

// newDecoder reads the header of src. Every csv-tagged field of the target
// type must appear in it; extra columns are ignored.
func newDecoder(src io.Reader) (*csvutil.Decoder, error) {
	r := csv.NewReader(src)
	r.ReuseRecord = true

	dec, err := csvutil.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	dec.DisallowMissingColumns = true
	return dec, nil
}

// nullEmpty stores empty source fields as NULL.
func nullEmpty(values []any) []any {
	for i, v := range values {
		if s, ok := v.(string); ok && s == "" {
			values[i] = nil
		}
	}
	return values
}
