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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderdw/orderdw-etl/internal/config"
	"github.com/orderdw/orderdw-etl/internal/db"
	"github.com/orderdw/orderdw-etl/internal/logging"
)

// ErrTooManyErrors is returned when the share of malformed records in a file
// exceeds the configured maximum.
var ErrTooManyErrors = errors.New("too many malformed records")

// FileResult describes the load of one source file.
type FileResult struct {
	File     string
	Table    string
	Rows     int64
	Failed   int64
	Checksum string
	Skipped  bool
	Elapsed  time.Duration
}

// ErrorFraction is the share of records that could not be decoded.
func (r FileResult) ErrorFraction() float64 {
	total := r.Rows + r.Failed
	if total == 0 {
		return 0
	}
	return float64(r.Failed) / float64(total)
}

// Loader copies source CSV files into staging tables.
type Loader struct {
	pool *pgxpool.Pool
	cfg  config.StagingConfig
	now  func() time.Time
}

// NewLoader creates a Loader for the given staging configuration.
func NewLoader(pool *pgxpool.Pool, cfg config.StagingConfig) *Loader {
	return &Loader{pool: pool, cfg: cfg, now: time.Now}
}

// Mapping is one configured file to table pair.
type Mapping struct {
	File  string
	Table string
}

// Mappings returns the configured file to table pairs in load order: known
// staging tables first in Tables order, then any others by file name.
func Mappings(files map[string]string) []Mapping {
	rank := make(map[string]int, len(Tables))
	for i, t := range Tables {
		rank[t] = i
	}

	mappings := make([]Mapping, 0, len(files))
	for file, table := range files {
		mappings = append(mappings, Mapping{File: file, Table: table})
	}
	sort.Slice(mappings, func(i, j int) bool {
		ri, iok := rank[mappings[i].Table]
		rj, jok := rank[mappings[j].Table]
		switch {
		case iok && jok && ri != rj:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return mappings[i].File < mappings[j].File
		}
	})
	return mappings
}

// LoadFile replaces the content of table with the records of file. The
// truncate and every COPY batch share one transaction, so a failure leaves
// the previous content in place. A missing file is skipped with a warning.
func (l *Loader) LoadFile(ctx context.Context, file, table string) (FileResult, error) {
	result := FileResult{File: file, Table: table}
	start := time.Now()

	ent, err := entityFor(table)
	if err != nil {
		return result, err
	}
	ident, err := db.Identifier(table)
	if err != nil {
		return result, err
	}

	path := filepath.Join(l.cfg.DataDir, file)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logging.Warn().Str("file", path).Str("table", table).Msg("Source file not found, skipping")
		result.Skipped = true
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	logging.Info().Str("file", path).Str("table", table).Msg("Loading staging table")

	hash := xxhash.New()
	src := io.TeeReader(f, hash)
	opts := copyOptions{batchSize: l.batchSize(), loadedAt: l.now().UTC()}

	err = db.WithTx(ctx, l.pool, func(tx pgx.Tx) error {
		if err := CheckColumns(ctx, tx, table, ent.columns); err != nil {
			return err
		}
		if err := db.Truncate(ctx, tx, false, table); err != nil {
			return err
		}
		stats, err := ent.load(ctx, tx, ident, src, opts)
		result.Rows, result.Failed = stats.rows, stats.failed
		if err != nil {
			return err
		}
		if frac := result.ErrorFraction(); frac > l.cfg.MaxErrorFraction {
			return fmt.Errorf("%w: %d of %d records in %s (%.2f > %.2f)", ErrTooManyErrors,
				result.Failed, result.Rows+result.Failed, file, frac, l.cfg.MaxErrorFraction)
		}
		return nil
	})
	result.Elapsed = time.Since(start)
	if err != nil {
		return result, err
	}

	// Drain anything the decoder left unread so the checksum covers the file.
	if _, err := io.Copy(io.Discard, src); err != nil {
		return result, fmt.Errorf("failed to read %s: %w", path, err)
	}
	result.Checksum = fmt.Sprintf("%016x", hash.Sum64())

	event := logging.Info()
	if result.Failed > 0 {
		event = logging.Warn()
	}
	event.
		Str("table", table).
		Int64("rows", result.Rows).
		Int64("failed", result.Failed).
		Str("checksum", result.Checksum).
		Dur("elapsed", result.Elapsed).
		Msg("Loaded staging table")

	return result, nil
}

func (l *Loader) batchSize() int {
	if l.cfg.BatchSize < 1 {
		return 10000
	}
	return l.cfg.BatchSize
}
