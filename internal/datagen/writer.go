//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jszwec/csvutil"

	"github.com/orderdw/orderdw-etl/internal/logging"
	"github.com/orderdw/orderdw-etl/internal/staging"
)

// FileInfo describes one written file.
type FileInfo struct {
	Path  string
	Table string
	Rows  int64
	Size  int64
}

// WriteDataset writes ds as CSV files into dir. files maps file names to
// staging tables, as in the staging configuration; each file receives the
// rows of its table. Files are written in file name order.
func WriteDataset(dir string, files map[string]string, ds *Dataset) ([]FileInfo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	written := make([]FileInfo, 0, len(names))
	for _, name := range names {
		table := files[name]
		path := filepath.Join(dir, name)

		var rows int64
		var err error
		switch table {
		case staging.TableGeolocation:
			rows, err = writeCSV(path, table, ds.Geolocations)
		case staging.TableCustomers:
			rows, err = writeCSV(path, table, ds.Customers)
		case staging.TableSellers:
			rows, err = writeCSV(path, table, ds.Sellers)
		case staging.TableOrders:
			rows, err = writeCSV(path, table, ds.Orders)
		case staging.TableOrderItems:
			rows, err = writeCSV(path, table, ds.OrderItems)
		default:
			return written, fmt.Errorf("no generated data for table %s (file %s)", table, name)
		}
		if err != nil {
			return written, err
		}

		info := FileInfo{Path: path, Table: table, Rows: rows}
		if st, err := os.Stat(path); err == nil {
			info.Size = st.Size()
		}
		written = append(written, info)

		logging.Info().
			Str("file", path).
			Int64("rows", rows).
			Str("size", FormatSize(info.Size)).
			Msg("Wrote source file")
	}
	return written, nil
}

func writeCSV[T any](path, table string, rows []T) (n int64, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	enc := csvutil.NewEncoder(w)
	if err := enc.EncodeHeader(new(T)); err != nil {
		return 0, fmt.Errorf("failed to write header of %s: %w", path, err)
	}

	progress := NewProgressReporter(table, int64(len(rows)), 100000)
	for i := range rows {
		if err := enc.Encode(&rows[i]); err != nil {
			return n, fmt.Errorf("failed to encode row %d of %s: %w", i+1, path, err)
		}
		n++
		progress.Update(1)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return n, fmt.Errorf("failed to write %s: %w", path, err)
	}
	progress.Done()
	return n, nil
}

// ProgressReporter tracks and reports data generation progress.
type ProgressReporter struct {
	tableName        string
	totalRows        int64
	currentRow       int64
	progressInterval int64
}

// NewProgressReporter creates a new progress reporter.
func NewProgressReporter(tableName string, totalRows int64, interval int64) *ProgressReporter {
	if interval < 1 {
		interval = 1
	}
	return &ProgressReporter{
		tableName:        tableName,
		totalRows:        totalRows,
		progressInterval: interval,
	}
}

// Update updates the progress and logs if necessary.
func (p *ProgressReporter) Update(rows int64) {
	oldRow := p.currentRow
	p.currentRow += rows

	// Check if we crossed a progress interval
	if p.currentRow/p.progressInterval > oldRow/p.progressInterval {
		pct := float64(p.currentRow) / float64(p.totalRows) * 100
		logging.Info().
			Str("table", p.tableName).
			Int64("rows", p.currentRow).
			Int64("total", p.totalRows).
			Float64("percent", pct).
			Msg("Writing rows")
	}
}

// Done logs completion.
func (p *ProgressReporter) Done() {
	logging.Debug().
		Str("table", p.tableName).
		Int64("rows", p.currentRow).
		Msg("Table complete")
}

// FormatSize formats a byte count as a human-readable string.
func FormatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
