//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package validation

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/orderdw/orderdw-etl/internal/db"
	"github.com/orderdw/orderdw-etl/internal/logging"
	"github.com/orderdw/orderdw-etl/internal/warehouse"
)

// maxDetailRows caps the sample rows kept for a result.
const maxDetailRows = 20

// Runner executes checks against a database.
type Runner struct {
	q      db.DBTX
	checks []Check
	now    func() time.Time
}

// NewRunner creates a Runner for checks.
func NewRunner(q db.DBTX, checks []Check) *Runner {
	return &Runner{q: q, checks: checks, now: time.Now}
}

// Run executes every check in order. A check whose query fails is reported
// as ERROR and the remaining checks still run; only context cancellation
// stops the run early.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: r.now().UTC()}

	for _, c := range r.checks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := r.RunCheck(ctx, c)
		report.Results = append(report.Results, res)

		event := logging.Debug()
		switch res.Status {
		case StatusFail, StatusError:
			event = logging.Error()
		case StatusWarning:
			event = logging.Warn()
		}
		event.Str("check", c.Name).
			Str("status", string(res.Status)).
			Dur("elapsed", res.Duration).
			Msg(res.Message)
	}

	report.FinishedAt = r.now().UTC()
	report.Status = Overall(report.Results)
	return report, nil
}

// RunCheck executes a single check.
func (r *Runner) RunCheck(ctx context.Context, c Check) Result {
	start := r.now()
	res := Result{Check: c}

	var err error
	switch c.Type {
	case TypeCompareCount:
		err = r.compareCount(ctx, c, &res)
	case TypeCompareAggregates:
		err = r.compareAggregates(ctx, c, &res)
	case TypeExpectZero:
		err = r.expectZero(ctx, c, StatusFail, &res)
	case TypeExpectZeroOrWarning:
		err = r.expectZero(ctx, c, StatusWarning, &res)
	case TypeExpectEmpty:
		err = r.expectEmpty(ctx, c, &res)
	case TypeReportCount:
		var n int64
		if n, err = r.count(ctx, c.Query); err == nil {
			res.Status = StatusInfo
			res.Message = fmt.Sprintf("%d rows", n)
			res.Details = &Details{Count: &n}
		}
	case TypeReportRows:
		var d *Details
		var n int
		if d, n, err = r.rows(ctx, c.Query); err == nil {
			res.Status = StatusInfo
			res.Message = fmt.Sprintf("%d rows", n)
			res.Details = d
		}
	default:
		err = fmt.Errorf("unknown check type '%s'", c.Type)
	}

	if err != nil {
		res.Status = StatusError
		res.Message = err.Error()
		res.Details = nil
	}
	res.Duration = r.now().Sub(start)
	return res
}

func (r *Runner) compareCount(ctx context.Context, c Check, res *Result) error {
	dwh, err := r.count(ctx, c.QueryDWH)
	if err != nil {
		return fmt.Errorf("dwh query: %w", err)
	}
	staging, err := r.count(ctx, c.QueryStaging)
	if err != nil {
		return fmt.Errorf("staging query: %w", err)
	}
	res.Status, res.Message = evaluateCount(dwh, staging)
	res.Details = &Details{
		DWH:     map[string]string{"count": strconv.FormatInt(dwh, 10)},
		Staging: map[string]string{"count": strconv.FormatInt(staging, 10)},
	}
	return nil
}

func (r *Runner) compareAggregates(ctx context.Context, c Check, res *Result) error {
	dwh, err := r.aggregates(ctx, c.QueryDWH)
	if err != nil {
		return fmt.Errorf("dwh query: %w", err)
	}
	staging, err := r.aggregates(ctx, c.QueryStaging)
	if err != nil {
		return fmt.Errorf("staging query: %w", err)
	}
	res.Status, res.Message = evaluateAggregates(dwh, staging, c.tolerance)
	res.Details = &Details{DWH: decimalStrings(dwh), Staging: decimalStrings(staging)}
	return nil
}

func (r *Runner) expectZero(ctx context.Context, c Check, failStatus Status, res *Result) error {
	n, err := r.count(ctx, c.Query)
	if err != nil {
		return err
	}
	res.Status, res.Message = evaluateZero(n, failStatus)
	res.Details = &Details{Count: &n}

	if n > 0 && c.DetailsQuery != "" {
		sample, _, err := r.rows(ctx, c.DetailsQuery)
		if err != nil {
			logging.Warn().Err(err).Str("check", c.Name).Msg("Failed to fetch sample rows")
			return nil
		}
		res.Details.Columns = sample.Columns
		res.Details.Rows = sample.Rows
	}
	return nil
}

func (r *Runner) expectEmpty(ctx context.Context, c Check, res *Result) error {
	d, n, err := r.rows(ctx, c.Query)
	if err != nil {
		return err
	}
	res.Status, res.Message = evaluateEmpty(n)
	if n > 0 {
		res.Details = d
	}
	return nil
}

func (r *Runner) count(ctx context.Context, query string) (int64, error) {
	var n *int64
	if err := r.q.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	if n == nil {
		return 0, nil
	}
	return *n, nil
}

// aggregates reads the single row of query as column name to decimal. NULL
// reads as zero.
func (r *Runner) aggregates(ctx context.Context, query string) (map[string]decimal.Decimal, error) {
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	values, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}

	out := make(map[string]decimal.Decimal, len(values))
	for col, v := range values {
		d, err := toDecimal(v)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		out[col] = d
	}
	return out, nil
}

// rows returns the column names, up to maxDetailRows formatted rows and the
// total number of rows of query.
func (r *Runner) rows(ctx context.Context, query string) (*Details, int, error) {
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	d := &Details{}
	for _, fd := range rows.FieldDescriptions() {
		d.Columns = append(d.Columns, fd.Name)
	}

	n := 0
	for rows.Next() {
		n++
		if len(d.Rows) >= maxDetailRows {
			continue
		}
		values, err := rows.Values()
		if err != nil {
			return nil, 0, err
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		d.Rows = append(d.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return d, n, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, nil
	case int16:
		return decimal.NewFromInt(int64(x)), nil
	case int32:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case pgtype.Numeric:
		if !x.Valid {
			return decimal.Zero, nil
		}
		d := warehouse.Decimal(x)
		if !d.Valid {
			return decimal.Zero, fmt.Errorf("non-finite numeric")
		}
		return d.Decimal, nil
	case *big.Int:
		return decimal.NewFromBigInt(x, 0), nil
	case string:
		return decimal.NewFromString(x)
	default:
		return decimal.Zero, fmt.Errorf("unsupported aggregate type %T", v)
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case pgtype.Numeric:
		if d := warehouse.Decimal(x); d.Valid {
			return d.Decimal.String()
		}
		return "NULL"
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.DateTime)
	case []byte:
		return string(x)
	case [16]byte:
		return uuid.UUID(x).String()
	default:
		return fmt.Sprint(x)
	}
}

func decimalStrings(m map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v.String()
	}
	return out
}
