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
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the outcome of a check or of a whole validation run.
type Status string

const (
	StatusPass    Status = "PASS"
	StatusFail    Status = "FAIL"
	StatusWarning Status = "WARNING"
	StatusError   Status = "ERROR"
	StatusInfo    Status = "INFO"
)

// severity orders statuses for the overall result. INFO never affects it.
var severity = map[Status]int{
	StatusPass:    0,
	StatusInfo:    0,
	StatusWarning: 1,
	StatusFail:    2,
	StatusError:   3,
}

// Details carries the values a result was decided on.
type Details struct {
	Count   *int64            `json:"count,omitempty"`
	DWH     map[string]string `json:"dwh,omitempty"`
	Staging map[string]string `json:"staging,omitempty"`
	Columns []string          `json:"columns,omitempty"`
	Rows    [][]string        `json:"rows,omitempty"`
}

// Result is the outcome of one check.
type Result struct {
	Check    Check         `json:"check"`
	Status   Status        `json:"status"`
	Message  string        `json:"message"`
	Details  *Details      `json:"details,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Overall returns the most severe status among results, with
// ERROR > FAIL > WARNING > PASS.
func Overall(results []Result) Status {
	overall := StatusPass
	for _, r := range results {
		if severity[r.Status] > severity[overall] {
			overall = r.Status
		}
	}
	return overall
}

func evaluateCount(dwh, staging int64) (Status, string) {
	if dwh == staging {
		return StatusPass, fmt.Sprintf("counts match: %d", dwh)
	}
	return StatusFail, fmt.Sprintf("count mismatch: dwh=%d staging=%d (diff %d)", dwh, staging, dwh-staging)
}

func evaluateAggregates(dwh, staging map[string]decimal.Decimal, tolerance decimal.Decimal) (Status, string) {
	columns := make([]string, 0, len(dwh))
	for col := range dwh {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	var mismatches []string
	for _, col := range columns {
		other, ok := staging[col]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s: missing in staging", col))
			continue
		}
		diff := dwh[col].Sub(other).Abs()
		if diff.GreaterThan(tolerance) {
			mismatches = append(mismatches, fmt.Sprintf("%s: dwh=%s staging=%s (diff %s)",
				col, dwh[col].String(), other.String(), diff.String()))
		}
	}
	for col := range staging {
		if _, ok := dwh[col]; !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s: missing in dwh", col))
		}
	}

	if len(mismatches) > 0 {
		sort.Strings(mismatches)
		return StatusFail, "aggregate mismatch: " + strings.Join(mismatches, "; ")
	}
	return StatusPass, fmt.Sprintf("%d aggregates match within %s", len(columns), tolerance.String())
}

func evaluateZero(count int64, failStatus Status) (Status, string) {
	if count == 0 {
		return StatusPass, "no offending rows"
	}
	return failStatus, fmt.Sprintf("%d offending rows", count)
}

func evaluateEmpty(rows int) (Status, string) {
	if rows == 0 {
		return StatusPass, "no offending rows"
	}
	return StatusFail, fmt.Sprintf("%d offending rows", rows)
}
