//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package validation runs SQL data quality checks against the warehouse and
// reports per-check and overall results.
package validation

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed checks.yaml
var defaultChecks []byte

// CheckType selects how a check's query result is evaluated.
type CheckType string

const (
	TypeCompareCount        CheckType = "compare_count"
	TypeCompareAggregates   CheckType = "compare_aggregates"
	TypeExpectZero          CheckType = "expect_zero"
	TypeExpectZeroOrWarning CheckType = "expect_zero_or_warning"
	TypeExpectEmpty         CheckType = "expect_empty"
	TypeReportCount         CheckType = "report_count"
	TypeReportRows          CheckType = "report_rows"
)

const defaultAggregateTolerance = "0.01"

// Check is one entry of the check registry.
type Check struct {
	Name         string    `yaml:"name" json:"name"`
	Category     string    `yaml:"category" json:"category"`
	Description  string    `yaml:"description" json:"description"`
	Type         CheckType `yaml:"type" json:"type"`
	Query        string    `yaml:"query,omitempty" json:"-"`
	QueryDWH     string    `yaml:"query_dwh,omitempty" json:"-"`
	QueryStaging string    `yaml:"query_staging,omitempty" json:"-"`
	DetailsQuery string    `yaml:"details_query,omitempty" json:"-"`
	Tolerance    string    `yaml:"tolerance,omitempty" json:"-"`

	tolerance decimal.Decimal
}

type registry struct {
	Checks []Check `yaml:"checks"`
}

// DefaultChecks returns the built-in check registry.
func DefaultChecks() ([]Check, error) {
	return parseChecks(defaultChecks)
}

// LoadChecks reads a check registry from path, or the built-in registry when
// path is empty.
func LoadChecks(path string) ([]Check, error) {
	if path == "" {
		return DefaultChecks()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checks file: %w", err)
	}
	checks, err := parseChecks(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return checks, nil
}

func parseChecks(data []byte) ([]Check, error) {
	var reg registry
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&reg); err != nil {
		return nil, fmt.Errorf("failed to parse checks: %w", err)
	}
	if len(reg.Checks) == 0 {
		return nil, fmt.Errorf("no checks defined")
	}

	seen := make(map[string]bool, len(reg.Checks))
	for i := range reg.Checks {
		c := &reg.Checks[i]
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate check name '%s'", c.Name)
		}
		seen[c.Name] = true
		if err := c.validate(); err != nil {
			return nil, err
		}
	}
	return reg.Checks, nil
}

func (c *Check) validate() error {
	if c.Name == "" {
		return fmt.Errorf("check without a name")
	}

	switch c.Type {
	case TypeCompareCount, TypeCompareAggregates:
		if c.QueryDWH == "" || c.QueryStaging == "" {
			return fmt.Errorf("check '%s': %s requires query_dwh and query_staging", c.Name, c.Type)
		}
	case TypeExpectZero, TypeExpectZeroOrWarning, TypeExpectEmpty, TypeReportCount, TypeReportRows:
		if c.Query == "" {
			return fmt.Errorf("check '%s': %s requires query", c.Name, c.Type)
		}
	default:
		return fmt.Errorf("check '%s': unknown type '%s'", c.Name, c.Type)
	}

	if c.Type == TypeCompareAggregates {
		tol := c.Tolerance
		if tol == "" {
			tol = defaultAggregateTolerance
		}
		d, err := decimal.NewFromString(tol)
		if err != nil || d.IsNegative() {
			return fmt.Errorf("check '%s': invalid tolerance '%s'", c.Name, c.Tolerance)
		}
		c.tolerance = d
	}
	return nil
}
