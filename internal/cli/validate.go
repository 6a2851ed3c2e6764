//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/orderdw/orderdw-etl/internal/pipeline"
)

var (
	validateChecks    string
	validateReportDir string
	validateFailWarn  bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the data quality checks against the warehouse",
	Long: `Run the data quality checks: row counts and aggregates against
staging, key integrity, duplicates, business rules and NULL checks. A summary
table is printed; with --report-dir a JSON report is written as well.

The command exits non-zero when the overall status is FAIL or ERROR, or
WARNING with --fail-on-warning.

Example:
  orderdw-etl validate --report-dir ./reports
  orderdw-etl validate --checks ./my-checks.yaml --fail-on-warning`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateChecks, "checks", "",
		"YAML check registry (default: built-in checks)")
	validateCmd.Flags().StringVar(&validateReportDir, "report-dir", "",
		"directory for the JSON report")
	validateCmd.Flags().BoolVar(&validateFailWarn, "fail-on-warning", false,
		"exit non-zero when the overall status is WARNING")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if validateChecks != "" {
		cfg.Validate.ChecksFile = validateChecks
	}
	if validateReportDir != "" {
		cfg.Validate.ReportDir = validateReportDir
	}
	if validateFailWarn {
		cfg.Validate.FailOnWarning = true
	}

	ctx, cancel := signalContext()
	defer cancel()

	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	report, err := pipeline.Validate(ctx, pool, cfg.Validate)
	if err != nil {
		return err
	}

	if err := report.WriteSummary(os.Stdout); err != nil {
		return err
	}
	return report.Err(cfg.Validate.FailOnWarning)
}
