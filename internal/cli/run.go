//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/orderdw/orderdw-etl/internal/events"
	"github.com/orderdw/orderdw-etl/internal/logging"
	"github.com/orderdw/orderdw-etl/internal/pipeline"
)

var (
	runDataDir     string
	runSkipStaging bool
	runValidate    bool
	runReportDir   string
	runFailOnWarn  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ETL pipeline",
	Long: `Run the pipeline: load the source files into staging, rebuild the
customer and seller dimensions, rebuild the order delivery fact table and,
with --validate, run the data quality checks.

Every stage replaces its target tables in a single transaction and a failed
stage stops the run. A failed staging or dimension stage leaves its tables
unchanged. Rebuilding the dimensions also empties the fact table, so when the
fact stage fails the fact table is left empty until the next successful run.

Example:
  orderdw-etl run --data-dir ./data
  orderdw-etl run --skip-staging --validate --report-dir ./reports`,
	RunE: runRun,
}

var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Load the source files into the staging tables only",
	Long: `Load every configured source file into its staging table. Each table
is truncated and reloaded in one transaction. A missing file is skipped with
a warning.

Example:
  orderdw-etl stage --data-dir ./data`,
	RunE: runStage,
}

func init() {
	for _, c := range []*cobra.Command{runCmd, stageCmd} {
		c.Flags().StringVar(&runDataDir, "data-dir", "",
			"directory holding the source CSV files")
	}
	runCmd.Flags().BoolVar(&runSkipStaging, "skip-staging", false,
		"start from the data already in the staging tables")
	runCmd.Flags().BoolVar(&runValidate, "validate", false,
		"run the data quality checks after loading")
	runCmd.Flags().StringVar(&runReportDir, "report-dir", "",
		"directory for the JSON validation report")
	runCmd.Flags().BoolVar(&runFailOnWarn, "fail-on-warning", false,
		"exit non-zero when validation ends with WARNING")
}

func runRun(cmd *cobra.Command, args []string) error {
	if runDataDir != "" {
		cfg.Staging.DataDir = runDataDir
	}
	if runSkipStaging {
		cfg.Pipeline.SkipStaging = true
	}
	if runValidate {
		cfg.Pipeline.ValidateAfter = true
	}
	if runReportDir != "" {
		cfg.Validate.ReportDir = runReportDir
	}
	if runFailOnWarn {
		cfg.Validate.FailOnWarning = true
	}

	return executeRun(cmd, pipeline.RunOptions{
		SkipStaging: cfg.Pipeline.SkipStaging,
		Validate:    cfg.Pipeline.ValidateAfter,
	})
}

func runStage(cmd *cobra.Command, args []string) error {
	if runDataDir != "" {
		cfg.Staging.DataDir = runDataDir
	}
	return executeRun(cmd, pipeline.RunOptions{StagingOnly: true})
}

func executeRun(cmd *cobra.Command, opts pipeline.RunOptions) error {
	if !opts.SkipStaging {
		if err := cfg.ValidateStage(); err != nil {
			return err
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	publisher := events.NewPublisher(cfg.Events)
	defer func() {
		if err := publisher.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close event publisher")
		}
	}()

	runner := pipeline.NewRunner(pool, cfg, publisher)
	res, err := runner.Run(ctx, opts)

	printStages(res)

	if err != nil {
		var se *pipeline.StageError
		if errors.As(err, &se) {
			logging.Error().
				Str("run_id", res.RunID).
				Str("stage", se.Stage).
				Str("table", se.Table).
				Err(se.Err).
				Msg("Run failed")
		}
		return err
	}

	if res.Validation != nil {
		fmt.Println()
		if err := res.Validation.WriteSummary(os.Stdout); err != nil {
			return err
		}
		return res.Validation.Err(cfg.Validate.FailOnWarning)
	}
	return nil
}

func printStages(res *pipeline.RunResult) {
	fmt.Printf("Run %s: %s in %s\n\n", res.RunID, res.Status, res.Elapsed().Round(time.Millisecond))

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tTABLE\tSTATUS\tROWS\tREJECTED\tELAPSED")
	for _, s := range res.Stages {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			s.Stage, s.Table, s.Status, s.Rows, s.Rejected, s.Elapsed().Round(time.Millisecond))
	}
	tw.Flush()
}
