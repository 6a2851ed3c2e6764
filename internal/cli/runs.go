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
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/orderdw/orderdw-etl/internal/db"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs from the run log",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		exists, err := db.RunLogExists(ctx, pool)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("run log table not found; run 'orderdw-etl migrate up' first")
		}

		entries, err := db.RecentRuns(ctx, pool, runsLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			cmd.Println("No runs recorded")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tSTARTED\tSTAGE\tTABLE\tSTATUS\tROWS\tELAPSED\tERROR")
		for _, e := range entries {
			msg := ""
			if e.Error != nil {
				msg = *e.Error
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
				e.RunID, e.StartedAt.Local().Format(time.DateTime), e.Stage, e.TargetTable,
				e.Status, e.Rows, e.Duration().Round(time.Millisecond), msg)
		}
		return tw.Flush()
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 5, "number of runs to show")
}
