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
	"strconv"

	"github.com/spf13/cobra"

	"github.com/orderdw/orderdw-etl/internal/db"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the staging and warehouse schema",
	Long: `Apply or roll back the embedded schema migrations. They create the
staging and dwh schemas, the staging tables, the dimensions, the seeded
dim_date table, the fact table and the run log.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(mg *db.Migrator) error {
			return mg.Up()
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations (all of them unless --steps is set)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(mg *db.Migrator) error {
			return mg.Down(migrateSteps)
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(mg *db.Migrator) error {
			version, dirty, err := mg.Version()
			if err != nil {
				return err
			}
			cmd.Printf("version %d", version)
			if dirty {
				cmd.Print(" (dirty)")
			}
			cmd.Println()
			return nil
		})
	},
}

var migrateForceCmd = &cobra.Command{
	Use:   "force VERSION",
	Short: "Set the schema version without running migrations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version '%s': %w", args[0], err)
		}
		return withMigrator(func(mg *db.Migrator) error {
			return mg.Force(version)
		})
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 0,
		"number of migrations to roll back (0 = all)")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
	migrateCmd.AddCommand(migrateForceCmd)
}

func withMigrator(fn func(mg *db.Migrator) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	mg, err := db.NewMigrator(pool, cfg.LogLevel == "debug")
	if err != nil {
		return err
	}
	defer mg.Close()

	return fn(mg)
}
