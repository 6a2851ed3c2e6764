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
	"github.com/spf13/cobra"

	"github.com/orderdw/orderdw-etl/internal/datagen"
	"github.com/orderdw/orderdw-etl/internal/logging"
)

var (
	genOutputDir   string
	genCustomers   int
	genSellers     int
	genOrders      int
	genSeed        uint64
	genAnomalyRate float64
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a sample source dataset",
	Long: `Write the five source CSV files with fake customers, sellers, orders
and order items. A share of rows carries dirty values (unparseable prices and
timestamps, unknown zip prefixes, duplicate ids, orders without items) so the
pipeline's substitution rules are exercised.

Example:
  orderdw-etl generate --output-dir ./data --orders 10000 --seed 7`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genOutputDir, "output-dir", "",
		"directory to write the CSV files to")
	generateCmd.Flags().IntVar(&genCustomers, "customers", 0,
		"number of customers")
	generateCmd.Flags().IntVar(&genSellers, "sellers", 0,
		"number of sellers")
	generateCmd.Flags().IntVar(&genOrders, "orders", 0,
		"number of orders")
	generateCmd.Flags().Uint64Var(&genSeed, "seed", 0,
		"random seed (0 = random)")
	generateCmd.Flags().Float64Var(&genAnomalyRate, "anomaly-rate", -1,
		"probability of each kind of dirty value per row")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if genOutputDir != "" {
		cfg.Generate.OutputDir = genOutputDir
	}
	if genCustomers > 0 {
		cfg.Generate.Customers = genCustomers
	}
	if genSellers > 0 {
		cfg.Generate.Sellers = genSellers
	}
	if genOrders > 0 {
		cfg.Generate.Orders = genOrders
	}
	if genSeed > 0 {
		cfg.Generate.Seed = genSeed
	}
	if genAnomalyRate >= 0 {
		cfg.Generate.AnomalyRate = genAnomalyRate
	}

	if err := cfg.ValidateGenerate(); err != nil {
		return err
	}

	ds, anomalies := datagen.NewGenerator(datagen.OptionsFrom(cfg.Generate)).Generate()
	logging.Info().
		Int("unknown_zip_prefixes", anomalies.UnknownZipPrefixes).
		Int("duplicate_customers", anomalies.DuplicateCustomers).
		Int("duplicate_sellers", anomalies.DuplicateSellers).
		Int("invalid_amounts", anomalies.InvalidAmounts).
		Int("unparseable_timestamps", anomalies.UnparseableTimestamps).
		Int("missing_timestamps", anomalies.MissingTimestamps).
		Int("carrier_before_approval", anomalies.CarrierBeforeApproval).
		Int("orders_without_items", anomalies.OrdersWithoutItems).
		Msg("Injected anomalies")

	files, err := datagen.WriteDataset(cfg.Generate.OutputDir, cfg.Staging.Files, ds)
	if err != nil {
		return err
	}

	for _, f := range files {
		cmd.Printf("%-60s %8d rows  %s\n", f.Path, f.Rows, datagen.FormatSize(f.Size))
	}
	return nil
}
