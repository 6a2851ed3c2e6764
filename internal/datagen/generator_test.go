//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/jszwec/csvutil"

	"github.com/orderdw/orderdw-etl/internal/config"
	"github.com/orderdw/orderdw-etl/internal/model"
	"github.com/orderdw/orderdw-etl/internal/transform"
)

func testOptions(rate float64) Options {
	return Options{
		Customers:   50,
		Sellers:     10,
		Orders:      80,
		ZipPrefixes: 30,
		Seed:        42,
		AnomalyRate: rate,
	}
}

func TestGenerateIsReproducible(t *testing.T) {
	ds1, a1 := NewGenerator(testOptions(0.1)).Generate()
	ds2, a2 := NewGenerator(testOptions(0.1)).Generate()

	if !reflect.DeepEqual(ds1, ds2) {
		t.Error("Same seed produced different datasets")
	}
	if a1 != a2 {
		t.Errorf("Same seed produced different anomalies: %+v != %+v", a1, a2)
	}
}

func TestGenerateClean(t *testing.T) {
	ds, anomalies := NewGenerator(testOptions(0)).Generate()

	if anomalies.Total() != 0 {
		t.Errorf("Expected no anomalies, got %+v", anomalies)
	}
	if len(ds.Customers) != 50 {
		t.Errorf("Customers = %d, want 50", len(ds.Customers))
	}
	if len(ds.Sellers) != 10 {
		t.Errorf("Sellers = %d, want 10", len(ds.Sellers))
	}
	if len(ds.Orders) != 80 {
		t.Errorf("Orders = %d, want 80", len(ds.Orders))
	}

	geo, stats := transform.BuildGeoLookup(ds.Geolocations)
	if stats.Prefixes != 30 {
		t.Errorf("Distinct prefixes = %d, want 30", stats.Prefixes)
	}
	for _, c := range ds.Customers {
		if _, ok := geo.Resolve(c.ZipCodePrefix); !ok {
			t.Errorf("Customer %s has unknown prefix %s", c.CustomerID, c.ZipCodePrefix)
		}
	}

	withItems := make(map[string]bool)
	for _, it := range ds.OrderItems {
		withItems[it.OrderID] = true
		if _, ok := transform.ParseAmount(it.Price); !ok {
			t.Errorf("Invalid price %q", it.Price)
		}
		if _, ok := transform.ParseAmount(it.FreightValue); !ok {
			t.Errorf("Invalid freight %q", it.FreightValue)
		}
	}

	for _, o := range ds.Orders {
		if !withItems[o.OrderID] {
			t.Errorf("Order %s has no items", o.OrderID)
		}
		for _, ts := range []string{o.PurchaseTimestamp, o.ApprovedAt, o.DeliveredCarrierDate,
			o.DeliveredCustomerDate, o.EstimatedDeliveryDate} {
			if ts == "" {
				continue
			}
			if _, ok := transform.ParseTimestamp(ts); !ok {
				t.Errorf("Order %s has unparseable timestamp %q", o.OrderID, ts)
			}
		}
		if o.PurchaseTimestamp == "" || o.EstimatedDeliveryDate == "" {
			t.Errorf("Order %s is missing purchase or estimated date", o.OrderID)
		}
	}
}

func TestGenerateAnomalies(t *testing.T) {
	ds, anomalies := NewGenerator(testOptions(1)).Generate()

	if anomalies.OrdersWithoutItems != 80 {
		t.Errorf("OrdersWithoutItems = %d, want 80", anomalies.OrdersWithoutItems)
	}
	if len(ds.OrderItems) != 0 {
		t.Errorf("Expected no items, got %d", len(ds.OrderItems))
	}
	if anomalies.DuplicateCustomers != 50 || len(ds.Customers) != 100 {
		t.Errorf("DuplicateCustomers = %d (rows %d), want 50 (rows 100)",
			anomalies.DuplicateCustomers, len(ds.Customers))
	}
	if anomalies.UnknownZipPrefixes != 60 {
		t.Errorf("UnknownZipPrefixes = %d, want 60", anomalies.UnknownZipPrefixes)
	}
	if anomalies.UnparseableTimestamps != 80 {
		t.Errorf("UnparseableTimestamps = %d, want 80", anomalies.UnparseableTimestamps)
	}

	// Purchase and estimated dates stay clean.
	for _, o := range ds.Orders {
		if _, ok := transform.ParseTimestamp(o.PurchaseTimestamp); !ok {
			t.Errorf("Order %s purchase timestamp %q does not parse", o.OrderID, o.PurchaseTimestamp)
		}
		if _, ok := transform.ParseTimestamp(o.EstimatedDeliveryDate); !ok {
			t.Errorf("Order %s estimated date %q does not parse", o.OrderID, o.EstimatedDeliveryDate)
		}
	}
}

func TestOptionsFrom(t *testing.T) {
	cfg := config.DefaultConfig().Generate
	opts := OptionsFrom(cfg)
	if opts.Orders != cfg.Orders || opts.AnomalyRate != cfg.AnomalyRate {
		t.Errorf("OptionsFrom() = %+v, does not match %+v", opts, cfg)
	}
}

func TestWriteDataset(t *testing.T) {
	ds, _ := NewGenerator(testOptions(0.05)).Generate()
	dir := filepath.Join(t.TempDir(), "data")

	files, err := WriteDataset(dir, config.DefaultStagingFiles(), ds)
	if err != nil {
		t.Fatalf("WriteDataset() error = %v", err)
	}
	if len(files) != 5 {
		t.Fatalf("Wrote %d files, want 5", len(files))
	}
	for _, f := range files {
		if f.Size == 0 {
			t.Errorf("%s is empty", f.Path)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "olist_orders_dataset.csv"))
	if err != nil {
		t.Fatal(err)
	}
	header := strings.SplitN(string(data), "\n", 2)[0]
	want := "order_id,customer_id,order_status,order_purchase_timestamp,order_approved_at," +
		"order_delivered_carrier_date,order_delivered_customer_date,order_estimated_delivery_date"
	if header != want {
		t.Errorf("header = %q, want %q", header, want)
	}

	var orders []model.Order
	if err := csvutil.Unmarshal(data, &orders); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !reflect.DeepEqual(orders, ds.Orders) {
		t.Error("Orders read back differ from the generated ones")
	}

	f, err := os.Open(filepath.Join(dir, "olist_order_items_dataset.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != len(ds.OrderItems)+1 {
		t.Errorf("items file has %d records, want %d", len(records), len(ds.OrderItems)+1)
	}
}

func TestWriteDatasetUnknownTable(t *testing.T) {
	_, err := WriteDataset(t.TempDir(), map[string]string{"x.csv": "staging.stg_products"}, &Dataset{})
	if err == nil || !strings.Contains(err.Error(), "staging.stg_products") {
		t.Errorf("Expected unknown table error, got %v", err)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.bytes); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}
