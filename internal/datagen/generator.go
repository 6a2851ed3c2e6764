//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package datagen generates sample source datasets shaped like the Olist
// public e-commerce files, with a controlled share of dirty values.
package datagen

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/orderdw/orderdw-etl/internal/config"
	"github.com/orderdw/orderdw-etl/internal/logging"
	"github.com/orderdw/orderdw-etl/internal/model"
)

const timestampLayout = "2006-01-02 15:04:05"

var (
	purchaseStart = time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	purchaseEnd   = time.Date(2018, 8, 31, 0, 0, 0, 0, time.UTC)
)

type place struct {
	City  string
	State string
	Lat   float64
	Lng   float64
}

var places = []place{
	{"sao paulo", "SP", -23.55, -46.63},
	{"campinas", "SP", -22.91, -47.06},
	{"santos", "SP", -23.96, -46.33},
	{"rio de janeiro", "RJ", -22.91, -43.17},
	{"niteroi", "RJ", -22.88, -43.10},
	{"belo horizonte", "MG", -19.92, -43.94},
	{"uberlandia", "MG", -18.91, -48.28},
	{"curitiba", "PR", -25.43, -49.27},
	{"londrina", "PR", -23.31, -51.16},
	{"porto alegre", "RS", -30.03, -51.23},
	{"florianopolis", "SC", -27.60, -48.55},
	{"salvador", "BA", -12.97, -38.50},
	{"recife", "PE", -8.05, -34.88},
	{"fortaleza", "CE", -3.73, -38.53},
	{"brasilia", "DF", -15.79, -47.88},
	{"goiania", "GO", -16.69, -49.26},
	{"manaus", "AM", -3.12, -60.02},
	{"belem", "PA", -1.46, -48.50},
}

var (
	orderStatuses = []string{"delivered", "shipped", "canceled", "invoiced", "processing", "unavailable"}
	statusWeights = []int{90, 4, 2, 2, 1, 1}

	badTimestamps = []string{"not a date", "2018-13-45 25:61:00", "31/02/2018", "0000-00-00 00:00:00"}
	badAmounts    = []string{"N/A", "abc", "12,50", "-"}
)

// Options controls the size and dirtiness of a generated dataset.
type Options struct {
	Customers   int
	Sellers     int
	Orders      int
	ZipPrefixes int
	Seed        uint64

	// AnomalyRate is the probability of each kind of anomaly per row.
	AnomalyRate float64
}

// OptionsFrom converts generate configuration into Options.
func OptionsFrom(cfg config.GenerateConfig) Options {
	return Options{
		Customers:   cfg.Customers,
		Sellers:     cfg.Sellers,
		Orders:      cfg.Orders,
		ZipPrefixes: cfg.ZipPrefixes,
		Seed:        cfg.Seed,
		AnomalyRate: cfg.AnomalyRate,
	}
}

// Anomalies counts the dirty values injected into a dataset.
type Anomalies struct {
	UnknownZipPrefixes    int
	DuplicateCustomers    int
	DuplicateSellers      int
	InvalidAmounts        int
	UnparseableTimestamps int
	MissingTimestamps     int
	CarrierBeforeApproval int
	OrdersWithoutItems    int
}

// Total is the number of injected anomalies.
func (a Anomalies) Total() int {
	return a.UnknownZipPrefixes + a.DuplicateCustomers + a.DuplicateSellers + a.InvalidAmounts +
		a.UnparseableTimestamps + a.MissingTimestamps + a.CarrierBeforeApproval + a.OrdersWithoutItems
}

// Dataset holds the rows of the five source files.
type Dataset struct {
	Geolocations []model.Geolocation
	Customers    []model.Customer
	Sellers      []model.Seller
	Orders       []model.Order
	OrderItems   []model.OrderItem
}

// Generator produces datasets.
type Generator struct {
	f    *Faker
	opts Options

	prefixes  []string
	locations map[string]place
	anomalies Anomalies
}

// NewGenerator creates a Generator. A zero seed picks a random one.
func NewGenerator(opts Options) *Generator {
	return &Generator{f: NewFaker(opts.Seed), opts: opts, locations: make(map[string]place)}
}

// Generate builds a complete dataset and reports the anomalies it contains.
func (g *Generator) Generate() (*Dataset, Anomalies) {
	g.anomalies = Anomalies{}
	ds := &Dataset{}

	ds.Geolocations = g.geolocations()
	ds.Customers = g.customers()
	ds.Sellers = g.sellers()
	ds.Orders, ds.OrderItems = g.orders(ds.Customers, ds.Sellers)

	logging.Info().
		Int("geolocations", len(ds.Geolocations)).
		Int("customers", len(ds.Customers)).
		Int("sellers", len(ds.Sellers)).
		Int("orders", len(ds.Orders)).
		Int("items", len(ds.OrderItems)).
		Int("anomalies", g.anomalies.Total()).
		Msg("Generated dataset")

	return ds, g.anomalies
}

// geolocations draws distinct zip prefixes from 01000 to 99999 and emits one
// to three rows for each. Repeated rows vary coordinates and the spelling of
// the city so that normalization and first-row-wins are exercised.
func (g *Generator) geolocations() []model.Geolocation {
	seen := make(map[string]bool, g.opts.ZipPrefixes)
	var rows []model.Geolocation

	for len(g.prefixes) < g.opts.ZipPrefixes {
		prefix := fmt.Sprintf("%05d", g.f.Int(1000, 99999))
		if seen[prefix] {
			continue
		}
		seen[prefix] = true
		g.prefixes = append(g.prefixes, prefix)

		p := Choose(g.f, places)
		g.locations[prefix] = p

		for i, n := 0, g.f.Int(1, 3); i < n; i++ {
			city := p.City
			if i > 0 && g.f.Chance(0.5) {
				city = " " + strings.ToUpper(city) + " "
			}
			written := prefix
			if g.f.Chance(0.2) {
				written = strings.TrimLeft(prefix, "0")
			}
			rows = append(rows, model.Geolocation{
				ZipCodePrefix: written,
				Lat:           g.f.Jitter(p.Lat, 0.05),
				Lng:           g.f.Jitter(p.Lng, 0.05),
				City:          city,
				State:         strings.ToLower(p.State),
			})
		}
	}
	return rows
}

// zipPrefix returns a known prefix, or with AnomalyRate probability one
// below 01000 that no geolocation row carries.
func (g *Generator) zipPrefix() (string, place) {
	if g.f.Chance(g.opts.AnomalyRate) {
		g.anomalies.UnknownZipPrefixes++
		return "00" + g.f.Digits(3), Choose(g.f, places)
	}
	prefix := Choose(g.f, g.prefixes)
	return prefix, g.locations[prefix]
}

func (g *Generator) customers() []model.Customer {
	rows := make([]model.Customer, 0, g.opts.Customers)
	for i := 0; i < g.opts.Customers; i++ {
		prefix, p := g.zipPrefix()
		rows = append(rows, model.Customer{
			CustomerID:       g.f.ID(),
			CustomerUniqueID: g.f.ID(),
			ZipCodePrefix:    prefix,
			City:             p.City,
			State:            p.State,
		})
	}

	// Repeat some customers with a different prefix; the last row wins.
	for i := 0; i < g.opts.Customers; i++ {
		if !g.f.Chance(g.opts.AnomalyRate) {
			continue
		}
		dup := rows[i]
		dup.ZipCodePrefix = Choose(g.f, g.prefixes)
		rows = append(rows, dup)
		g.anomalies.DuplicateCustomers++
	}
	return rows
}

func (g *Generator) sellers() []model.Seller {
	rows := make([]model.Seller, 0, g.opts.Sellers)
	for i := 0; i < g.opts.Sellers; i++ {
		prefix, p := g.zipPrefix()
		rows = append(rows, model.Seller{
			SellerID:      g.f.ID(),
			ZipCodePrefix: prefix,
			City:          p.City,
			State:         p.State,
		})
	}

	for i := 0; i < g.opts.Sellers; i++ {
		if !g.f.Chance(g.opts.AnomalyRate) {
			continue
		}
		dup := rows[i]
		dup.ZipCodePrefix = Choose(g.f, g.prefixes)
		rows = append(rows, dup)
		g.anomalies.DuplicateSellers++
	}
	return rows
}

func (g *Generator) orders(customers []model.Customer, sellers []model.Seller) ([]model.Order, []model.OrderItem) {
	orders := make([]model.Order, 0, g.opts.Orders)
	var items []model.OrderItem

	for i := 0; i < g.opts.Orders; i++ {
		order, approved := g.order(Choose(g.f, customers).CustomerID)
		orders = append(orders, order)

		if g.f.Chance(g.opts.AnomalyRate) {
			g.anomalies.OrdersWithoutItems++
			continue
		}
		for n, count := 1, g.f.Int(1, 4); n <= count; n++ {
			items = append(items, g.item(order.OrderID, n, Choose(g.f, sellers).SellerID, approved))
		}
	}
	return orders, items
}

// order generates one order. Only approval and delivery timestamps are made
// dirty: purchase and estimated dates always parse and fall inside dim_date.
func (g *Generator) order(customerID string) (model.Order, time.Time) {
	status := ChooseWeighted(g.f, orderStatuses, statusWeights)

	purchase := g.f.Timestamp(purchaseStart, purchaseEnd)
	approved := g.f.After(purchase, 10*time.Minute, 48*time.Hour)
	carrier := g.f.After(approved, 6*time.Hour, 5*24*time.Hour)
	delivered := g.f.After(carrier, 24*time.Hour, 20*24*time.Hour)
	estimated := purchase.AddDate(0, 0, g.f.Int(10, 40)).Truncate(24 * time.Hour)

	// Same-day handover before approval: negative processing hours that
	// remain consistent at date granularity.
	if g.f.Chance(g.opts.AnomalyRate) && approved.Hour() >= 2 {
		carrier = approved.Add(-time.Hour)
		g.anomalies.CarrierBeforeApproval++
	}

	o := model.Order{
		OrderID:               g.f.ID(),
		CustomerID:            customerID,
		Status:                status,
		PurchaseTimestamp:     purchase.Format(timestampLayout),
		ApprovedAt:            approved.Format(timestampLayout),
		DeliveredCarrierDate:  carrier.Format(timestampLayout),
		DeliveredCustomerDate: delivered.Format(timestampLayout),
		EstimatedDeliveryDate: estimated.Format(timestampLayout),
	}

	switch status {
	case "shipped":
		o.DeliveredCustomerDate = ""
	case "canceled", "unavailable":
		o.DeliveredCarrierDate = ""
		o.DeliveredCustomerDate = ""
	case "invoiced", "processing":
		o.DeliveredCarrierDate = ""
		o.DeliveredCustomerDate = ""
		if g.f.Chance(0.5) {
			o.ApprovedAt = ""
		}
	}

	if g.f.Chance(g.opts.AnomalyRate) {
		g.anomalies.MissingTimestamps++
		o.ApprovedAt = ""
	}
	if g.f.Chance(g.opts.AnomalyRate) {
		g.anomalies.UnparseableTimestamps++
		if o.DeliveredCarrierDate != "" && g.f.Chance(0.5) {
			o.DeliveredCarrierDate = Choose(g.f, badTimestamps)
		} else {
			o.ApprovedAt = Choose(g.f, badTimestamps)
		}
	}

	return o, approved
}

func (g *Generator) item(orderID string, n int, sellerID string, approved time.Time) model.OrderItem {
	price := g.f.Amount(5, 500)
	freight := g.f.Amount(0, 60)

	if g.f.Chance(g.opts.AnomalyRate) {
		g.anomalies.InvalidAmounts++
		if g.f.Chance(0.5) {
			price = Choose(g.f, badAmounts)
		} else {
			freight = ""
		}
	}

	return model.OrderItem{
		OrderID:           orderID,
		OrderItemID:       strconv.Itoa(n),
		ProductID:         g.f.ID(),
		SellerID:          sellerID,
		ShippingLimitDate: approved.AddDate(0, 0, g.f.Int(3, 7)).Format(timestampLayout),
		Price:             price,
		FreightValue:      freight,
	}
}
