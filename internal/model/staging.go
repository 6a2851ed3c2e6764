//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package model defines the typed records that flow through the pipeline:
// staging rows as landed from the source files, the dimension rows built from
// them, and the order delivery fact row.
package model

import "time"

// Staging records keep every source field as text. The csv tags match the
// source file headers and the db tags match the staging table columns.
// SourceRow is the 1-based line of the record in its source file; reads order
// by it so first-wins and last-wins rules see the file order.

// Geolocation is one row of staging.stg_geolocation.
type Geolocation struct {
	ZipCodePrefix string    `csv:"geolocation_zip_code_prefix" db:"geolocation_zip_code_prefix"`
	Lat           string    `csv:"geolocation_lat" db:"geolocation_lat"`
	Lng           string    `csv:"geolocation_lng" db:"geolocation_lng"`
	City          string    `csv:"geolocation_city" db:"geolocation_city"`
	State         string    `csv:"geolocation_state" db:"geolocation_state"`
	SourceRow     int64     `csv:"-" db:"_source_row"`
	LoadTimestamp time.Time `csv:"-" db:"_load_timestamp"`
}

// Customer is one row of staging.stg_customers.
type Customer struct {
	CustomerID       string    `csv:"customer_id" db:"customer_id"`
	CustomerUniqueID string    `csv:"customer_unique_id" db:"customer_unique_id"`
	ZipCodePrefix    string    `csv:"customer_zip_code_prefix" db:"customer_zip_code_prefix"`
	City             string    `csv:"customer_city" db:"customer_city"`
	State            string    `csv:"customer_state" db:"customer_state"`
	SourceRow        int64     `csv:"-" db:"_source_row"`
	LoadTimestamp    time.Time `csv:"-" db:"_load_timestamp"`
}

// Seller is one row of staging.stg_sellers.
type Seller struct {
	SellerID      string    `csv:"seller_id" db:"seller_id"`
	ZipCodePrefix string    `csv:"seller_zip_code_prefix" db:"seller_zip_code_prefix"`
	City          string    `csv:"seller_city" db:"seller_city"`
	State         string    `csv:"seller_state" db:"seller_state"`
	SourceRow     int64     `csv:"-" db:"_source_row"`
	LoadTimestamp time.Time `csv:"-" db:"_load_timestamp"`
}

// Order is one row of staging.stg_orders.
type Order struct {
	OrderID               string    `csv:"order_id" db:"order_id"`
	CustomerID            string    `csv:"customer_id" db:"customer_id"`
	Status                string    `csv:"order_status" db:"order_status"`
	PurchaseTimestamp     string    `csv:"order_purchase_timestamp" db:"order_purchase_timestamp"`
	ApprovedAt            string    `csv:"order_approved_at" db:"order_approved_at"`
	DeliveredCarrierDate  string    `csv:"order_delivered_carrier_date" db:"order_delivered_carrier_date"`
	DeliveredCustomerDate string    `csv:"order_delivered_customer_date" db:"order_delivered_customer_date"`
	EstimatedDeliveryDate string    `csv:"order_estimated_delivery_date" db:"order_estimated_delivery_date"`
	SourceRow             int64     `csv:"-" db:"_source_row"`
	LoadTimestamp         time.Time `csv:"-" db:"_load_timestamp"`
}

// OrderItem is one row of staging.stg_order_items.
type OrderItem struct {
	OrderID           string    `csv:"order_id" db:"order_id"`
	OrderItemID       string    `csv:"order_item_id" db:"order_item_id"`
	ProductID         string    `csv:"product_id" db:"product_id"`
	SellerID          string    `csv:"seller_id" db:"seller_id"`
	ShippingLimitDate string    `csv:"shipping_limit_date" db:"shipping_limit_date"`
	Price             string    `csv:"price" db:"price"`
	FreightValue      string    `csv:"freight_value" db:"freight_value"`
	SourceRow         int64     `csv:"-" db:"_source_row"`
	LoadTimestamp     time.Time `csv:"-" db:"_load_timestamp"`
}

// StagingRecord is implemented by pointers to the staging record types.
// Values returns the fields in staging column order.
type StagingRecord interface {
	Values() []any
	Stamp(sourceRow int64, loadedAt time.Time)
}

func (r *Geolocation) Values() []any {
	return []any{r.ZipCodePrefix, r.Lat, r.Lng, r.City, r.State, r.SourceRow, r.LoadTimestamp}
}

func (r *Geolocation) Stamp(sourceRow int64, loadedAt time.Time) {
	r.SourceRow, r.LoadTimestamp = sourceRow, loadedAt
}

func (r *Customer) Values() []any {
	return []any{r.CustomerID, r.CustomerUniqueID, r.ZipCodePrefix, r.City, r.State, r.SourceRow, r.LoadTimestamp}
}

func (r *Customer) Stamp(sourceRow int64, loadedAt time.Time) {
	r.SourceRow, r.LoadTimestamp = sourceRow, loadedAt
}

func (r *Seller) Values() []any {
	return []any{r.SellerID, r.ZipCodePrefix, r.City, r.State, r.SourceRow, r.LoadTimestamp}
}

func (r *Seller) Stamp(sourceRow int64, loadedAt time.Time) {
	r.SourceRow, r.LoadTimestamp = sourceRow, loadedAt
}

func (r *Order) Values() []any {
	return []any{
		r.OrderID, r.CustomerID, r.Status, r.PurchaseTimestamp, r.ApprovedAt,
		r.DeliveredCarrierDate, r.DeliveredCustomerDate, r.EstimatedDeliveryDate,
		r.SourceRow, r.LoadTimestamp,
	}
}

func (r *Order) Stamp(sourceRow int64, loadedAt time.Time) {
	r.SourceRow, r.LoadTimestamp = sourceRow, loadedAt
}

func (r *OrderItem) Values() []any {
	return []any{
		r.OrderID, r.OrderItemID, r.ProductID, r.SellerID, r.ShippingLimitDate,
		r.Price, r.FreightValue, r.SourceRow, r.LoadTimestamp,
	}
}

func (r *OrderItem) Stamp(sourceRow int64, loadedAt time.Time) {
	r.SourceRow, r.LoadTimestamp = sourceRow, loadedAt
}
