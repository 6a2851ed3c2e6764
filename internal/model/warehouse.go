//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnknownKey is the surrogate key stored for customers and sellers that have
// no current dimension row.
const UnknownKey int64 = -1

// Defaults for dimension rows whose zip prefix has no geolocation match.
const (
	UnknownCity  = "Unknown"
	UnknownState = "NA"
)

// Warehouse table names.
const (
	TableDimCustomer       = "dwh.dim_customer"
	TableDimSeller         = "dwh.dim_seller"
	TableDimDate           = "dwh.dim_date"
	TableFactOrderDelivery = "dwh.fact_order_delivery"
)

// SCD holds the slowly changing dimension columns. Only the current state is
// modeled: every load replaces the table, EffectiveEndDate is always nil and
// IsCurrent is always true.
type SCD struct {
	EffectiveStartDate time.Time
	EffectiveEndDate   *time.Time
	IsCurrent          bool
}

// CustomerDimension is one row of dwh.dim_customer. CustomerKey is assigned
// by the database on insert.
type CustomerDimension struct {
	CustomerKey      int64
	CustomerID       string
	CustomerUniqueID string
	ZipCodePrefix    string
	City             string
	State            string
	SCD
}

// SellerDimension is one row of dwh.dim_seller.
type SellerDimension struct {
	SellerKey     int64
	SellerID      string
	ZipCodePrefix string
	City          string
	State         string
	SCD
}

// CustomerDimensionColumns lists the insertable dim_customer columns.
var CustomerDimensionColumns = []string{
	"customer_id", "customer_unique_id", "customer_zip_code_prefix",
	"customer_city", "customer_state",
	"effective_start_date", "effective_end_date", "is_current",
}

// SellerDimensionColumns lists the insertable dim_seller columns.
var SellerDimensionColumns = []string{
	"seller_id", "seller_zip_code_prefix", "seller_city", "seller_state",
	"effective_start_date", "effective_end_date", "is_current",
}

// Values returns the row in CustomerDimensionColumns order.
func (c CustomerDimension) Values() []any {
	return []any{
		c.CustomerID, c.CustomerUniqueID, c.ZipCodePrefix, c.City, c.State,
		c.EffectiveStartDate, c.EffectiveEndDate, c.IsCurrent,
	}
}

// Values returns the row in SellerDimensionColumns order.
func (s SellerDimension) Values() []any {
	return []any{
		s.SellerID, s.ZipCodePrefix, s.City, s.State,
		s.EffectiveStartDate, s.EffectiveEndDate, s.IsCurrent,
	}
}

// FactOrderDelivery is one row of dwh.fact_order_delivery: one order with at
// least one item. Nil pointers and invalid decimals are stored as NULL.
type FactOrderDelivery struct {
	OrderID     string
	OrderStatus string

	PurchaseDateKey          *int64
	ApprovedDateKey          *int64
	DeliveredCarrierDateKey  *int64
	DeliveredCustomerDateKey *int64
	EstimatedDeliveryDateKey *int64
	CustomerKey              int64
	SellerKey                int64

	DeliveryTimeDays           *int64
	EstimatedDeliveryTimeDays  *int64
	DeliveryTimeDifferenceDays *int64
	IsLateDeliveryFlag         bool

	TimeToApproveHours    decimal.NullDecimal
	SellerProcessingHours decimal.NullDecimal
	CarrierShippingHours  decimal.NullDecimal

	ItemCount         int64
	TotalFreightValue decimal.Decimal
	TotalPrice        decimal.Decimal
	OrderCount        int64
	DWLoadTimestamp   time.Time
}
