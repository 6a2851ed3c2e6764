//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package transform

import (
	"fmt"
	"strings"
	"time"

	"github.com/orderdw/orderdw-etl/internal/model"
)

// FactColumns is the fixed projection loaded into dwh.fact_order_delivery.
var FactColumns = []string{
	"order_id",
	"purchase_date_key",
	"approved_date_key",
	"delivered_carrier_date_key",
	"delivered_customer_date_key",
	"estimated_delivery_date_key",
	"customer_key",
	"seller_key",
	"order_status",
	"delivery_time_days",
	"estimated_delivery_time_days",
	"delivery_time_difference_days",
	"is_late_delivery_flag",
	"time_to_approve_hours",
	"seller_processing_hours",
	"carrier_shipping_hours",
	"item_count",
	"total_freight_value",
	"total_price",
	"order_count",
	"dw_load_timestamp",
}

var factColumnValues = map[string]func(*model.FactOrderDelivery) any{
	"order_id":                      func(f *model.FactOrderDelivery) any { return f.OrderID },
	"purchase_date_key":             func(f *model.FactOrderDelivery) any { return f.PurchaseDateKey },
	"approved_date_key":             func(f *model.FactOrderDelivery) any { return f.ApprovedDateKey },
	"delivered_carrier_date_key":    func(f *model.FactOrderDelivery) any { return f.DeliveredCarrierDateKey },
	"delivered_customer_date_key":   func(f *model.FactOrderDelivery) any { return f.DeliveredCustomerDateKey },
	"estimated_delivery_date_key":   func(f *model.FactOrderDelivery) any { return f.EstimatedDeliveryDateKey },
	"customer_key":                  func(f *model.FactOrderDelivery) any { return f.CustomerKey },
	"seller_key":                    func(f *model.FactOrderDelivery) any { return f.SellerKey },
	"order_status":                  func(f *model.FactOrderDelivery) any { return f.OrderStatus },
	"delivery_time_days":            func(f *model.FactOrderDelivery) any { return f.DeliveryTimeDays },
	"estimated_delivery_time_days":  func(f *model.FactOrderDelivery) any { return f.EstimatedDeliveryTimeDays },
	"delivery_time_difference_days": func(f *model.FactOrderDelivery) any { return f.DeliveryTimeDifferenceDays },
	"is_late_delivery_flag":         func(f *model.FactOrderDelivery) any { return f.IsLateDeliveryFlag },
	"time_to_approve_hours":         func(f *model.FactOrderDelivery) any { return f.TimeToApproveHours },
	"seller_processing_hours":       func(f *model.FactOrderDelivery) any { return f.SellerProcessingHours },
	"carrier_shipping_hours":        func(f *model.FactOrderDelivery) any { return f.CarrierShippingHours },
	"item_count":                    func(f *model.FactOrderDelivery) any { return f.ItemCount },
	"total_freight_value":           func(f *model.FactOrderDelivery) any { return f.TotalFreightValue },
	"total_price":                   func(f *model.FactOrderDelivery) any { return f.TotalPrice },
	"order_count":                   func(f *model.FactOrderDelivery) any { return f.OrderCount },
	"dw_load_timestamp":             func(f *model.FactOrderDelivery) any { return f.DWLoadTimestamp },
}

// MissingColumnsError reports projection columns that cannot be produced or
// stored.
type MissingColumnsError struct {
	Table   string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s is missing required columns: %s", e.Table, strings.Join(e.Columns, ", "))
}

// AssembleFacts projects resolved orders into fact rows, stamping
// order_count = 1 and dw_load_timestamp = loadedAt. A duplicate order_id
// would break the fact grain and is returned as an error.
func AssembleFacts(rows []ResolvedOrder, loadedAt time.Time) ([]model.FactOrderDelivery, error) {
	facts := make([]model.FactOrderDelivery, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))

	for _, r := range rows {
		if _, dup := seen[r.OrderID]; dup {
			return nil, fmt.Errorf("duplicate order_id %q in fact input", r.OrderID)
		}
		seen[r.OrderID] = struct{}{}

		facts = append(facts, model.FactOrderDelivery{
			OrderID:                    r.OrderID,
			OrderStatus:                r.Status,
			PurchaseDateKey:            r.DateKeys.Purchase,
			ApprovedDateKey:            r.DateKeys.Approved,
			DeliveredCarrierDateKey:    r.DateKeys.DeliveredCarrier,
			DeliveredCustomerDateKey:   r.DateKeys.DeliveredCustomer,
			EstimatedDeliveryDateKey:   r.DateKeys.EstimatedDelivery,
			CustomerKey:                r.CustomerKey,
			SellerKey:                  r.SellerKey,
			DeliveryTimeDays:           r.DeliveryTimeDays,
			EstimatedDeliveryTimeDays:  r.EstimatedDeliveryTimeDays,
			DeliveryTimeDifferenceDays: r.DeliveryTimeDifferenceDays,
			IsLateDeliveryFlag:         r.IsLateDeliveryFlag,
			TimeToApproveHours:         r.TimeToApproveHours,
			SellerProcessingHours:      r.SellerProcessingHours,
			CarrierShippingHours:       r.CarrierShippingHours,
			ItemCount:                  r.ItemCount,
			TotalFreightValue:          r.TotalFreightValue,
			TotalPrice:                 r.TotalPrice,
			OrderCount:                 1,
			DWLoadTimestamp:            loadedAt,
		})
	}
	return facts, nil
}

// CheckFactColumns returns a *MissingColumnsError naming every FactColumns
// entry absent from available, or nil when all are present.
func CheckFactColumns(table string, available []string) error {
	have := make(map[string]struct{}, len(available))
	for _, c := range available {
		have[c] = struct{}{}
	}
	var missing []string
	for _, c := range FactColumns {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Table: table, Columns: missing}
	}
	return nil
}

// FactValues returns the values of f for the given columns, in order.
func FactValues(f *model.FactOrderDelivery, columns []string) ([]any, error) {
	values := make([]any, len(columns))
	for i, c := range columns {
		get, ok := factColumnValues[c]
		if !ok {
			return nil, &MissingColumnsError{Table: "fact projection", Columns: []string{c}}
		}
		values[i] = get(f)
	}
	return values, nil
}
