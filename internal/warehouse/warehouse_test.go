//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdw/orderdw-etl/internal/model"
	"github.com/orderdw/orderdw-etl/internal/transform"
)

func TestNumeric(t *testing.T) {
	n := Numeric(decimal.RequireFromString("123.45"))
	assert.True(t, n.Valid)
	assert.Equal(t, int32(-2), n.Exp)
	assert.Zero(t, n.Int.Cmp(big.NewInt(12345)))

	back := Decimal(n)
	require.True(t, back.Valid)
	assert.Equal(t, "123.45", back.Decimal.String())
}

func TestDecimalInvalid(t *testing.T) {
	assert.False(t, Decimal(pgtype.Numeric{}).Valid)
	assert.False(t, Decimal(pgtype.Numeric{Valid: true, NaN: true}).Valid)
}

func TestEncodeFactValues(t *testing.T) {
	days := int64(3)
	fact := &model.FactOrderDelivery{
		OrderID:               "o1",
		DeliveryTimeDays:      &days,
		TimeToApproveHours:    decimal.NullDecimal{Decimal: decimal.RequireFromString("0.33"), Valid: true},
		SellerProcessingHours: decimal.NullDecimal{},
		TotalPrice:            decimal.RequireFromString("15.00"),
		TotalFreightValue:     decimal.Zero,
		ItemCount:             3,
		OrderCount:            1,
	}

	values, err := transform.FactValues(fact, transform.FactColumns)
	require.NoError(t, err)
	values = encodeValues(values)

	byColumn := make(map[string]any, len(values))
	for i, c := range transform.FactColumns {
		byColumn[c] = values[i]
	}

	approve, ok := byColumn["time_to_approve_hours"].(pgtype.Numeric)
	require.True(t, ok)
	assert.True(t, approve.Valid)

	processing, ok := byColumn["seller_processing_hours"].(pgtype.Numeric)
	require.True(t, ok)
	assert.False(t, processing.Valid)

	price, ok := byColumn["total_price"].(pgtype.Numeric)
	require.True(t, ok)
	assert.Equal(t, "15", Decimal(price).Decimal.String())

	assert.Equal(t, &days, byColumn["delivery_time_days"])
	assert.Nil(t, byColumn["purchase_date_key"])
}
