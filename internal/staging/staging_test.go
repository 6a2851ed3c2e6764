//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package staging

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdw/orderdw-etl/internal/config"
	"github.com/orderdw/orderdw-etl/internal/model"
)

func TestEntityColumnsMatchValues(t *testing.T) {
	records := map[string]model.StagingRecord{
		TableGeolocation: &model.Geolocation{},
		TableCustomers:   &model.Customer{},
		TableSellers:     &model.Seller{},
		TableOrders:      &model.Order{},
		TableOrderItems:  &model.OrderItem{},
	}
	for _, table := range Tables {
		t.Run(table, func(t *testing.T) {
			ent, err := entityFor(table)
			require.NoError(t, err)
			assert.Len(t, records[table].Values(), len(ent.columns))
			assert.Equal(t, columnLoadTimestamp, ent.columns[len(ent.columns)-1])
			assert.Equal(t, columnSourceRow, ent.columns[len(ent.columns)-2])
		})
	}
}

func TestCustomerColumns(t *testing.T) {
	assert.Equal(t, []string{
		"customer_id", "customer_unique_id", "customer_zip_code_prefix",
		"customer_city", "customer_state", "_source_row", "_load_timestamp",
	}, columnsOf[model.Customer]())
}

func TestEntityForUnknownTable(t *testing.T) {
	_, err := entityFor("staging.stg_products")
	assert.ErrorContains(t, err, "no staging record type for table 'staging.stg_products'")
}

func TestMappingsOrder(t *testing.T) {
	mappings := Mappings(config.DefaultStagingFiles())

	require.Len(t, mappings, len(Tables))
	for i, m := range mappings {
		assert.Equal(t, Tables[i], m.Table)
	}

	extra := config.DefaultStagingFiles()
	extra["b_extra.csv"] = "staging.b"
	extra["a_extra.csv"] = "staging.a"
	mappings = Mappings(extra)
	require.Len(t, mappings, len(Tables)+2)
	assert.Equal(t, "a_extra.csv", mappings[len(Tables)].File)
	assert.Equal(t, "b_extra.csv", mappings[len(Tables)+1].File)
}

func TestDecoderRequiresColumns(t *testing.T) {
	src := strings.NewReader("customer_id,customer_city\nc1,sao paulo\n")
	dec, err := newDecoder(src)
	require.NoError(t, err)

	var rec model.Customer
	err = dec.Decode(&rec)
	var missing *csvutil.MissingColumnsError
	require.True(t, errors.As(err, &missing), "got %v", err)
	assert.Contains(t, missing.Columns, "customer_unique_id")
}

func TestDecoderEmptyInput(t *testing.T) {
	_, err := newDecoder(strings.NewReader(""))
	assert.True(t, errors.Is(err, io.EOF))
}

func TestDecoderReadsRecords(t *testing.T) {
	src := strings.NewReader(
		"order_id,order_item_id,product_id,seller_id,shipping_limit_date,price,freight_value,extra\n" +
			"o1,1,p1,s1,2018-01-01 00:00:00,10.00,1.50,x\n" +
			"o1,2,p2,s1,2018-01-01 00:00:00,,1.50,y\n")
	dec, err := newDecoder(src)
	require.NoError(t, err)

	var recs []model.OrderItem
	for {
		var rec model.OrderItem
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else {
			require.NoError(t, err)
		}
		recs = append(recs, rec)
	}

	require.Len(t, recs, 2)
	assert.Equal(t, "10.00", recs[0].Price)
	assert.Equal(t, "", recs[1].Price)

	loadedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recs[1].Stamp(2, loadedAt)
	values := nullEmpty(recs[1].Values())
	assert.Nil(t, values[5])
	assert.Equal(t, int64(2), values[7])
	assert.Equal(t, loadedAt, values[8])
}

func TestFileResultErrorFraction(t *testing.T) {
	assert.Zero(t, FileResult{}.ErrorFraction())
	assert.InDelta(t, 0.25, FileResult{Rows: 3, Failed: 1}.ErrorFraction(), 1e-9)
}
