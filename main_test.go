package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/microshop/internal/entity"
)

func TestUseNumericDecimals(t *testing.T) {
	prev := decimal.MarshalJSONWithoutQuotes
	t.Cleanup(func() { decimal.MarshalJSONWithoutQuotes = prev })
	useNumericDecimals()

	product := entity.Product{ID: "p1", Name: "Lamp", Price: decimal.RequireFromString("89.99"), Stock: 3}
	order := entity.NewOrder("u1", []entity.OrderLine{entity.NewOrderLine(product, 2)}, time.Now())

	raw, err := json.Marshal(order)
	require.NoError(t, err)

	var body struct {
		Total json.RawMessage `json:"total"`
		Items []struct {
			UnitPrice json.RawMessage `json:"unit_price"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "179.98", string(body.Total))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "89.99", string(body.Items[0].UnitPrice))

	raw, err = json.Marshal(product)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"price":89.99`)

	var back entity.Product
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, product.Price.Equal(back.Price))
}
