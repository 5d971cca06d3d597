package service

import (
	"context"
	"testing"

	"go-scan-pos/internal/apperr"
	"go-scan-pos/internal/eventbus"
	"go-scan-pos/internal/model"
	"go-scan-pos/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.products.Create(ctx, CreateProductRequest{
		Barcode:    " 8991002101 ",
		Name:       "Teh Botol",
		Price:      decimal.RequireFromString("4.50"),
		Stock:      12,
		ExpiryDate: "2025-01-31",
	}, operator)
	require.NoError(t, err)
	assert.Equal(t, "8991002101", p.Barcode)
	assert.Equal(t, 12, p.AvailableStock, "available defaults to stock")
	require.NotNil(t, p.ExpiryDate)
	assert.Equal(t, "2025-01-31", p.ExpiryDate.Format(dateLayout))
	assert.Equal(t, operator, p.CreatedBy)
	assert.Len(t, f.events.OfType(eventbus.ProductCreated), 1)

	_, err = f.products.Create(ctx, CreateProductRequest{Barcode: "8991002101", Name: "Dup", Stock: 1}, operator)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestProductCreate_Validation(t *testing.T) {
	avail := 5
	tests := []struct {
		name string
		req  CreateProductRequest
	}{
		{name: "missing barcode", req: CreateProductRequest{Name: "x", Stock: 1}},
		{name: "missing name", req: CreateProductRequest{Barcode: "A1", Stock: 1}},
		{name: "negative stock", req: CreateProductRequest{Barcode: "A1", Name: "x", Stock: -1}},
		{name: "negative price", req: CreateProductRequest{Barcode: "A1", Name: "x", Price: decimal.NewFromInt(-1)}},
		{name: "available above stock", req: CreateProductRequest{Barcode: "A1", Name: "x", Stock: 2, AvailableStock: &avail}},
		{name: "bad expiry", req: CreateProductRequest{Barcode: "A1", Name: "x", ExpiryDate: "31/01/2025"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.products.Create(context.Background(), tt.req, operator)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}
}

func TestProductUpdate_LeavesCountersAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "A1", 7, 4)
	f.product(t, "B2", 1, 1)

	updated, err := f.products.Update(ctx, p.ID, UpdateProductRequest{
		Barcode: "A1-NEW",
		Name:    "Renamed",
		Price:   decimal.NewFromInt(9),
	}, operator)
	require.NoError(t, err)
	assert.Equal(t, "A1-NEW", updated.Barcode)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, 7, updated.Stock)
	assert.Equal(t, 4, updated.AvailableStock)

	got, err := f.products.Get(ctx, model.RefByBarcode("A1-NEW"))
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = f.products.Update(ctx, p.ID, UpdateProductRequest{Barcode: "B2", Name: "Clash"}, operator)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.products.Update(ctx, 999, UpdateProductRequest{Barcode: "Z9", Name: "Ghost"}, operator)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.products.Get(ctx, model.ProductRef{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestProductList_Search(t *testing.T) {
	f := newFixture(t)
	f.product(t, "111", 1, 1)
	f.product(t, "222", 1, 1)

	products, total, err := f.products.List(context.Background(), repository.ProductFilter{Search: " 222 "})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, products, 1)
	assert.Equal(t, "222", products[0].Barcode)
}
