package service

import (
	"context"
	"errors"
	"fmt"

	"go-scan-pos/internal/apperr"
	"go-scan-pos/internal/model"
	"go-scan-pos/internal/repository"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("go-scan-pos/internal/service")

// Snapshot holds both counters of one product around a ledger mutation.
type Snapshot struct {
	ProductID       uint `json:"product_id"`
	StockBefore     int  `json:"stock_before"`
	StockAfter      int  `json:"stock_after"`
	AvailableBefore int  `json:"available_before"`
	AvailableAfter  int  `json:"available_after"`
}

// ComputeCounters applies the deltas to the current counters.
//
// Stock may never go negative. Available stock is clamped down to the new
// stock when it would exceed it, and may never go negative either.
func ComputeCounters(stock, available, deltaTotal, deltaAvailable int) (newStock, newAvailable int, err error) {
	newStock = stock + deltaTotal
	if newStock < 0 {
		return stock, available, apperr.InsufficientStock(
			"insufficient stock: have %d, requested change %d", stock, deltaTotal)
	}

	newAvailable = available + deltaAvailable
	if newAvailable > newStock {
		newAvailable = newStock
	}
	if newAvailable < 0 {
		return stock, available, apperr.InsufficientAvailableStock(
			"insufficient available stock: have %d, requested change %d", available, deltaAvailable)
	}
	return newStock, newAvailable, nil
}

// DeltaFunc derives the counter deltas from the locked product.
type DeltaFunc func(current *model.Product) (deltaTotal, deltaAvailable int)

// StockLedger is the only writer of product counters. Every call must run
// inside a store transaction.
type StockLedger interface {
	Apply(ctx context.Context, tx repository.Tx, ref model.ProductRef, deltaTotal, deltaAvailable int, operatorID string) (*model.Product, Snapshot, error)
	// ApplyWith locks the product first and asks fn for the deltas, for
	// mutations that depend on the current counters.
	ApplyWith(ctx context.Context, tx repository.Tx, ref model.ProductRef, fn DeltaFunc, operatorID string) (*model.Product, Snapshot, error)
}

type stockLedger struct{}

func NewStockLedger() StockLedger {
	return &stockLedger{}
}

func (l *stockLedger) Apply(ctx context.Context, tx repository.Tx, ref model.ProductRef, deltaTotal, deltaAvailable int, operatorID string) (*model.Product, Snapshot, error) {
	return l.ApplyWith(ctx, tx, ref, func(*model.Product) (int, int) {
		return deltaTotal, deltaAvailable
	}, operatorID)
}

func (l *stockLedger) ApplyWith(ctx context.Context, tx repository.Tx, ref model.ProductRef, fn DeltaFunc, operatorID string) (*model.Product, Snapshot, error) {
	ctx, span := tracer.Start(ctx, "StockLedger.Apply")
	defer span.End()
	span.SetAttributes(attribute.String("product.ref", ref.String()))

	product, err := tx.LockProduct(ctx, ref)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock product")
		return nil, Snapshot{}, err
	}

	deltaTotal, deltaAvailable := fn(product)
	span.SetAttributes(
		attribute.Int("stock.delta_total", deltaTotal),
		attribute.Int("stock.delta_available", deltaAvailable),
	)

	newStock, newAvailable, err := ComputeCounters(product.Stock, product.AvailableStock, deltaTotal, deltaAvailable)
	if err != nil {
		err = forProduct(err, product)
		span.RecordError(err)
		span.SetStatus(codes.Error, "counter invariant")
		return nil, Snapshot{}, err
	}

	if err := tx.UpdateCounters(ctx, product.ID, newStock, newAvailable, operatorID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update counters")
		return nil, Snapshot{}, err
	}

	snap := Snapshot{
		ProductID:       product.ID,
		StockBefore:     product.Stock,
		StockAfter:      newStock,
		AvailableBefore: product.AvailableStock,
		AvailableAfter:  newAvailable,
	}
	product.Stock = newStock
	product.AvailableStock = newAvailable
	product.UpdatedBy = operatorID
	return product, snap, nil
}

// forProduct prefixes a ledger error with the product it concerns.
func forProduct(err error, p *model.Product) error {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return err
	}
	return &apperr.Error{
		Kind:    appErr.Kind,
		Message: fmt.Sprintf("product %s (%s): %s", p.Barcode, p.Name, appErr.Message),
		Err:     appErr.Err,
	}
}
