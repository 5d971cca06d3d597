package service

import (
	"context"
	"testing"
	"time"

	"go-scan-pos/internal/eventbus"
	"go-scan-pos/internal/idempotency"
	"go-scan-pos/internal/model"
	"go-scan-pos/internal/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const operator = "op-1"

type fixture struct {
	store    *memory.Store
	events   *eventbus.Recorder
	ledger   StockLedger
	adjust   *adjustmentService
	orders   *orderService
	outbound *outboundService
	products *productService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New(2 * time.Second)
	events := &eventbus.Recorder{}
	ledger := NewStockLedger()
	recorder := NewAdjustmentRecorder(nil)

	return &fixture{
		store:    store,
		events:   events,
		ledger:   ledger,
		adjust:   NewAdjustmentService(store, ledger, recorder, events).(*adjustmentService),
		orders:   NewOrderService(store, ledger, recorder, idempotency.NewLocalGuard(), events).(*orderService),
		outbound: NewOutboundService(store.Outbound(), store.Products(), events).(*outboundService),
		products: NewProductService(store.Products(), events).(*productService),
	}
}

func (f *fixture) product(t *testing.T, barcode string, stock, available int) *model.Product {
	t.Helper()
	p := &model.Product{
		Barcode:        barcode,
		Name:           "Product " + barcode,
		Price:          decimal.NewFromInt(5),
		Stock:          stock,
		AvailableStock: available,
	}
	require.NoError(t, f.store.Products().Create(context.Background(), p))
	return p
}

func (f *fixture) counters(t *testing.T, id uint) (int, int) {
	t.Helper()
	p, err := f.store.Products().Find(context.Background(), model.RefByID(id))
	require.NoError(t, err)
	return p.Stock, p.AvailableStock
}

func (f *fixture) logs(t *testing.T, id uint) []model.InventoryLog {
	t.Helper()
	logs, err := f.store.InventoryLogs().ListByProduct(context.Background(), id, 100)
	require.NoError(t, err)
	return logs
}
