package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"go-scan-pos/internal/apperr"
	"go-scan-pos/internal/model"
	"go-scan-pos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestStore connects to TEST_DATABASE_URL and skips otherwise.
func openTestStore(t *testing.T) *repository.GormStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres integration test")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	store := repository.NewGormStore(db, 500*time.Millisecond)
	require.NoError(t, store.AutoMigrate())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func uniqueBarcode() string {
	return "T-" + uuid.NewString()[:12]
}

func TestGormStore_CountersAndRollback(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	p := &model.Product{Barcode: uniqueBarcode(), Name: "Integration", Price: decimal.NewFromInt(1), Stock: 5, AvailableStock: 5}
	require.NoError(t, store.Products().Create(ctx, p))

	err := store.InTx(ctx, func(tx repository.Tx) error {
		locked, err := tx.LockProduct(ctx, model.RefByBarcode(p.Barcode))
		if err != nil {
			return err
		}
		if err := tx.UpdateCounters(ctx, locked.ID, 4, 3, "op"); err != nil {
			return err
		}
		return tx.CreateInventoryLog(ctx, &model.InventoryLog{
			ProductID: locked.ID, OperatorID: "op", QuantityChange: -1,
			StockBefore: 5, StockAfter: 4, AvailableBefore: 5, AvailableAfter: 3,
			Scope: model.ScopeBoth, Reason: model.ReasonDamage,
		})
	})
	require.NoError(t, err)

	err = store.InTx(ctx, func(tx repository.Tx) error {
		if err := tx.UpdateCounters(ctx, p.ID, 0, 0, "op"); err != nil {
			return err
		}
		return apperr.InsufficientStock("abort")
	})
	assert.True(t, apperr.Is(err, apperr.KindInsufficientStock))

	got, err := store.Products().Find(ctx, model.RefByID(p.ID))
	require.NoError(t, err)
	assert.Equal(t, 4, got.Stock)
	assert.Equal(t, 3, got.AvailableStock)

	logs, err := store.InventoryLogs().ListByProduct(ctx, p.ID, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestGormStore_DuplicateIdempotencyKeyIsConflict(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	key := "itest-" + uuid.NewString()

	create := func(number string) error {
		return store.InTx(ctx, func(tx repository.Tx) error {
			return tx.CreateOrder(ctx, &model.Order{
				OrderNumber:    number,
				IdempotencyKey: &key,
				TotalAmount:    decimal.NewFromInt(1),
				FinalAmount:    decimal.NewFromInt(1),
				Status:         model.OrderCompleted,
				Items: []model.OrderItem{{
					Barcode: "X", Price: decimal.NewFromInt(1), Quantity: 1, Subtotal: decimal.NewFromInt(1),
				}},
			})
		})
	}
	require.NoError(t, create("ORD-IT-"+uuid.NewString()[:8]))
	err := create("ORD-IT-" + uuid.NewString()[:8])
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)

	order, err := store.Orders().FindByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	assert.Len(t, order.Items, 1)
}

func TestGormStore_LockTimeoutIsConflict(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	p := &model.Product{Barcode: uniqueBarcode(), Name: "Locked", Stock: 1, AvailableStock: 1}
	require.NoError(t, store.Products().Create(ctx, p))

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- store.InTx(ctx, func(tx repository.Tx) error {
			if _, err := tx.LockProduct(ctx, model.RefByID(p.ID)); err != nil {
				return err
			}
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	err := store.InTx(ctx, func(tx repository.Tx) error {
		_, err := tx.LockProduct(ctx, model.RefByID(p.ID))
		return err
	})
	close(release)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)
	require.NoError(t, <-done)
}
