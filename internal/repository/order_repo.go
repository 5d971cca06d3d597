package repository

import (
	"context"
	"errors"
	"time"

	"go-scan-pos/internal/apperr"
	"go-scan-pos/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) OrderRepository {
	return &orderRepo{db}
}

func (r *orderRepo) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	return findOrder(r.db.WithContext(ctx), "id = ?", id)
}

func (r *orderRepo) FindByNumber(ctx context.Context, number string) (*model.Order, error) {
	return findOrder(r.db.WithContext(ctx), "order_number = ?", number)
}

func (r *orderRepo) FindByIdempotencyKey(ctx context.Context, key string) (*model.Order, error) {
	return findOrder(r.db.WithContext(ctx), "idempotency_key = ?", key)
}

func findOrder(db *gorm.DB, query string, arg interface{}) (*model.Order, error) {
	var order model.Order
	err := db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).First(&order, query, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("order not found")
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}

func (r *orderRepo) List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	q := r.db.WithContext(ctx).Model(&model.Order{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var orders []model.Order
	err := q.Preload("Items").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error
	return orders, total, translateError(err)
}

func (r *orderRepo) SalesSummary(ctx context.Context, from, to time.Time) (*SalesSummary, error) {
	var agg struct {
		OrderCount int64
		Revenue    decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("COUNT(*) AS order_count, COALESCE(SUM(final_amount), 0) AS revenue").
		Where("status = ? AND created_at >= ? AND created_at < ?", model.OrderCompleted, from, to).
		Scan(&agg).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &SalesSummary{OrderCount: agg.OrderCount, Revenue: agg.Revenue}, nil
}
