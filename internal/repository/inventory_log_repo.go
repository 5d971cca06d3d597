package repository

import (
	"context"

	"go-scan-pos/internal/model"

	"gorm.io/gorm"
)

type inventoryLogRepo struct {
	db *gorm.DB
}

func NewInventoryLogRepo(db *gorm.DB) InventoryLogRepository {
	return &inventoryLogRepo{db}
}

func (r *inventoryLogRepo) ListByProduct(ctx context.Context, productID uint, limit int) ([]model.InventoryLog, error) {
	limit, _ = NormalizePage(limit, 0)
	var logs []model.InventoryLog
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, translateError(err)
}
