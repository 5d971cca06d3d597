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

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return translateError(r.db.WithContext(ctx).Create(product).Error)
}

// UpdateDetails never touches stock or available_stock, those belong to the ledger
func (r *productRepo) UpdateDetails(ctx context.Context, product *model.Product) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", product.ID).
		Select("barcode", "name", "price", "expiry_date", "updated_by", "updated_at").
		Updates(map[string]interface{}{
			"barcode":     product.Barcode,
			"name":        product.Name,
			"price":       product.Price,
			"expiry_date": product.ExpiryDate,
			"updated_by":  product.UpdatedBy,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("product %d not found", product.ID)
	}
	return nil
}

func (r *productRepo) Find(ctx context.Context, ref model.ProductRef) (*model.Product, error) {
	var product model.Product
	var err error
	switch {
	case ref.ID != 0:
		err = r.db.WithContext(ctx).First(&product, "id = ?", ref.ID).Error
	case ref.Barcode != "":
		err = r.db.WithContext(ctx).First(&product, "barcode = ?", ref.Barcode).Error
	default:
		return nil, apperr.Validation("product id or barcode is required")
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("product %s not found", ref)
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &product, nil
}

func (r *productRepo) List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	q := r.db.WithContext(ctx).Model(&model.Product{})
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("name ILIKE ? OR barcode LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var products []model.Product
	err := q.Order("name ASC").Limit(limit).Offset(offset).Find(&products).Error
	return products, total, translateError(err)
}

func (r *productRepo) Stats(ctx context.Context, lowStockThreshold int, expiringBefore time.Time) (*ProductStats, error) {
	var stats ProductStats
	db := r.db.WithContext(ctx).Model(&model.Product{})

	if err := db.Count(&stats.TotalProducts).Error; err != nil {
		return nil, translateError(err)
	}

	// Low stock is measured on what can still be sold
	if err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("available_stock > 0 AND available_stock < ?", lowStockThreshold).
		Count(&stats.LowStockCount).Error; err != nil {
		return nil, translateError(err)
	}

	if err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("available_stock = 0").
		Count(&stats.OutOfStock).Error; err != nil {
		return nil, translateError(err)
	}

	if err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("expiry_date IS NOT NULL AND expiry_date <= ?", expiringBefore).
		Count(&stats.ExpiringSoon).Error; err != nil {
		return nil, translateError(err)
	}

	var agg struct {
		Units     int64
		Valuation decimal.Decimal
	}
	if err := r.db.WithContext(ctx).Model(&model.Product{}).
		Select("COALESCE(SUM(stock), 0) AS units, COALESCE(SUM(stock * price), 0) AS valuation").
		Scan(&agg).Error; err != nil {
		return nil, translateError(err)
	}
	stats.TotalUnits = agg.Units
	stats.TotalValuation = agg.Valuation

	return &stats, nil
}
