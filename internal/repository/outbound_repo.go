package repository

import (
	"context"
	"time"

	"go-scan-pos/internal/model"

	"gorm.io/gorm"
)

type outboundRepo struct {
	db *gorm.DB
}

func NewOutboundRepo(db *gorm.DB) OutboundRepository {
	return &outboundRepo{db}
}

func (r *outboundRepo) Create(ctx context.Context, record *model.OutboundRecord) error {
	return translateError(r.db.WithContext(ctx).Omit("Product").Create(record).Error)
}

func (r *outboundRepo) List(ctx context.Context, limit, offset int) ([]model.OutboundRecord, int64, error) {
	limit, offset = NormalizePage(limit, offset)

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.OutboundRecord{}).Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var records []model.OutboundRecord
	err := r.db.WithContext(ctx).
		Preload("Product").
		Order("outbound_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	return records, total, translateError(err)
}

func (r *outboundRepo) Stats(ctx context.Context, dayStart time.Time) (*model.OutboundStats, error) {
	var stats model.OutboundStats
	err := r.db.WithContext(ctx).Model(&model.OutboundRecord{}).
		Select(`
			COUNT(*) AS total_count,
			COALESCE(SUM(quantity), 0) AS total_quantity,
			COUNT(*) FILTER (WHERE outbound_at >= ?) AS today_count,
			COALESCE(SUM(quantity) FILTER (WHERE outbound_at >= ?), 0) AS today_quantity,
			COUNT(DISTINCT barcode) AS distinct_barcodes,
			COUNT(DISTINCT barcode) FILTER (WHERE outbound_at >= ?) AS today_distinct_barcodes
		`, dayStart, dayStart, dayStart).
		Scan(&stats).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &stats, nil
}

func (r *outboundRepo) Popular(ctx context.Context, limit int) ([]model.PopularItem, error) {
	limit, _ = NormalizePage(limit, 0)

	rows, err := r.db.WithContext(ctx).
		Table("outbound_records AS o").
		Select(`
			o.barcode,
			COALESCE(MAX(p.name), '') AS product_name,
			COUNT(*) AS event_count,
			COALESCE(SUM(o.quantity), 0) AS total_quantity,
			MAX(o.outbound_at) AS last_outbound
		`).
		Joins("LEFT JOIN products p ON p.barcode = o.barcode").
		Group("o.barcode").
		Order("event_count DESC, last_outbound DESC, o.barcode ASC").
		Limit(limit).
		Rows()
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var items []model.PopularItem
	for rows.Next() {
		var item model.PopularItem
		if err := rows.Scan(&item.Barcode, &item.ProductName, &item.EventCount, &item.TotalQuantity, &item.LastOutbound); err != nil {
			return nil, translateError(err)
		}
		items = append(items, item)
	}
	return items, translateError(rows.Err())
}
