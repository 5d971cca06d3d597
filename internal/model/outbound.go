package model

import "time"

// OutboundRecord logs a dispatch or scan event. ProductID is nil when the
// barcode does not match any catalog product.
type OutboundRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Barcode    string    `gorm:"type:varchar(64);not null;index" json:"barcode"`
	ProductID  *uint     `gorm:"index" json:"product_id"`
	Product    *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity   int       `gorm:"not null;default:1" json:"quantity"`
	OperatorID string    `gorm:"type:varchar(64)" json:"operator_id,omitempty"`
	OutboundAt time.Time `gorm:"not null;index" json:"outbound_at"`
}

// OutboundStats aggregates outbound records.
type OutboundStats struct {
	TotalCount            int64 `json:"total_count"`
	TotalQuantity         int64 `json:"total_quantity"`
	TodayCount            int64 `json:"today_count"`
	TodayQuantity         int64 `json:"today_quantity"`
	DistinctBarcodes      int64 `json:"distinct_barcodes"`
	TodayDistinctBarcodes int64 `json:"today_distinct_barcodes"`
}

// PopularItem is one row of the outbound popularity ranking.
type PopularItem struct {
	Barcode       string    `json:"barcode"`
	ProductName   string    `json:"product_name,omitempty"`
	EventCount    int64     `json:"event_count"`
	TotalQuantity int64     `json:"total_quantity"`
	LastOutbound  time.Time `json:"last_outbound_at"`
}
