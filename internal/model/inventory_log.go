package model

import "time"

// AdjustmentReason classifies why a stock mutation happened.
type AdjustmentReason string

const (
	ReasonSale       AdjustmentReason = "sale"
	ReasonRestock    AdjustmentReason = "restock"
	ReasonDamage     AdjustmentReason = "damage"
	ReasonAdjustment AdjustmentReason = "adjustment"
	ReasonReturn     AdjustmentReason = "return"
)

func (r AdjustmentReason) Valid() bool {
	switch r {
	case ReasonSale, ReasonRestock, ReasonDamage, ReasonAdjustment, ReasonReturn:
		return true
	}
	return false
}

// StockScope selects which counters an adjustment touches.
type StockScope string

const (
	// ScopeAvailable mutates available_stock only. Default.
	ScopeAvailable StockScope = "available"
	// ScopeBoth mutates stock and available_stock together.
	ScopeBoth StockScope = "both"
	// ScopeTotal mutates stock only.
	ScopeTotal StockScope = "total"
)

func (s StockScope) Valid() bool {
	switch s {
	case ScopeAvailable, ScopeBoth, ScopeTotal:
		return true
	}
	return false
}

// InventoryLog is the append-only audit entry written once per committed
// stock mutation.
type InventoryLog struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	ProductID       uint             `gorm:"not null;index" json:"product_id"`
	OperatorID      string           `gorm:"type:varchar(64);not null;index" json:"operator_id"`
	QuantityChange  int              `gorm:"not null" json:"quantity_change"`
	StockBefore     int              `gorm:"not null" json:"stock_before"`
	StockAfter      int              `gorm:"not null" json:"stock_after"`
	AvailableBefore int              `gorm:"not null" json:"available_before"`
	AvailableAfter  int              `gorm:"not null" json:"available_after"`
	Scope           StockScope       `gorm:"type:varchar(16);not null" json:"scope"`
	Reason          AdjustmentReason `gorm:"type:varchar(20);not null;index" json:"reason"`
	Note            string           `gorm:"type:text" json:"note,omitempty"`
	OrderID         *uint            `gorm:"index" json:"order_id,omitempty"`
	CreatedAt       time.Time        `gorm:"index" json:"created_at"`
}
