package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderCompleted, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

// CanTransitionTo reports whether the order state machine allows s -> next.
// Cancelled and refunded are terminal and nothing returns to pending.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderPending:
		return next == OrderCompleted || next == OrderCancelled
	case OrderCompleted:
		return next == OrderCancelled || next == OrderRefunded
	}
	return false
}

type Order struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	OrderNumber    string  `gorm:"type:varchar(40);uniqueIndex;not null" json:"order_number"`
	IdempotencyKey *string `gorm:"type:varchar(128);uniqueIndex" json:"idempotency_key,omitempty"`
	// RequestHash fingerprints the cart and amounts sent with IdempotencyKey.
	RequestHash    string          `gorm:"type:varchar(64)" json:"-"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"discount_amount"`
	FinalAmount    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"final_amount"`
	Status         OrderStatus     `gorm:"type:varchar(16);not null;index" json:"status"`
	OperatorID     string          `gorm:"type:varchar(64)" json:"operator_id,omitempty"`
	Items          []OrderItem     `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// OrderItem is immutable once its order is committed.
type OrderItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"not null;index" json:"order_id"`
	Barcode     string          `gorm:"type:varchar(64);not null;index" json:"barcode"`
	ProductName string          `gorm:"type:varchar(255)" json:"product_name"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Subtotal    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"subtotal"`
}
