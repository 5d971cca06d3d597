package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry identified by its scanned barcode.
// Stock is the physical count, AvailableStock the part of it that can still be
// sold or reserved. Counters are only written through the stock ledger.
type Product struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Barcode        string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"barcode" validate:"required,max=64"`
	Name           string          `gorm:"type:varchar(255);not null" json:"name" validate:"required,max=255"`
	Price          decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	Stock          int             `gorm:"not null;default:0" json:"stock"`
	AvailableStock int             `gorm:"not null;default:0" json:"available_stock"`
	ExpiryDate     *time.Time      `gorm:"type:date" json:"expiry_date,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Audit user tracking
	CreatedBy string `gorm:"type:varchar(64)" json:"created_by,omitempty"`
	UpdatedBy string `gorm:"type:varchar(64)" json:"updated_by,omitempty"`
}

// ProductRef addresses a product by id or by barcode. ID wins when both are set.
type ProductRef struct {
	ID      uint   `json:"product_id,omitempty"`
	Barcode string `json:"barcode,omitempty"`
}

func RefByID(id uint) ProductRef { return ProductRef{ID: id} }

func RefByBarcode(barcode string) ProductRef { return ProductRef{Barcode: barcode} }

func (r ProductRef) IsZero() bool { return r.ID == 0 && r.Barcode == "" }

func (r ProductRef) String() string {
	if r.ID != 0 {
		return "id=" + strconv.FormatUint(uint64(r.ID), 10)
	}
	return "barcode=" + r.Barcode
}
