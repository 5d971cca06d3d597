package repository

import (
	"context"
	"time"

	"go-scan-pos/internal/model"

	"github.com/shopspring/decimal"
)

// Tx exposes the writes that must commit together. Every product or order
// returned by a Lock* method stays locked until the transaction ends.
type Tx interface {
	// LockProduct resolves ref and takes the row lock (SELECT ... FOR UPDATE).
	// Returns an apperr NotFound when no product matches.
	LockProduct(ctx context.Context, ref model.ProductRef) (*model.Product, error)
	UpdateCounters(ctx context.Context, productID uint, stock, available int, updatedBy string) error
	CreateInventoryLog(ctx context.Context, entry *model.InventoryLog) error

	FindOrderByIdempotencyKey(ctx context.Context, key string) (*model.Order, error)
	CreateOrder(ctx context.Context, order *model.Order) error
	LockOrder(ctx context.Context, id uint) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, id uint, status model.OrderStatus) error
	DeleteOrder(ctx context.Context, id uint) error
}

// Store is the persistence boundary used by the services.
type Store interface {
	// InTx runs fn inside one transaction. It commits when fn returns nil and
	// rolls back every write otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	Products() ProductRepository
	InventoryLogs() InventoryLogRepository
	Orders() OrderRepository
	Outbound() OutboundRepository
	Users() UserRepository
	Roles() RoleRepository
	Privileges() PrivilegeRepository

	Close() error
}

type ProductFilter struct {
	Search string
	Limit  int
	Offset int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	// UpdateDetails writes catalog metadata only, never the stock counters.
	UpdateDetails(ctx context.Context, product *model.Product) error
	Find(ctx context.Context, ref model.ProductRef) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
	Stats(ctx context.Context, lowStockThreshold int, expiringBefore time.Time) (*ProductStats, error)
}

// ProductStats feeds the dashboard overview.
type ProductStats struct {
	TotalProducts  int64           `json:"total_products"`
	LowStockCount  int64           `json:"low_stock_count"`
	OutOfStock     int64           `json:"out_of_stock_count"`
	ExpiringSoon   int64           `json:"expiring_soon_count"`
	TotalUnits     int64           `json:"total_units"`
	TotalValuation decimal.Decimal `json:"total_valuation"`
}

type InventoryLogRepository interface {
	ListByProduct(ctx context.Context, productID uint, limit int) ([]model.InventoryLog, error)
}

type OrderFilter struct {
	Status model.OrderStatus
	Limit  int
	Offset int
}

type OrderRepository interface {
	FindByID(ctx context.Context, id uint) (*model.Order, error)
	FindByNumber(ctx context.Context, number string) (*model.Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*model.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
	SalesSummary(ctx context.Context, from, to time.Time) (*SalesSummary, error)
}

// SalesSummary totals completed orders in a time range.
type SalesSummary struct {
	OrderCount int64           `json:"order_count"`
	Revenue    decimal.Decimal `json:"revenue"`
}

type OutboundRepository interface {
	Create(ctx context.Context, record *model.OutboundRecord) error
	List(ctx context.Context, limit, offset int) ([]model.OutboundRecord, int64, error)
	// Stats aggregates all records, counting those at or after dayStart as today.
	Stats(ctx context.Context, dayStart time.Time) (*model.OutboundStats, error)
	// Popular ranks barcodes by event count, most recent event first on ties.
	Popular(ctx context.Context, limit int) ([]model.PopularItem, error)
}

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Create(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, id string, hashedPassword string) error
	SetActive(ctx context.Context, id string, active bool, updatedBy string) error
}

type RoleRepository interface {
	FindAll(ctx context.Context) ([]model.Role, error)
	FindByCode(ctx context.Context, code string) (*model.Role, error)
	// SeedDefaults creates the default roles with their privileges if missing.
	SeedDefaults(ctx context.Context) error
}

type PrivilegeRepository interface {
	FindAll(ctx context.Context) ([]model.Privilege, error)
}

// NormalizePage applies the default and maximum page size.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
