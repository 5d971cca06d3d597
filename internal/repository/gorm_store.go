package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-scan-pos/internal/apperr"
	"go-scan-pos/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Postgres error codes that mean "try again later" rather than a broken store.
const (
	pgUniqueViolation      = "23505"
	pgLockNotAvailable     = "55P03"
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
)

// GormStore is the postgres backed Store.
type GormStore struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

func NewGormStore(db *gorm.DB, lockTimeout time.Duration) *GormStore {
	return &GormStore{db: db, lockTimeout: lockTimeout}
}

// AutoMigrate creates or updates every table the service owns.
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(
		&model.Product{},
		&model.InventoryLog{},
		&model.Order{},
		&model.OrderItem{},
		&model.OutboundRecord{},
		&model.Privilege{},
		&model.Role{},
		&model.User{},
	)
}

func (s *GormStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.lockTimeout > 0 && tx.Dialector.Name() == "postgres" {
			// SET LOCAL does not accept bind parameters.
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(&gormTx{db: tx})
	})
	return translateError(err)
}

func (s *GormStore) Products() ProductRepository           { return NewProductRepo(s.db) }
func (s *GormStore) InventoryLogs() InventoryLogRepository { return NewInventoryLogRepo(s.db) }
func (s *GormStore) Orders() OrderRepository               { return NewOrderRepo(s.db) }
func (s *GormStore) Outbound() OutboundRepository          { return NewOutboundRepo(s.db) }
func (s *GormStore) Users() UserRepository                 { return NewUserRepo(s.db) }
func (s *GormStore) Roles() RoleRepository                 { return NewRoleRepo(s.db) }
func (s *GormStore) Privileges() PrivilegeRepository       { return NewPrivilegeRepo(s.db) }

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) LockProduct(ctx context.Context, ref model.ProductRef) (*model.Product, error) {
	var product model.Product
	q := t.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	var err error
	switch {
	case ref.ID != 0:
		err = q.First(&product, "id = ?", ref.ID).Error
	case ref.Barcode != "":
		err = q.First(&product, "barcode = ?", ref.Barcode).Error
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

func (t *gormTx) UpdateCounters(ctx context.Context, productID uint, stock, available int, updatedBy string) error {
	err := t.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"stock":           stock,
			"available_stock": available,
			"updated_by":      updatedBy,
			"updated_at":      time.Now(),
		}).Error
	return translateError(err)
}

func (t *gormTx) CreateInventoryLog(ctx context.Context, entry *model.InventoryLog) error {
	return translateError(t.db.WithContext(ctx).Create(entry).Error)
}

func (t *gormTx) FindOrderByIdempotencyKey(ctx context.Context, key string) (*model.Order, error) {
	return findOrder(t.db.WithContext(ctx), "idempotency_key = ?", key)
}

func (t *gormTx) CreateOrder(ctx context.Context, order *model.Order) error {
	return translateError(t.db.WithContext(ctx).Create(order).Error)
}

func (t *gormTx) LockOrder(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	err := t.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("order %d not found", id)
	}
	if err != nil {
		return nil, translateError(err)
	}
	if err := t.db.WithContext(ctx).Where("order_id = ?", id).Order("id ASC").Find(&order.Items).Error; err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}

func (t *gormTx) UpdateOrderStatus(ctx context.Context, id uint, status model.OrderStatus) error {
	err := t.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
	return translateError(err)
}

func (t *gormTx) DeleteOrder(ctx context.Context, id uint) error {
	db := t.db.WithContext(ctx)
	if err := db.Where("order_id = ?", id).Delete(&model.OrderItem{}).Error; err != nil {
		return translateError(err)
	}
	return translateError(db.Delete(&model.Order{}, "id = ?", id).Error)
}

// translateError maps driver errors onto the apperr taxonomy. Errors that
// already carry a kind pass through untouched.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("record not found")
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict(err, "duplicate key")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.Conflict(err, "duplicate value violates %s", pgErr.ConstraintName)
		case pgLockNotAvailable:
			return apperr.Conflict(err, "timed out waiting for a row lock")
		case pgDeadlockDetected, pgSerializationFailure:
			return apperr.Conflict(err, "concurrent update, please retry")
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Conflict(err, "operation timed out")
	}
	if errors.Is(err, context.Canceled) {
		return apperr.Conflict(err, "request cancelled")
	}
	return apperr.Storage(err)
}
