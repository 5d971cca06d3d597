// Package memory is an in-process repository.Store used for development and
// tests. Row locks are per product and per order, writes made inside a
// transaction stay private to it until commit.
package memory

import (
	"context"
	"sync"
	"time"

	"go-scan-pos/internal/apperr"
	"go-scan-pos/internal/model"
	"go-scan-pos/internal/repository"
)

const defaultLockTimeout = 5 * time.Second

type Store struct {
	mu          sync.Mutex
	lockTimeout time.Duration

	products     map[uint]*model.Product
	barcodes     map[string]uint
	logs         []model.InventoryLog
	orders       map[uint]*model.Order
	orderNumbers map[string]uint
	idemKeys     map[string]uint
	outbound     []model.OutboundRecord
	users        map[string]*model.User
	roles        map[uint]*model.Role
	privileges   map[uint]*model.Privilege

	productLocks map[uint]chan struct{}
	orderLocks   map[uint]chan struct{}

	seq struct {
		product, log, order, item, outbound, role, privilege uint
	}
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store. A non positive lockTimeout falls back to 5s.
func New(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}
	return &Store{
		lockTimeout:  lockTimeout,
		products:     make(map[uint]*model.Product),
		barcodes:     make(map[string]uint),
		orders:       make(map[uint]*model.Order),
		orderNumbers: make(map[string]uint),
		idemKeys:     make(map[string]uint),
		users:        make(map[string]*model.User),
		roles:        make(map[uint]*model.Role),
		privileges:   make(map[uint]*model.Privilege),
		productLocks: make(map[uint]chan struct{}),
		orderLocks:   make(map[uint]chan struct{}),
	}
}

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return apperr.Conflict(err, "operation cancelled")
	}
	t := newTx(s)
	defer t.release()

	if err := fn(t); err != nil {
		return apperr.Wrap(err)
	}
	return t.commit()
}

func (s *Store) Products() repository.ProductRepository           { return productRepo{s} }
func (s *Store) InventoryLogs() repository.InventoryLogRepository { return inventoryLogRepo{s} }
func (s *Store) Orders() repository.OrderRepository               { return orderRepo{s} }
func (s *Store) Outbound() repository.OutboundRepository          { return outboundRepo{s} }
func (s *Store) Users() repository.UserRepository                 { return userRepo{s} }
func (s *Store) Roles() repository.RoleRepository                 { return roleRepo{s} }
func (s *Store) Privileges() repository.PrivilegeRepository       { return privilegeRepo{s} }

func (s *Store) Close() error { return nil }

// acquire blocks until the row lock is free, ctx is done or the lock timeout
// elapses.
func (s *Store) acquire(ctx context.Context, locks map[uint]chan struct{}, id uint, what string) (chan struct{}, error) {
	s.mu.Lock()
	ch, ok := locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		locks[id] = ch
	}
	s.mu.Unlock()

	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return ch, nil
	case <-timer.C:
		return nil, apperr.Conflict(nil, "%s %d is busy, lock wait timed out", what, id)
	case <-ctx.Done():
		return nil, apperr.Conflict(ctx.Err(), "%s %d lock wait cancelled", what, id)
	}
}

type tx struct {
	s *Store

	held           []chan struct{}
	lockedProducts map[uint]bool
	lockedOrders   map[uint]bool

	products map[uint]model.Product
	logs     []model.InventoryLog
	orders   []*model.Order
	statuses map[uint]model.OrderStatus
	deleted  map[uint]bool
}

func newTx(s *Store) *tx {
	return &tx{
		s:              s,
		lockedProducts: make(map[uint]bool),
		lockedOrders:   make(map[uint]bool),
		products:       make(map[uint]model.Product),
		statuses:       make(map[uint]model.OrderStatus),
		deleted:        make(map[uint]bool),
	}
}

func (t *tx) release() {
	for _, ch := range t.held {
		<-ch
	}
	t.held = nil
}

func (t *tx) LockProduct(ctx context.Context, ref model.ProductRef) (*model.Product, error) {
	if ref.IsZero() {
		return nil, apperr.Validation("product id or barcode is required")
	}

	t.s.mu.Lock()
	id, ok := t.s.resolveProduct(ref)
	t.s.mu.Unlock()
	if !ok {
		return nil, apperr.NotFound("product %s not found", ref)
	}

	if !t.lockedProducts[id] {
		ch, err := t.s.acquire(ctx, t.s.productLocks, id, "product")
		if err != nil {
			return nil, err
		}
		t.held = append(t.held, ch)
		t.lockedProducts[id] = true
	}

	if staged, ok := t.products[id]; ok {
		p := staged
		return &p, nil
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	committed, ok := t.s.products[id]
	if !ok {
		return nil, apperr.NotFound("product %s not found", ref)
	}
	p := copyProduct(committed)
	return &p, nil
}

func (t *tx) UpdateCounters(ctx context.Context, productID uint, stock, available int, updatedBy string) error {
	if !t.lockedProducts[productID] {
		return apperr.Storage(errNotLocked)
	}
	p, ok := t.products[productID]
	if !ok {
		t.s.mu.Lock()
		committed, found := t.s.products[productID]
		if found {
			p = copyProduct(committed)
		}
		t.s.mu.Unlock()
		if !found {
			return apperr.NotFound("product %d not found", productID)
		}
	}
	p.Stock = stock
	p.AvailableStock = available
	p.UpdatedBy = updatedBy
	p.UpdatedAt = time.Now()
	t.products[productID] = p
	return nil
}

func (t *tx) CreateInventoryLog(ctx context.Context, entry *model.InventoryLog) error {
	t.s.mu.Lock()
	t.s.seq.log++
	entry.ID = t.s.seq.log
	t.s.mu.Unlock()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	t.logs = append(t.logs, *entry)
	return nil
}

func (t *tx) FindOrderByIdempotencyKey(ctx context.Context, key string) (*model.Order, error) {
	for _, o := range t.orders {
		if o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			c := copyOrder(o)
			return &c, nil
		}
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	id, ok := t.s.idemKeys[key]
	if !ok || t.deleted[id] {
		return nil, apperr.NotFound("order not found")
	}
	c := copyOrder(t.s.orders[id])
	return &c, nil
}

func (t *tx) CreateOrder(ctx context.Context, order *model.Order) error {
	for _, o := range t.orders {
		if o.OrderNumber == order.OrderNumber {
			return apperr.Conflict(nil, "duplicate value violates order number")
		}
		if sameKey(o.IdempotencyKey, order.IdempotencyKey) {
			return apperr.Conflict(nil, "duplicate value violates idempotency key")
		}
	}

	t.s.mu.Lock()
	if err := t.s.checkOrderUnique(order); err != nil {
		t.s.mu.Unlock()
		return err
	}
	t.s.seq.order++
	order.ID = t.s.seq.order
	for i := range order.Items {
		t.s.seq.item++
		order.Items[i].ID = t.s.seq.item
		order.Items[i].OrderID = order.ID
	}
	t.s.mu.Unlock()

	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	staged := copyOrder(order)
	t.orders = append(t.orders, &staged)
	// the caller holds the new row until commit
	t.lockedOrders[order.ID] = true
	return nil
}

func (t *tx) LockOrder(ctx context.Context, id uint) (*model.Order, error) {
	if staged := t.stagedOrder(id); staged != nil {
		c := copyOrder(staged)
		return &c, nil
	}

	t.s.mu.Lock()
	_, ok := t.s.orders[id]
	t.s.mu.Unlock()
	if !ok || t.deleted[id] {
		return nil, apperr.NotFound("order %d not found", id)
	}

	if !t.lockedOrders[id] {
		ch, err := t.s.acquire(ctx, t.s.orderLocks, id, "order")
		if err != nil {
			return nil, err
		}
		t.held = append(t.held, ch)
		t.lockedOrders[id] = true
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	committed, ok := t.s.orders[id]
	if !ok {
		return nil, apperr.NotFound("order %d not found", id)
	}
	c := copyOrder(committed)
	if status, ok := t.statuses[id]; ok {
		c.Status = status
	}
	return &c, nil
}

func (t *tx) UpdateOrderStatus(ctx context.Context, id uint, status model.OrderStatus) error {
	if staged := t.stagedOrder(id); staged != nil {
		staged.Status = status
		staged.UpdatedAt = time.Now()
		return nil
	}
	if !t.lockedOrders[id] {
		return apperr.Storage(errNotLocked)
	}
	t.statuses[id] = status
	return nil
}

func (t *tx) DeleteOrder(ctx context.Context, id uint) error {
	if !t.lockedOrders[id] {
		return apperr.Storage(errNotLocked)
	}
	t.deleted[id] = true
	return nil
}

func (t *tx) stagedOrder(id uint) *model.Order {
	for _, o := range t.orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// commit publishes every staged write at once. Unique constraints are checked
// again because concurrent transactions may have committed the same keys.
func (t *tx) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range t.orders {
		if err := s.checkOrderUnique(o); err != nil {
			return err
		}
	}

	now := time.Now()
	for id, staged := range t.products {
		p, ok := s.products[id]
		if !ok {
			continue
		}
		p.Stock = staged.Stock
		p.AvailableStock = staged.AvailableStock
		p.UpdatedBy = staged.UpdatedBy
		p.UpdatedAt = staged.UpdatedAt
	}
	s.logs = append(s.logs, t.logs...)
	for _, o := range t.orders {
		stored := copyOrder(o)
		s.orders[o.ID] = &stored
		s.orderNumbers[o.OrderNumber] = o.ID
		if o.IdempotencyKey != nil {
			s.idemKeys[*o.IdempotencyKey] = o.ID
		}
	}
	for id, status := range t.statuses {
		if o, ok := s.orders[id]; ok {
			o.Status = status
			o.UpdatedAt = now
		}
	}
	for id := range t.deleted {
		o, ok := s.orders[id]
		if !ok {
			continue
		}
		delete(s.orderNumbers, o.OrderNumber)
		if o.IdempotencyKey != nil {
			delete(s.idemKeys, *o.IdempotencyKey)
		}
		delete(s.orders, id)
	}
	return nil
}

// resolveProduct must be called with s.mu held.
func (s *Store) resolveProduct(ref model.ProductRef) (uint, bool) {
	if ref.ID != 0 {
		_, ok := s.products[ref.ID]
		return ref.ID, ok
	}
	id, ok := s.barcodes[ref.Barcode]
	return id, ok
}

// checkOrderUnique must be called with s.mu held.
func (s *Store) checkOrderUnique(o *model.Order) error {
	if id, ok := s.orderNumbers[o.OrderNumber]; ok && id != o.ID {
		return apperr.Conflict(nil, "duplicate value violates order number")
	}
	if o.IdempotencyKey != nil {
		if id, ok := s.idemKeys[*o.IdempotencyKey]; ok && id != o.ID {
			return apperr.Conflict(nil, "duplicate value violates idempotency key")
		}
	}
	return nil
}

func sameKey(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func copyProduct(p *model.Product) model.Product {
	c := *p
	if p.ExpiryDate != nil {
		d := *p.ExpiryDate
		c.ExpiryDate = &d
	}
	return c
}

func copyOrder(o *model.Order) model.Order {
	c := *o
	if o.IdempotencyKey != nil {
		k := *o.IdempotencyKey
		c.IdempotencyKey = &k
	}
	c.Items = append([]model.OrderItem(nil), o.Items...)
	return c
}
