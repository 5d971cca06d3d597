package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go-scan-pos/internal/apperr"
	"go-scan-pos/internal/model"
	"go-scan-pos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errNotLocked = errors.New("memory: row written without holding its lock")

type productRepo struct{ s *Store }

func (r productRepo) Create(ctx context.Context, product *model.Product) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.barcodes[product.Barcode]; ok {
		return apperr.Conflict(nil, "barcode %s already exists", product.Barcode)
	}
	s.seq.product++
	product.ID = s.seq.product
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	stored := copyProduct(product)
	s.products[product.ID] = &stored
	s.barcodes[product.Barcode] = product.ID
	return nil
}

func (r productRepo) UpdateDetails(ctx context.Context, product *model.Product) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.products[product.ID]
	if !ok {
		return apperr.NotFound("product %d not found", product.ID)
	}
	if id, taken := s.barcodes[product.Barcode]; taken && id != product.ID {
		return apperr.Conflict(nil, "barcode %s already exists", product.Barcode)
	}

	delete(s.barcodes, stored.Barcode)
	s.barcodes[product.Barcode] = product.ID
	stored.Barcode = product.Barcode
	stored.Name = product.Name
	stored.Price = product.Price
	stored.ExpiryDate = product.ExpiryDate
	stored.UpdatedBy = product.UpdatedBy
	stored.UpdatedAt = time.Now()
	return nil
}

func (r productRepo) Find(ctx context.Context, ref model.ProductRef) (*model.Product, error) {
	if ref.IsZero() {
		return nil, apperr.Validation("product id or barcode is required")
	}
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.resolveProduct(ref)
	if !ok {
		return nil, apperr.NotFound("product %s not found", ref)
	}
	p := copyProduct(s.products[id])
	return &p, nil
}

func (r productRepo) List(ctx context.Context, filter repository.ProductFilter) ([]model.Product, int64, error) {
	limit, offset := repository.NormalizePage(filter.Limit, filter.Offset)
	search := strings.ToLower(filter.Search)

	r.s.mu.Lock()
	var matched []model.Product
	for _, p := range r.s.products {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(p.Barcode, filter.Search) {
			continue
		}
		matched = append(matched, copyProduct(p))
	}
	r.s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID < matched[j].ID
	})
	return page(matched, limit, offset), int64(len(matched)), nil
}

func (r productRepo) Stats(ctx context.Context, lowStockThreshold int, expiringBefore time.Time) (*repository.ProductStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stats := &repository.ProductStats{TotalValuation: decimal.Zero}
	for _, p := range r.s.products {
		stats.TotalProducts++
		switch {
		case p.AvailableStock == 0:
			stats.OutOfStock++
		case p.AvailableStock > 0 && p.AvailableStock < lowStockThreshold:
			stats.LowStockCount++
		}
		if p.ExpiryDate != nil && !p.ExpiryDate.After(expiringBefore) {
			stats.ExpiringSoon++
		}
		stats.TotalUnits += int64(p.Stock)
		stats.TotalValuation = stats.TotalValuation.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Stock))))
	}
	return stats, nil
}

type inventoryLogRepo struct{ s *Store }

func (r inventoryLogRepo) ListByProduct(ctx context.Context, productID uint, limit int) ([]model.InventoryLog, error) {
	limit, _ = repository.NormalizePage(limit, 0)

	r.s.mu.Lock()
	var logs []model.InventoryLog
	for _, l := range r.s.logs {
		if l.ProductID == productID {
			logs = append(logs, l)
		}
	}
	r.s.mu.Unlock()

	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].CreatedAt.Equal(logs[j].CreatedAt) {
			return logs[i].CreatedAt.After(logs[j].CreatedAt)
		}
		return logs[i].ID > logs[j].ID
	})
	return page(logs, limit, 0), nil
}

type orderRepo struct{ s *Store }

func (r orderRepo) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(id)
}

func (r orderRepo) FindByNumber(ctx context.Context, number string) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.orderNumbers[number]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	return r.find(id)
}

func (r orderRepo) FindByIdempotencyKey(ctx context.Context, key string) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.idemKeys[key]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	return r.find(id)
}

func (r orderRepo) find(id uint) (*model.Order, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	c := copyOrder(o)
	return &c, nil
}

func (r orderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]model.Order, int64, error) {
	limit, offset := repository.NormalizePage(filter.Limit, filter.Offset)

	r.s.mu.Lock()
	var orders []model.Order
	for _, o := range r.s.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		orders = append(orders, copyOrder(o))
	}
	r.s.mu.Unlock()

	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
	return page(orders, limit, offset), int64(len(orders)), nil
}

func (r orderRepo) SalesSummary(ctx context.Context, from, to time.Time) (*repository.SalesSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	summary := &repository.SalesSummary{Revenue: decimal.Zero}
	for _, o := range r.s.orders {
		if o.Status != model.OrderCompleted || o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		summary.OrderCount++
		summary.Revenue = summary.Revenue.Add(o.FinalAmount)
	}
	return summary, nil
}

type outboundRepo struct{ s *Store }

func (r outboundRepo) Create(ctx context.Context, record *model.OutboundRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.seq.outbound++
	record.ID = r.s.seq.outbound
	if record.OutboundAt.IsZero() {
		record.OutboundAt = time.Now()
	}
	stored := *record
	stored.Product = nil
	r.s.outbound = append(r.s.outbound, stored)
	return nil
}

func (r outboundRepo) List(ctx context.Context, limit, offset int) ([]model.OutboundRecord, int64, error) {
	limit, offset = repository.NormalizePage(limit, offset)

	r.s.mu.Lock()
	records := make([]model.OutboundRecord, 0, len(r.s.outbound))
	for _, rec := range r.s.outbound {
		if rec.ProductID != nil {
			if p, ok := r.s.products[*rec.ProductID]; ok {
				c := copyProduct(p)
				rec.Product = &c
			}
		}
		records = append(records, rec)
	}
	r.s.mu.Unlock()

	sort.Slice(records, func(i, j int) bool {
		if !records[i].OutboundAt.Equal(records[j].OutboundAt) {
			return records[i].OutboundAt.After(records[j].OutboundAt)
		}
		return records[i].ID > records[j].ID
	})
	return page(records, limit, offset), int64(len(records)), nil
}

func (r outboundRepo) Stats(ctx context.Context, dayStart time.Time) (*model.OutboundStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stats := &model.OutboundStats{}
	all := make(map[string]struct{})
	today := make(map[string]struct{})
	for _, rec := range r.s.outbound {
		stats.TotalCount++
		stats.TotalQuantity += int64(rec.Quantity)
		all[rec.Barcode] = struct{}{}
		if !rec.OutboundAt.Before(dayStart) {
			stats.TodayCount++
			stats.TodayQuantity += int64(rec.Quantity)
			today[rec.Barcode] = struct{}{}
		}
	}
	stats.DistinctBarcodes = int64(len(all))
	stats.TodayDistinctBarcodes = int64(len(today))
	return stats, nil
}

func (r outboundRepo) Popular(ctx context.Context, limit int) ([]model.PopularItem, error) {
	limit, _ = repository.NormalizePage(limit, 0)

	r.s.mu.Lock()
	byBarcode := make(map[string]*model.PopularItem)
	for _, rec := range r.s.outbound {
		item, ok := byBarcode[rec.Barcode]
		if !ok {
			item = &model.PopularItem{Barcode: rec.Barcode}
			if id, found := r.s.barcodes[rec.Barcode]; found {
				item.ProductName = r.s.products[id].Name
			}
			byBarcode[rec.Barcode] = item
		}
		item.EventCount++
		item.TotalQuantity += int64(rec.Quantity)
		if rec.OutboundAt.After(item.LastOutbound) {
			item.LastOutbound = rec.OutboundAt
		}
	}
	r.s.mu.Unlock()

	items := make([]model.PopularItem, 0, len(byBarcode))
	for _, item := range byBarcode {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].EventCount != items[j].EventCount {
			return items[i].EventCount > items[j].EventCount
		}
		if !items[i].LastOutbound.Equal(items[j].LastOutbound) {
			return items[i].LastOutbound.After(items[j].LastOutbound)
		}
		return items[i].Barcode < items[j].Barcode
	})
	return page(items, limit, 0), nil
}

type userRepo struct{ s *Store }

func (r userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return r.withRole(u), nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (r userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return r.withRole(u), nil
}

// withRole must be called with s.mu held.
func (r userRepo) withRole(u *model.User) *model.User {
	c := *u
	c.Role = nil
	if u.RoleID != nil {
		if role, ok := r.s.roles[*u.RoleID]; ok {
			rc := copyRole(role)
			c.Role = &rc
		}
	}
	return &c
}

func (r userRepo) List(ctx context.Context) ([]model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := make([]model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, *r.withRole(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (r userRepo) Create(ctx context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email {
			return apperr.Conflict(nil, "email %s already registered", user.Email)
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	stored.Role = nil
	r.s.users[user.ID.String()] = &stored
	return nil
}

func (r userRepo) UpdatePassword(ctx context.Context, id string, hashedPassword string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return apperr.NotFound("user not found")
	}
	u.Password = hashedPassword
	u.UpdatedAt = time.Now()
	return nil
}

func (r userRepo) SetActive(ctx context.Context, id string, active bool, updatedBy string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return apperr.NotFound("user not found")
	}
	u.IsActive = active
	u.UpdatedBy = updatedBy
	u.UpdatedAt = time.Now()
	return nil
}

type roleRepo struct{ s *Store }

func (r roleRepo) FindAll(ctx context.Context) ([]model.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	roles := make([]model.Role, 0, len(r.s.roles))
	for _, role := range r.s.roles {
		roles = append(roles, copyRole(role))
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles, nil
}

func (r roleRepo) FindByCode(ctx context.Context, code string) (*model.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, role := range r.s.roles {
		if role.Code == code {
			c := copyRole(role)
			return &c, nil
		}
	}
	return nil, apperr.NotFound("role %s not found", code)
}

func (r roleRepo) SeedDefaults(ctx context.Context) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	byCode := make(map[string]*model.Privilege)
	for _, p := range s.privileges {
		byCode[p.Code] = p
	}
	for _, p := range model.DefaultPrivileges {
		if _, ok := byCode[p.Code]; ok {
			continue
		}
		s.seq.privilege++
		stored := p
		stored.ID = s.seq.privilege
		s.privileges[stored.ID] = &stored
		byCode[stored.Code] = &stored
	}

	for _, def := range model.DefaultRoles {
		var role *model.Role
		for _, existing := range s.roles {
			if existing.Code == def.Code {
				role = existing
				break
			}
		}
		if role == nil {
			s.seq.role++
			stored := def
			stored.ID = s.seq.role
			role = &stored
			s.roles[role.ID] = role
		}
		if len(role.Privileges) > 0 {
			continue
		}

		codes, ok := model.DefaultRolePrivileges[role.Code]
		if !ok {
			continue
		}
		if codes == nil {
			role.Privileges = s.sortedPrivileges()
			continue
		}
		for _, code := range codes {
			if p, ok := byCode[code]; ok {
				role.Privileges = append(role.Privileges, *p)
			}
		}
	}
	return nil
}

type privilegeRepo struct{ s *Store }

func (r privilegeRepo) FindAll(ctx context.Context) ([]model.Privilege, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.sortedPrivileges(), nil
}

// sortedPrivileges must be called with s.mu held.
func (s *Store) sortedPrivileges() []model.Privilege {
	out := make([]model.Privilege, 0, len(s.privileges))
	for _, p := range s.privileges {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func copyRole(r *model.Role) model.Role {
	c := *r
	c.Privileges = append([]model.Privilege(nil), r.Privileges...)
	return c
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
