package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-scan-pos/internal/apperr"
	"go-scan-pos/internal/eventbus"
	"go-scan-pos/internal/model"
	"go-scan-pos/internal/repository"
	"go-scan-pos/pkg/validator"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type CreateProductRequest struct {
	Barcode string          `json:"barcode" validate:"required,max=64"`
	Name    string          `json:"name" validate:"required,max=255"`
	Price   decimal.Decimal `json:"price" validate:"gte=0"`
	Stock   int             `json:"stock" validate:"gte=0"`
	// AvailableStock defaults to Stock.
	AvailableStock *int   `json:"available_stock" validate:"omitempty,gte=0"`
	ExpiryDate     string `json:"expiry_date"`
}

// UpdateProductRequest carries catalog metadata only. Counters change through
// adjustments and orders.
type UpdateProductRequest struct {
	Barcode    string          `json:"barcode" validate:"required,max=64"`
	Name       string          `json:"name" validate:"required,max=255"`
	Price      decimal.Decimal `json:"price" validate:"gte=0"`
	ExpiryDate string          `json:"expiry_date"`
}

type ProductService interface {
	Create(ctx context.Context, req CreateProductRequest, operatorID string) (*model.Product, error)
	Update(ctx context.Context, id uint, req UpdateProductRequest, operatorID string) (*model.Product, error)
	Get(ctx context.Context, ref model.ProductRef) (*model.Product, error)
	List(ctx context.Context, filter repository.ProductFilter) ([]model.Product, int64, error)
}

type productService struct {
	repo      repository.ProductRepository
	publisher eventbus.Publisher
	now       func() time.Time
}

func NewProductService(repo repository.ProductRepository, publisher eventbus.Publisher) ProductService {
	return &productService{repo: repo, publisher: publisher, now: time.Now}
}

func parseExpiry(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, apperr.Validation("expiry date %q must be YYYY-MM-DD", value)
	}
	return &t, nil
}

func (s *productService) Create(ctx context.Context, req CreateProductRequest, operatorID string) (*model.Product, error) {
	req.Barcode = strings.TrimSpace(req.Barcode)
	req.Name = strings.TrimSpace(req.Name)
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	available := req.Stock
	if req.AvailableStock != nil {
		available = *req.AvailableStock
	}
	if available > req.Stock {
		return nil, apperr.Validation("available stock %d must not exceed stock %d", available, req.Stock)
	}
	expiry, err := parseExpiry(req.ExpiryDate)
	if err != nil {
		return nil, err
	}

	product := &model.Product{
		Barcode:        req.Barcode,
		Name:           req.Name,
		Price:          req.Price,
		Stock:          req.Stock,
		AvailableStock: available,
		ExpiryDate:     expiry,
		CreatedBy:      operatorID,
		UpdatedBy:      operatorID,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict(nil, "barcode %s already exists", req.Barcode)
		}
		return nil, err
	}

	log.Info().Uint("product_id", product.ID).Str("barcode", product.Barcode).Str("operator_id", operatorID).Msg("Product created")
	publishEvent(ctx, s.publisher, eventbus.Event{
		Type:       eventbus.ProductCreated,
		Key:        product.Barcode,
		OperatorID: operatorID,
		OccurredAt: s.now(),
		Message:    fmt.Sprintf("product '%s' created", product.Name),
		Data:       product,
	})
	return product, nil
}

func (s *productService) Update(ctx context.Context, id uint, req UpdateProductRequest, operatorID string) (*model.Product, error) {
	req.Barcode = strings.TrimSpace(req.Barcode)
	req.Name = strings.TrimSpace(req.Name)
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	expiry, err := parseExpiry(req.ExpiryDate)
	if err != nil {
		return nil, err
	}

	product := &model.Product{
		ID:         id,
		Barcode:    req.Barcode,
		Name:       req.Name,
		Price:      req.Price,
		ExpiryDate: expiry,
		UpdatedBy:  operatorID,
	}
	if err := s.repo.UpdateDetails(ctx, product); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict(nil, "barcode %s already exists", req.Barcode)
		}
		return nil, err
	}

	updated, err := s.repo.Find(ctx, model.RefByID(id))
	if err != nil {
		return nil, err
	}
	log.Info().Uint("product_id", id).Str("barcode", updated.Barcode).Str("operator_id", operatorID).Msg("Product updated")
	publishEvent(ctx, s.publisher, eventbus.Event{
		Type:       eventbus.ProductUpdated,
		Key:        updated.Barcode,
		OperatorID: operatorID,
		OccurredAt: s.now(),
		Message:    fmt.Sprintf("product '%s' updated", updated.Name),
		Data:       updated,
	})
	return updated, nil
}

func (s *productService) Get(ctx context.Context, ref model.ProductRef) (*model.Product, error) {
	if ref.IsZero() {
		return nil, apperr.Validation("product id or barcode is required")
	}
	return s.repo.Find(ctx, ref)
}

func (s *productService) List(ctx context.Context, filter repository.ProductFilter) ([]model.Product, int64, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter)
}
