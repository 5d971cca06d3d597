package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-scan-pos/internal/apperr"
	"go-scan-pos/internal/eventbus"
	"go-scan-pos/internal/model"
	"go-scan-pos/internal/repository"

	"github.com/rs/zerolog/log"
)

type OutboundRequest struct {
	Barcode    string
	ProductID  *uint
	Quantity   int
	OperatorID string
}

// OutboundService logs dispatch and scan events. It never touches stock
// counters.
type OutboundService interface {
	Record(ctx context.Context, req OutboundRequest) (*model.OutboundRecord, error)
	List(ctx context.Context, limit, offset int) ([]model.OutboundRecord, int64, error)
	Stats(ctx context.Context) (*model.OutboundStats, error)
	Popular(ctx context.Context, limit int) ([]model.PopularItem, error)
}

type outboundService struct {
	repo      repository.OutboundRepository
	products  repository.ProductRepository
	publisher eventbus.Publisher
	now       func() time.Time
}

func NewOutboundService(repo repository.OutboundRepository, products repository.ProductRepository, publisher eventbus.Publisher) OutboundService {
	return &outboundService{
		repo:      repo,
		products:  products,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *outboundService) Record(ctx context.Context, req OutboundRequest) (*model.OutboundRecord, error) {
	barcode := strings.TrimSpace(req.Barcode)
	if barcode == "" {
		return nil, apperr.Validation("barcode is required")
	}
	if len(barcode) > 64 {
		return nil, apperr.Validation("barcode must be at most 64 characters")
	}
	if req.Quantity < 0 {
		return nil, apperr.Validation("quantity must be positive")
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	record := &model.OutboundRecord{
		Barcode:    barcode,
		Quantity:   req.Quantity,
		OperatorID: req.OperatorID,
		OutboundAt: s.now(),
	}

	var product *model.Product
	if req.ProductID != nil && *req.ProductID != 0 {
		p, err := s.products.Find(ctx, model.RefByID(*req.ProductID))
		if err != nil {
			return nil, err
		}
		product = p
	} else {
		// unknown barcodes are still recorded
		p, err := s.products.Find(ctx, model.RefByBarcode(barcode))
		switch {
		case err == nil:
			product = p
		case !apperr.Is(err, apperr.KindNotFound):
			return nil, err
		}
	}
	if product != nil {
		id := product.ID
		record.ProductID = &id
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}
	record.Product = product

	log.Info().Str("barcode", barcode).Int("quantity", record.Quantity).Bool("catalog_match", product != nil).
		Str("operator_id", req.OperatorID).Msg("Outbound recorded")

	message := fmt.Sprintf("outbound %dx %s", record.Quantity, barcode)
	if product != nil {
		message = fmt.Sprintf("outbound %dx '%s'", record.Quantity, product.Name)
	}
	publishEvent(ctx, s.publisher, eventbus.Event{
		Type:       eventbus.OutboundRecorded,
		Key:        barcode,
		OperatorID: req.OperatorID,
		OccurredAt: record.OutboundAt,
		Message:    message,
		Data:       record,
	})
	return record, nil
}

func (s *outboundService) List(ctx context.Context, limit, offset int) ([]model.OutboundRecord, int64, error) {
	return s.repo.List(ctx, limit, offset)
}

// Stats counts "today" from local midnight.
func (s *outboundService) Stats(ctx context.Context) (*model.OutboundStats, error) {
	return s.repo.Stats(ctx, startOfDay(s.now()))
}

func (s *outboundService) Popular(ctx context.Context, limit int) ([]model.PopularItem, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.Popular(ctx, limit)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
