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
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type AdjustmentMode string

const (
	ModeAdd      AdjustmentMode = "add"
	ModeSubtract AdjustmentMode = "subtract"
	ModeSet      AdjustmentMode = "set"
)

func (m AdjustmentMode) Valid() bool {
	switch m {
	case ModeAdd, ModeSubtract, ModeSet:
		return true
	}
	return false
}

// AdjustmentRequest is a typed single product adjustment. Scope defaults to
// available only.
type AdjustmentRequest struct {
	Product    model.ProductRef
	Mode       AdjustmentMode
	Quantity   int
	Scope      model.StockScope
	Reason     model.AdjustmentReason
	OperatorID string
	Note       string
}

// SignedAdjustmentRequest applies a signed change. Scope defaults to both
// counters.
type SignedAdjustmentRequest struct {
	Product        model.ProductRef
	QuantityChange int
	Scope          model.StockScope
	Reason         model.AdjustmentReason
	OperatorID     string
	Note           string
}

type AdjustedProduct struct {
	Product  *model.Product      `json:"product"`
	Snapshot Snapshot            `json:"snapshot"`
	Log      *model.InventoryLog `json:"log"`
}

type AdjustmentService interface {
	Adjust(ctx context.Context, req AdjustmentRequest) (*AdjustedProduct, error)
	AdjustSigned(ctx context.Context, req SignedAdjustmentRequest) (*AdjustedProduct, error)
	History(ctx context.Context, productID uint, limit int) ([]model.InventoryLog, error)
}

type adjustmentService struct {
	store     repository.Store
	ledger    StockLedger
	recorder  AdjustmentRecorder
	publisher eventbus.Publisher
	now       func() time.Time
}

func NewAdjustmentService(store repository.Store, ledger StockLedger, recorder AdjustmentRecorder, publisher eventbus.Publisher) AdjustmentService {
	return &adjustmentService{
		store:     store,
		ledger:    ledger,
		recorder:  recorder,
		publisher: publisher,
		now:       time.Now,
	}
}

// scopeDeltas spreads delta over the counters covered by scope.
func scopeDeltas(scope model.StockScope, delta int) (deltaTotal, deltaAvailable int) {
	switch scope {
	case model.ScopeBoth:
		return delta, delta
	case model.ScopeTotal:
		return delta, 0
	default:
		return 0, delta
	}
}

// primaryCounter is the counter a set adjustment targets.
func primaryCounter(scope model.StockScope, p *model.Product) int {
	if scope == model.ScopeAvailable {
		return p.AvailableStock
	}
	return p.Stock
}

func modeDelta(mode AdjustmentMode, quantity, current int) int {
	switch mode {
	case ModeAdd:
		return quantity
	case ModeSubtract:
		return -quantity
	default:
		return quantity - current
	}
}

func validateCommon(ref model.ProductRef, scope model.StockScope, reason model.AdjustmentReason, operatorID string) error {
	if ref.IsZero() {
		return apperr.Validation("product id or barcode is required")
	}
	if !scope.Valid() {
		return apperr.Validation("unknown scope %q, expected available, both or total", scope)
	}
	if !reason.Valid() {
		return apperr.Validation("unknown reason %q, expected sale, restock, damage, adjustment or return", reason)
	}
	if strings.TrimSpace(operatorID) == "" {
		return apperr.Validation("operator id is required")
	}
	return nil
}

func (s *adjustmentService) Adjust(ctx context.Context, req AdjustmentRequest) (*AdjustedProduct, error) {
	if req.Scope == "" {
		req.Scope = model.ScopeAvailable
	}
	if !req.Mode.Valid() {
		return nil, apperr.Validation("unknown adjustment type %q, expected add, subtract or set", req.Mode)
	}
	if req.Quantity <= 0 {
		return nil, apperr.Validation("quantity must be a positive integer")
	}
	if err := validateCommon(req.Product, req.Scope, req.Reason, req.OperatorID); err != nil {
		return nil, err
	}

	var change int
	deltas := func(p *model.Product) (int, int) {
		change = modeDelta(req.Mode, req.Quantity, primaryCounter(req.Scope, p))
		return scopeDeltas(req.Scope, change)
	}
	note := req.Note
	if note == "" {
		note = fmt.Sprintf("%s %d (%s)", req.Mode, req.Quantity, req.Scope)
	}
	return s.apply(ctx, req.Product, req.Scope, req.Reason, req.OperatorID, note, deltas, &change)
}

func (s *adjustmentService) AdjustSigned(ctx context.Context, req SignedAdjustmentRequest) (*AdjustedProduct, error) {
	if req.Scope == "" {
		req.Scope = model.ScopeBoth
	}
	if req.QuantityChange == 0 {
		return nil, apperr.Validation("quantity change must not be zero")
	}
	if err := validateCommon(req.Product, req.Scope, req.Reason, req.OperatorID); err != nil {
		return nil, err
	}

	change := req.QuantityChange
	deltas := func(*model.Product) (int, int) {
		return scopeDeltas(req.Scope, change)
	}
	return s.apply(ctx, req.Product, req.Scope, req.Reason, req.OperatorID, req.Note, deltas, &change)
}

// apply runs the ledger mutation and its audit row in one transaction. change
// is filled by deltas once the product is locked.
func (s *adjustmentService) apply(ctx context.Context, ref model.ProductRef, scope model.StockScope, reason model.AdjustmentReason,
	operatorID, note string, deltas DeltaFunc, change *int) (*AdjustedProduct, error) {
	ctx, span := tracer.Start(ctx, "AdjustmentService.Adjust")
	defer span.End()
	span.SetAttributes(
		attribute.String("product.ref", ref.String()),
		attribute.String("adjustment.scope", string(scope)),
		attribute.String("adjustment.reason", string(reason)),
	)

	var result AdjustedProduct
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		product, snap, err := s.ledger.ApplyWith(ctx, tx, ref, deltas, operatorID)
		if err != nil {
			return err
		}
		entry, err := s.recorder.Record(ctx, tx, AuditEntry{
			Snapshot:       snap,
			QuantityChange: *change,
			Scope:          scope,
			Reason:         reason,
			OperatorID:     operatorID,
			Note:           note,
		})
		if err != nil {
			return err
		}
		result = AdjustedProduct{Product: product, Snapshot: snap, Log: entry}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.KindOf(err)))
		logRejected(err, "Stock adjustment rejected", ref, operatorID)
		return nil, err
	}

	log.Info().
		Uint("product_id", result.Product.ID).
		Str("barcode", result.Product.Barcode).
		Str("operator_id", operatorID).
		Str("reason", string(reason)).
		Str("scope", string(scope)).
		Int("quantity_change", *change).
		Int("stock", result.Snapshot.StockAfter).
		Int("available_stock", result.Snapshot.AvailableAfter).
		Msg("Stock adjusted")

	s.publish(ctx, eventbus.Event{
		Type:       eventbus.StockAdjusted,
		Key:        result.Product.Barcode,
		OperatorID: operatorID,
		OccurredAt: s.now(),
		Message:    fmt.Sprintf("stock of '%s' changed by %d (%s)", result.Product.Name, *change, reason),
		Data: map[string]interface{}{
			"product":  result.Product,
			"snapshot": result.Snapshot,
			"log_id":   result.Log.ID,
			"reason":   reason,
			"scope":    scope,
		},
	})
	return &result, nil
}

func (s *adjustmentService) History(ctx context.Context, productID uint, limit int) ([]model.InventoryLog, error) {
	if productID == 0 {
		return nil, apperr.Validation("product id is required")
	}
	if _, err := s.store.Products().Find(ctx, model.RefByID(productID)); err != nil {
		return nil, err
	}
	return s.store.InventoryLogs().ListByProduct(ctx, productID, limit)
}

func (s *adjustmentService) publish(ctx context.Context, event eventbus.Event) {
	publishEvent(ctx, s.publisher, event)
}

// publishEvent never fails the caller, the mutation is already committed.
func publishEvent(ctx context.Context, publisher eventbus.Publisher, event eventbus.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("event", event.Type).Str("key", event.Key).Msg("Failed to publish event")
	}
}

// logRejected logs caller errors at warn and storage failures at error.
func logRejected(err error, msg string, ref model.ProductRef, operatorID string) {
	kind := apperr.KindOf(err)
	evt := log.Warn()
	if kind == apperr.KindStorage {
		evt = log.Error()
	}
	evt.Err(err).Str("kind", string(kind)).Str("product", ref.String()).Str("operator_id", operatorID).Msg(msg)
}
