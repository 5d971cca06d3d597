package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go-scan-pos/internal/apperr"
	"go-scan-pos/internal/eventbus"
	"go-scan-pos/internal/idempotency"
	"go-scan-pos/internal/model"
	"go-scan-pos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// OrderLine is one scanned cart line.
type OrderLine struct {
	Barcode  string          `json:"barcode"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type FulfillRequest struct {
	Lines          []OrderLine
	TotalAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	// FinalAmount is optional. When set it must equal total minus discount.
	FinalAmount    *decimal.Decimal
	IdempotencyKey string
	OperatorID     string
}

type FulfilledOrder struct {
	Order *model.Order `json:"order"`
	// Replayed is true when the idempotency key matched an order committed by
	// an earlier request. Stock was not touched again.
	Replayed  bool       `json:"replayed"`
	Snapshots []Snapshot `json:"snapshots,omitempty"`
}

type OrderService interface {
	Fulfill(ctx context.Context, req FulfillRequest) (*FulfilledOrder, error)
	Get(ctx context.Context, id uint) (*model.Order, error)
	GetByNumber(ctx context.Context, number string) (*model.Order, error)
	List(ctx context.Context, filter repository.OrderFilter) ([]model.Order, int64, error)
	UpdateStatus(ctx context.Context, id uint, status model.OrderStatus, operatorID string) (*model.Order, error)
	// Delete removes a cancelled order together with its items.
	Delete(ctx context.Context, id uint, operatorID string) error
}

type orderService struct {
	store     repository.Store
	ledger    StockLedger
	recorder  AdjustmentRecorder
	guard     idempotency.Guard
	publisher eventbus.Publisher
	now       func() time.Time
}

func NewOrderService(store repository.Store, ledger StockLedger, recorder AdjustmentRecorder, guard idempotency.Guard, publisher eventbus.Publisher) OrderService {
	if guard == nil {
		guard = idempotency.NewLocalGuard()
	}
	return &orderService{
		store:     store,
		ledger:    ledger,
		recorder:  recorder,
		guard:     guard,
		publisher: publisher,
		now:       time.Now,
	}
}

// NewOrderNumber builds ORD-YYYYMMDD-HHMMSS-XXXXXXXX with a random suffix so
// concurrent checkouts in the same second never collide.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102-150405"), suffix)
}

func validateFulfill(req FulfillRequest) error {
	if len(req.Lines) == 0 {
		return apperr.Validation("order must contain at least one item")
	}
	if req.TotalAmount.IsNegative() {
		return apperr.Validation("total amount must not be negative")
	}
	if req.DiscountAmount.IsNegative() {
		return apperr.Validation("discount amount must not be negative")
	}
	if req.DiscountAmount.GreaterThan(req.TotalAmount) {
		return apperr.Validation("discount amount must not exceed total amount")
	}
	if req.FinalAmount != nil && !req.FinalAmount.Equal(req.TotalAmount.Sub(req.DiscountAmount)) {
		return apperr.Validation("final amount %s does not equal total %s minus discount %s",
			req.FinalAmount.StringFixed(2), req.TotalAmount.StringFixed(2), req.DiscountAmount.StringFixed(2))
	}
	for i, line := range req.Lines {
		if strings.TrimSpace(line.Barcode) == "" {
			return apperr.Validation("item %d: barcode is required", i+1)
		}
		if line.Quantity <= 0 {
			return apperr.Validation("item %d (%s): quantity must be greater than zero", i+1, line.Barcode)
		}
		if line.Price.IsNegative() {
			return apperr.Validation("item %d (%s): price must not be negative", i+1, line.Barcode)
		}
	}
	if strings.TrimSpace(req.OperatorID) == "" {
		return apperr.Validation("operator id is required")
	}
	if len(req.IdempotencyKey) > 128 {
		return apperr.Validation("idempotency key must be at most 128 characters")
	}
	return nil
}

// lockPlan merges lines per barcode and returns barcodes in ascending order,
// the order in which product rows are locked.
func lockPlan(lines []OrderLine) ([]string, map[string]int) {
	quantities := make(map[string]int)
	for _, line := range lines {
		quantities[strings.TrimSpace(line.Barcode)] += line.Quantity
	}
	barcodes := make([]string, 0, len(quantities))
	for b := range quantities {
		barcodes = append(barcodes, b)
	}
	sort.Strings(barcodes)
	return barcodes, quantities
}

// requestHash fingerprints the lines and amounts of a checkout so a reused
// idempotency key can be told apart from a retry of the same cart.
func requestHash(req FulfillRequest) string {
	h := sha256.New()
	for _, line := range req.Lines {
		fmt.Fprintf(h, "%s|%d|%s\n", strings.TrimSpace(line.Barcode), line.Quantity, line.Price.String())
	}
	fmt.Fprintf(h, "total=%s|discount=%s", req.TotalAmount.String(), req.DiscountAmount.String())
	return hex.EncodeToString(h.Sum(nil))
}

func (s *orderService) Fulfill(ctx context.Context, req FulfillRequest) (*FulfilledOrder, error) {
	ctx, span := tracer.Start(ctx, "OrderFulfillment.Fulfill")
	defer span.End()

	if err := validateFulfill(req); err != nil {
		span.SetStatus(codes.Error, string(apperr.KindValidation))
		return nil, err
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	fingerprint := requestHash(req)
	span.SetAttributes(attribute.Int("order.lines", len(req.Lines)), attribute.Bool("order.idempotent", key != ""))

	if key != "" {
		if replay, err := s.replay(ctx, key, fingerprint); replay != nil || err != nil {
			return replay, err
		}

		token, ok, err := s.guard.Acquire(ctx, key)
		switch {
		case err != nil:
			// the unique index still protects the key
			log.Warn().Err(err).Str("idempotency_key", key).Msg("Idempotency guard unavailable")
		case !ok:
			return nil, apperr.Conflict(nil, "checkout with idempotency key %q is already in progress", key)
		default:
			defer func() {
				if err := s.guard.Release(context.WithoutCancel(ctx), key, token); err != nil {
					log.Warn().Err(err).Str("idempotency_key", key).Msg("Failed to release idempotency guard")
				}
			}()
		}
	}

	now := s.now()
	order := &model.Order{
		OrderNumber:    NewOrderNumber(now),
		TotalAmount:    req.TotalAmount,
		DiscountAmount: req.DiscountAmount,
		FinalAmount:    req.TotalAmount.Sub(req.DiscountAmount),
		Status:         model.OrderCompleted,
		OperatorID:     req.OperatorID,
		CreatedAt:      now,
	}
	if key != "" {
		order.IdempotencyKey = &key
		order.RequestHash = fingerprint
	}
	for _, line := range req.Lines {
		order.Items = append(order.Items, model.OrderItem{
			Barcode:     strings.TrimSpace(line.Barcode),
			ProductName: line.Name,
			Price:       line.Price,
			Quantity:    line.Quantity,
			Subtotal:    line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}
	span.SetAttributes(attribute.String("order.number", order.OrderNumber))

	var (
		replayed  *model.Order
		snapshots []Snapshot
	)
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		if key != "" {
			existing, err := tx.FindOrderByIdempotencyKey(ctx, key)
			if err == nil {
				if err := checkReplay(existing, key, fingerprint); err != nil {
					return err
				}
				replayed = existing
				return nil
			}
			if !apperr.Is(err, apperr.KindNotFound) {
				return err
			}
		}

		barcodes, quantities := lockPlan(req.Lines)
		products := make(map[string]*model.Product, len(barcodes))
		snapshots = snapshots[:0]
		for _, barcode := range barcodes {
			q := quantities[barcode]
			product, snap, err := s.ledger.Apply(ctx, tx, model.RefByBarcode(barcode), -q, -q, req.OperatorID)
			if err != nil {
				return err
			}
			products[barcode] = product
			snapshots = append(snapshots, snap)
		}

		for i := range order.Items {
			if order.Items[i].ProductName == "" {
				order.Items[i].ProductName = products[order.Items[i].Barcode].Name
			}
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}

		for i, barcode := range barcodes {
			if _, err := s.recorder.Record(ctx, tx, AuditEntry{
				Snapshot:       snapshots[i],
				QuantityChange: -quantities[barcode],
				Scope:          model.ScopeBoth,
				Reason:         model.ReasonSale,
				OperatorID:     req.OperatorID,
				Note:           "order " + order.OrderNumber,
				OrderID:        &order.ID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if key != "" && errors.Is(err, apperr.ErrConflict) {
			// lost the race on the unique key to a committed twin
			replay, rerr := s.replay(ctx, key, fingerprint)
			switch {
			case replay != nil:
				return replay, nil
			case errors.Is(rerr, apperr.ErrConflict):
				err = rerr
			case rerr != nil:
				log.Warn().Err(rerr).Str("idempotency_key", key).Msg("Replay lookup failed")
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.KindOf(err)))
		logOrderRejected(err, req)
		return nil, err
	}
	if replayed != nil {
		log.Info().Str("order_number", replayed.OrderNumber).Str("idempotency_key", key).Msg("Checkout replayed")
		return &FulfilledOrder{Order: replayed, Replayed: true}, nil
	}

	log.Info().
		Uint("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Str("operator_id", req.OperatorID).
		Int("items", len(order.Items)).
		Str("final_amount", order.FinalAmount.StringFixed(2)).
		Msg("Order fulfilled")

	publishEvent(ctx, s.publisher, eventbus.Event{
		Type:       eventbus.OrderFulfilled,
		Key:        order.OrderNumber,
		OperatorID: req.OperatorID,
		OccurredAt: now,
		Message:    fmt.Sprintf("order %s completed with %d items", order.OrderNumber, len(order.Items)),
		Data: map[string]interface{}{
			"order":     order,
			"snapshots": snapshots,
		},
	})
	return &FulfilledOrder{Order: order, Snapshots: snapshots}, nil
}

// replay returns the committed order for key, or nil when there is none.
// A committed order whose fingerprint differs is a Conflict.
func (s *orderService) replay(ctx context.Context, key, fingerprint string) (*FulfilledOrder, error) {
	existing, err := s.store.Orders().FindByIdempotencyKey(ctx, key)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := checkReplay(existing, key, fingerprint); err != nil {
		return nil, err
	}
	log.Info().Str("order_number", existing.OrderNumber).Str("idempotency_key", key).Msg("Checkout replayed")
	return &FulfilledOrder{Order: existing, Replayed: true}, nil
}

// checkReplay rejects a reused key carrying a different cart. Orders stored
// without a fingerprint always replay.
func checkReplay(existing *model.Order, key, fingerprint string) error {
	if existing.RequestHash == "" || existing.RequestHash == fingerprint {
		return nil
	}
	return apperr.Conflict(nil, "idempotency key %q was already used for order %s with a different cart", key, existing.OrderNumber)
}

func logOrderRejected(err error, req FulfillRequest) {
	kind := apperr.KindOf(err)
	evt := log.Warn()
	if kind == apperr.KindStorage {
		evt = log.Error()
	}
	evt.Err(err).Str("kind", string(kind)).Str("operator_id", req.OperatorID).Int("items", len(req.Lines)).Msg("Checkout rejected")
}

func (s *orderService) Get(ctx context.Context, id uint) (*model.Order, error) {
	return s.store.Orders().FindByID(ctx, id)
}

func (s *orderService) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	if strings.TrimSpace(number) == "" {
		return nil, apperr.Validation("order number is required")
	}
	return s.store.Orders().FindByNumber(ctx, number)
}

func (s *orderService) List(ctx context.Context, filter repository.OrderFilter) ([]model.Order, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperr.Validation("unknown order status %q", filter.Status)
	}
	return s.store.Orders().List(ctx, filter)
}

func (s *orderService) UpdateStatus(ctx context.Context, id uint, status model.OrderStatus, operatorID string) (*model.Order, error) {
	if !status.Valid() {
		return nil, apperr.Validation("unknown order status %q", status)
	}

	var previous model.OrderStatus
	var updated *model.Order
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		order, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(status) {
			return apperr.Validation("order %s cannot move from %s to %s", order.OrderNumber, order.Status, status)
		}
		if err := tx.UpdateOrderStatus(ctx, id, status); err != nil {
			return err
		}
		previous = order.Status
		order.Status = status
		order.UpdatedAt = s.now()
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("order_number", updated.OrderNumber).Str("from", string(previous)).Str("to", string(status)).
		Str("operator_id", operatorID).Msg("Order status changed")
	publishEvent(ctx, s.publisher, eventbus.Event{
		Type:       eventbus.OrderStatusChanged,
		Key:        updated.OrderNumber,
		OperatorID: operatorID,
		OccurredAt: s.now(),
		Message:    fmt.Sprintf("order %s is now %s", updated.OrderNumber, status),
		Data: map[string]interface{}{
			"order_id":     updated.ID,
			"order_number": updated.OrderNumber,
			"from":         previous,
			"to":           status,
		},
	})
	return updated, nil
}

func (s *orderService) Delete(ctx context.Context, id uint, operatorID string) error {
	var number string
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		order, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		if order.Status != model.OrderCancelled {
			return apperr.Validation("only cancelled orders can be deleted, order %s is %s", order.OrderNumber, order.Status)
		}
		number = order.OrderNumber
		return tx.DeleteOrder(ctx, id)
	})
	if err != nil {
		return err
	}

	log.Info().Str("order_number", number).Str("operator_id", operatorID).Msg("Order deleted")
	publishEvent(ctx, s.publisher, eventbus.Event{
		Type:       eventbus.OrderDeleted,
		Key:        number,
		OperatorID: operatorID,
		OccurredAt: s.now(),
		Data:       map[string]interface{}{"order_id": id, "order_number": number},
	})
	return nil
}
