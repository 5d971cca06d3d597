package service

import (
	"context"
	"time"

	"go-scan-pos/internal/apperr"
	"go-scan-pos/internal/model"
	"go-scan-pos/internal/repository"
)

// AuditEntry describes one committed ledger mutation.
type AuditEntry struct {
	Snapshot       Snapshot
	QuantityChange int
	Scope          model.StockScope
	Reason         model.AdjustmentReason
	OperatorID     string
	Note           string
	OrderID        *uint
}

// AdjustmentRecorder appends the audit row for a ledger mutation in the same
// transaction as the mutation.
type AdjustmentRecorder interface {
	Record(ctx context.Context, tx repository.Tx, entry AuditEntry) (*model.InventoryLog, error)
}

type adjustmentRecorder struct {
	now func() time.Time
}

func NewAdjustmentRecorder(now func() time.Time) AdjustmentRecorder {
	if now == nil {
		now = time.Now
	}
	return &adjustmentRecorder{now: now}
}

func (r *adjustmentRecorder) Record(ctx context.Context, tx repository.Tx, entry AuditEntry) (*model.InventoryLog, error) {
	if !entry.Reason.Valid() {
		return nil, apperr.Validation("unknown adjustment reason %q", entry.Reason)
	}
	if entry.OperatorID == "" {
		return nil, apperr.Validation("operator id is required")
	}

	row := &model.InventoryLog{
		ProductID:       entry.Snapshot.ProductID,
		OperatorID:      entry.OperatorID,
		QuantityChange:  entry.QuantityChange,
		StockBefore:     entry.Snapshot.StockBefore,
		StockAfter:      entry.Snapshot.StockAfter,
		AvailableBefore: entry.Snapshot.AvailableBefore,
		AvailableAfter:  entry.Snapshot.AvailableAfter,
		Scope:           entry.Scope,
		Reason:          entry.Reason,
		Note:            entry.Note,
		OrderID:         entry.OrderID,
		CreatedAt:       r.now(),
	}
	if err := tx.CreateInventoryLog(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}
