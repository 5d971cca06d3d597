package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	allowed := map[OrderStatus][]OrderStatus{
		OrderPending:   {OrderCompleted, OrderCancelled},
		OrderCompleted: {OrderCancelled, OrderRefunded},
	}
	all := []OrderStatus{OrderPending, OrderCompleted, OrderCancelled, OrderRefunded}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.False(t, OrderStatus("shipped").Valid())
	assert.True(t, OrderRefunded.Valid())
}

func TestScopeAndReasonValid(t *testing.T) {
	assert.True(t, ScopeBoth.Valid())
	assert.False(t, StockScope("all").Valid())
	assert.True(t, ReasonReturn.Valid())
	assert.False(t, AdjustmentReason("").Valid())
}

func TestProductRef(t *testing.T) {
	assert.True(t, ProductRef{}.IsZero())
	assert.Equal(t, "id=7", RefByID(7).String())
	assert.Equal(t, "barcode=899", RefByBarcode("899").String())
}
