package service

import (
	"context"
	"testing"
	"time"

	"go-scan-pos/internal/apperr"
	"go-scan-pos/internal/eventbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboundRecord_MatchesCatalogWithoutTouchingStock(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A1", 10, 8)

	rec, err := f.outbound.Record(context.Background(), OutboundRequest{Barcode: " A1 ", Quantity: 3, OperatorID: operator})
	require.NoError(t, err)
	assert.Equal(t, "A1", rec.Barcode)
	require.NotNil(t, rec.ProductID)
	assert.Equal(t, p.ID, *rec.ProductID)
	require.NotNil(t, rec.Product)
	assert.Equal(t, p.Name, rec.Product.Name)

	stock, avail := f.counters(t, p.ID)
	assert.Equal(t, 10, stock)
	assert.Equal(t, 8, avail)
	assert.Empty(t, f.logs(t, p.ID))

	events := f.events.OfType(eventbus.OutboundRecorded)
	require.Len(t, events, 1)
	assert.Equal(t, "outbound 3x 'Product A1'", events[0].Message)
}

func TestOutboundRecord_UnknownBarcodeIsKept(t *testing.T) {
	f := newFixture(t)

	rec, err := f.outbound.Record(context.Background(), OutboundRequest{Barcode: "UNKNOWN", OperatorID: operator})
	require.NoError(t, err)
	assert.Nil(t, rec.ProductID)
	assert.Equal(t, 1, rec.Quantity, "quantity defaults to one")
}

func TestOutboundRecord_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	missing := uint(42)

	_, err := f.outbound.Record(ctx, OutboundRequest{Barcode: "  "})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.outbound.Record(ctx, OutboundRequest{Barcode: "A1", Quantity: -2})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	long := make([]byte, 65)
	for i := range long {
		long[i] = '9'
	}
	_, err = f.outbound.Record(ctx, OutboundRequest{Barcode: string(long)})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.outbound.Record(ctx, OutboundRequest{Barcode: "A1", ProductID: &missing})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	records, total, err := f.outbound.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, records)
}

func TestOutboundStatsAndPopular(t *testing.T) {
	f := newFixture(t)
	f.product(t, "A1", 1, 1)
	ctx := context.Background()

	now := time.Date(2024, 5, 2, 15, 0, 0, 0, time.Local)
	f.outbound.now = func() time.Time { return now.AddDate(0, 0, -1) }
	_, err := f.outbound.Record(ctx, OutboundRequest{Barcode: "B2", Quantity: 4})
	require.NoError(t, err)

	f.outbound.now = func() time.Time { return now }
	for _, barcode := range []string{"A1", "A1", "B2", "C3"} {
		_, err := f.outbound.Record(ctx, OutboundRequest{Barcode: barcode, Quantity: 1})
		require.NoError(t, err)
	}

	stats, err := f.outbound.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.TotalCount)
	assert.Equal(t, int64(8), stats.TotalQuantity)
	assert.Equal(t, int64(4), stats.TodayCount)
	assert.Equal(t, int64(4), stats.TodayQuantity)
	assert.Equal(t, int64(3), stats.DistinctBarcodes)
	assert.Equal(t, int64(3), stats.TodayDistinctBarcodes)

	popular, err := f.outbound.Popular(ctx, 2)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, "A1", popular[0].Barcode)
	assert.Equal(t, "Product A1", popular[0].ProductName)
	assert.Equal(t, "B2", popular[1].Barcode)
	assert.Equal(t, int64(5), popular[1].TotalQuantity)

	records, total, err := f.outbound.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, records, 2)
}

func TestOutboundPopular_TiesRankMostRecentFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start := time.Date(2024, 5, 2, 9, 0, 0, 0, time.Local)
	for i, barcode := range []string{"A1", "Z9", "A1", "Z9"} {
		at := start.Add(time.Duration(i) * time.Minute)
		f.outbound.now = func() time.Time { return at }
		_, err := f.outbound.Record(ctx, OutboundRequest{Barcode: barcode})
		require.NoError(t, err)
	}

	popular, err := f.outbound.Popular(ctx, 10)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, "Z9", popular[0].Barcode)
	assert.Equal(t, int64(2), popular[0].EventCount)
	assert.Equal(t, "A1", popular[1].Barcode)
	assert.Equal(t, int64(2), popular[1].EventCount)
	assert.True(t, popular[0].LastOutbound.After(popular[1].LastOutbound))
}
