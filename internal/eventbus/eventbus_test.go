package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPublisher struct{ err error }

func (f failingPublisher) Publish(context.Context, Event) error { return f.err }

func TestMulti_PublishesToAllAndJoinsErrors(t *testing.T) {
	first := &Recorder{}
	second := &Recorder{}
	boom := errors.New("broker down")

	err := Multi{first, failingPublisher{boom}, second}.Publish(context.Background(), Event{Type: StockAdjusted})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, first.Events(), 1)
	assert.Len(t, second.Events(), 1)
}

func TestAsync_DeliversAndDrainsOnClose(t *testing.T) {
	rec := &Recorder{}
	a := NewAsync(rec, 16, time.Second)

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Publish(context.Background(), Event{Type: OrderFulfilled}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.Close(ctx))

	assert.Len(t, rec.OfType(OrderFulfilled), 5)
	assert.ErrorIs(t, a.Publish(context.Background(), Event{Type: OrderFulfilled}), ErrClosed)
}

func TestAsync_PublishRacingCloseNeverPanics(t *testing.T) {
	rec := &Recorder{}
	a := NewAsync(rec, 1024, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				err := a.Publish(context.Background(), Event{Type: StockAdjusted})
				if err != nil {
					assert.ErrorIs(t, err, ErrClosed)
				}
			}
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Close(ctx))
	wg.Wait()
	require.NoError(t, a.Close(ctx))
}

func TestRecorder_OfType(t *testing.T) {
	rec := &Recorder{}
	ctx := context.Background()
	require.NoError(t, rec.Publish(ctx, Event{Type: StockAdjusted, Key: "a"}))
	require.NoError(t, rec.Publish(ctx, Event{Type: OutboundRecorded, Key: "b"}))
	require.NoError(t, rec.Publish(ctx, Event{Type: StockAdjusted, Key: "c"}))

	adjusted := rec.OfType(StockAdjusted)
	require.Len(t, adjusted, 2)
	assert.Equal(t, "a", adjusted[0].Key)
	assert.Equal(t, "c", adjusted[1].Key)
}
