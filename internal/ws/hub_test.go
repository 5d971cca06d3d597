package ws

import (
	"context"
	"testing"
	"time"

	"go-scan-pos/internal/eventbus"

	"github.com/stretchr/testify/assert"
)

func TestHub_PublishWithoutClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	event := eventbus.Event{Type: eventbus.StockAdjusted, Key: "A1", OccurredAt: time.Now()}
	assert.NoError(t, hub.Publish(context.Background(), event))
	assert.Zero(t, hub.ClientCount())

	hub.Stop()
	for i := 0; i < 100; i++ {
		assert.NoError(t, hub.Publish(context.Background(), event))
	}
}

func TestHub_PublishHonoursContext(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// nothing drains Broadcast, fill the buffer first
	for i := 0; i < cap(hub.Broadcast); i++ {
		hub.Broadcast <- []byte("{}")
	}
	err := hub.Publish(ctx, eventbus.Event{Type: eventbus.OrderFulfilled})
	assert.ErrorIs(t, err, context.Canceled)
}
