package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitConfirm_SkipsLateConfirmsOfEarlierPublishes(t *testing.T) {
	confirms := make(chan amqp.Confirmation, 4)
	ctx := context.Background()

	// delivery 1 timed out, its ack shows up while waiting for delivery 2
	require.Error(t, awaitConfirm(ctx, confirms, 1, 10*time.Millisecond))
	confirms <- amqp.Confirmation{DeliveryTag: 1, Ack: true}
	confirms <- amqp.Confirmation{DeliveryTag: 2, Ack: false}

	err := awaitConfirm(ctx, confirms, 2, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nacked delivery 2")
	assert.Empty(t, confirms)
}

func TestAwaitConfirm_AckForOwnTag(t *testing.T) {
	confirms := make(chan amqp.Confirmation, 1)
	confirms <- amqp.Confirmation{DeliveryTag: 3, Ack: true}

	assert.NoError(t, awaitConfirm(context.Background(), confirms, 3, time.Second))
}

func TestAwaitConfirm_ClosedChannelAndCancelledContext(t *testing.T) {
	closed := make(chan amqp.Confirmation)
	close(closed)
	assert.Error(t, awaitConfirm(context.Background(), closed, 1, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := awaitConfirm(ctx, make(chan amqp.Confirmation), 1, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
