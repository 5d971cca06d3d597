package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"
)

// RabbitMQPublisher publishes events to a topic exchange, routed by event
// type, and waits for the broker confirm of each message.
type RabbitMQPublisher struct {
	exchange      string
	confirmWait   time.Duration
	mu            sync.Mutex
	connection    *amqp.Connection
	channel       *amqp.Channel
	notifyConfirm chan amqp.Confirmation
	// deliveryTag is the tag the broker assigned to the last publish on channel.
	deliveryTag uint64
}

// confirmBuffer bounds how many confirms can be outstanding before the
// channel dispatcher blocks.
const confirmBuffer = 256

func NewRabbitMQPublisher(url, exchange string) (*RabbitMQPublisher, error) {
	log.Info().Str("exchange", exchange).Msg("Connecting to RabbitMQ")
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open producer channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("producer channel could not be put into confirm mode: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &RabbitMQPublisher{
		exchange:      exchange,
		confirmWait:   5 * time.Second,
		connection:    conn,
		channel:       ch,
		notifyConfirm: ch.NotifyPublish(make(chan amqp.Confirmation, confirmBuffer)),
	}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.Publish(
		p.exchange, // exchange
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.Key,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	p.deliveryTag++

	if err := awaitConfirm(ctx, p.notifyConfirm, p.deliveryTag, p.confirmWait); err != nil {
		return fmt.Errorf("%s: %w", event.Type, err)
	}
	return nil
}

// awaitConfirm reads confirms until the one for tag arrives. Confirms for
// earlier tags belong to publishes that already gave up waiting and are
// discarded.
func awaitConfirm(ctx context.Context, confirms <-chan amqp.Confirmation, tag uint64, wait time.Duration) error {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case confirm, ok := <-confirms:
			if !ok {
				return errors.New("rabbitmq channel closed before confirm")
			}
			if confirm.DeliveryTag < tag {
				log.Debug().Uint64("delivery_tag", confirm.DeliveryTag).Msg("Discarding late publish confirm")
				continue
			}
			if !confirm.Ack {
				return fmt.Errorf("rabbitmq nacked delivery %d", tag)
			}
			return nil
		case <-timer.C:
			return errors.New("publish confirmation timeout")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs error
	if p.channel != nil {
		errs = errors.Join(errs, p.channel.Close())
	}
	if p.connection != nil && !p.connection.IsClosed() {
		errs = errors.Join(errs, p.connection.Close())
	}
	return errs
}
