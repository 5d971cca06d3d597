// Package eventbus fans committed domain events out to websocket clients and
// message brokers. Publishing happens after the transaction commits and never
// affects the outcome of the operation that produced the event.
package eventbus

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	StockAdjusted      = "stock.adjusted"
	OrderFulfilled     = "order.fulfilled"
	OrderStatusChanged = "order.status_changed"
	OrderDeleted       = "order.deleted"
	OutboundRecorded   = "outbound.recorded"
	ProductCreated     = "product.created"
	ProductUpdated     = "product.updated"
)

// Event is the envelope shared by every transport.
type Event struct {
	Type       string      `json:"type"`
	Key        string      `json:"key,omitempty"`
	OperatorID string      `json:"operator_id,omitempty"`
	Message    string      `json:"message,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs error
	for _, p := range m {
		errs = errors.Join(errs, p.Publish(ctx, event))
	}
	return errs
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events with the given type, oldest first.
func (r *Recorder) OfType(eventType string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Async hands events to a background goroutine so request handlers never wait
// on a broker. Events are dropped with a warning when the buffer is full.
type Async struct {
	next    Publisher
	timeout time.Duration
	queue   chan Event
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// ErrClosed is returned by Async.Publish after Close.
var ErrClosed = errors.New("eventbus: publisher closed")

func NewAsync(next Publisher, buffer int, timeout time.Duration) *Async {
	if buffer <= 0 {
		buffer = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	a := &Async{
		next:    next,
		timeout: timeout,
		queue:   make(chan Event, buffer),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) Publish(_ context.Context, event Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- event:
		return nil
	default:
		log.Warn().Str("event", event.Type).Str("key", event.Key).Msg("Event buffer full, dropping event")
		return errors.New("eventbus: buffer full")
	}
}

func (a *Async) run() {
	defer close(a.done)
	for event := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Publish(ctx, event); err != nil {
			log.Error().Err(err).Str("event", event.Type).Str("key", event.Key).Msg("Failed to publish event")
		}
		cancel()
	}
}

// Close stops accepting events and waits until the queue is drained or ctx
// is done.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
