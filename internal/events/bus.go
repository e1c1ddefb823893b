// internal/events/bus.go
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	// ErrBusClosed is returned by Publish after Shutdown.
	ErrBusClosed = errors.New("event bus is shutting down")
	// ErrBusFull is returned by Publish when the queue has no room.
	ErrBusFull = errors.New("event queue full")
)

// Publisher is the side of the bus services depend on.
type Publisher interface {
	Publish(event Event) error
}

// Stats counts what the bus did with published events.
type Stats struct {
	Delivered uint64
	Failed    uint64
	Dropped   uint64
}

// Bus is an in-process queue of launchpad events. A single dispatcher
// delivers events in publish order; handlers of one type run in
// subscription order.
type Bus struct {
	logger *zap.Logger

	mu     sync.RWMutex
	subs   map[EventType][]*subscription
	nextID uint64
	closed bool

	queue chan Event
	done  chan struct{}
	once  sync.Once

	delivered, failed, dropped atomic.Uint64
}

// NewBus starts a bus that holds up to queueSize undelivered events.
func NewBus(logger *zap.Logger, queueSize int) *Bus {
	if queueSize < 1 {
		queueSize = 1
	}
	b := &Bus{
		logger: logger.Named("event_bus"),
		subs:   make(map[EventType][]*subscription),
		queue:  make(chan Event, queueSize),
		done:   make(chan struct{}),
	}
	go b.dispatch()
	return b
}

// Subscribe registers h for events of type t.
func (b *Bus) Subscribe(t EventType, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	s := &subscription{id: b.nextID, typ: t, handler: h, bus: b}
	b.subs[t] = append(b.subs[t], s)

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(t)),
		zap.Uint64("subscription_id", s.id))
	return s
}

// SubscribeFunc subscribes a plain function.
func (b *Bus) SubscribeFunc(t EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(t, HandlerFunc(fn))
}

// Publish queues event without blocking.
func (b *Bus) Publish(event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	select {
	case b.queue <- event:
		return nil
	default:
		b.dropped.Add(1)
		b.logger.Warn("Event queue full, dropping event",
			zap.String("event_type", string(event.Type())))
		return ErrBusFull
	}
}

// PublishSync runs every handler of event on the caller's goroutine and
// joins their errors.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	subs := append([]*subscription(nil), b.subs[event.Type()]...)
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := b.deliver(ctx, s, event); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d handlers failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

func (b *Bus) deliver(ctx context.Context, s *subscription, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %d panicked: %v", s.id, r)
		}
		if err != nil {
			b.failed.Add(1)
			b.logger.Error("Handler error",
				zap.String("event_type", string(event.Type())),
				zap.Uint64("subscription_id", s.id),
				zap.Error(err))
			return
		}
		b.delivered.Add(1)
	}()
	return s.handler.Handle(ctx, event)
}

func (b *Bus) dispatch() {
	defer close(b.done)
	for event := range b.queue {
		_ = b.PublishSync(context.Background(), event)
	}
}

func (b *Bus) remove(s *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[s.typ]
	for i, cur := range subs {
		if cur == s {
			b.subs[s.typ] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[s.typ]) == 0 {
		delete(b.subs, s.typ)
	}
}

// Shutdown rejects new events and waits until the queue is drained.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.once.Do(func() {
		b.logger.Info("Shutting down event bus", zap.Int("pending", len(b.queue)))
		b.mu.Lock()
		b.closed = true
		close(b.queue)
		b.mu.Unlock()
	})

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus shutdown timeout", zap.Int("pending", len(b.queue)))
		return ctx.Err()
	}
}

// Pending reports how many events wait for the dispatcher.
func (b *Bus) Pending() int {
	return len(b.queue)
}

// Stats returns delivery counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Delivered: b.delivered.Load(),
		Failed:    b.failed.Load(),
		Dropped:   b.dropped.Load(),
	}
}

// Discard is a Publisher that drops every event.
type Discard struct{}

func (Discard) Publish(Event) error { return nil }
