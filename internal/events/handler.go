// internal/events/handler.go
package events

import "context"

// Handler reacts to one event. It runs on the bus dispatcher, so a slow
// handler delays every later event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error { return f(ctx, event) }

// Subscription detaches a handler from the bus.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id      uint64
	typ     EventType
	handler Handler
	bus     *Bus
}

func (s *subscription) Unsubscribe() { s.bus.remove(s) }
