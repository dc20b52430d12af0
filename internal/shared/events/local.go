package events

import (
	"context"
	"log"
	"sync"
)

// Local is an in-process EventBus used when EventStoreDB is not
// configured. Delivery is asynchronous and best effort; it only fans
// out within a single instance.
type Local struct {
	mu       sync.RWMutex
	handlers []localSubscription
	closed   bool
}

type localSubscription struct {
	pattern string
	handler Handler
}

// NewLocal creates an in-process event bus
func NewLocal() *Local {
	return &Local{}
}

// Publish delivers the event to every matching subscriber
func (l *Local) Publish(ctx context.Context, event Event) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil
	}

	for _, sub := range l.handlers {
		if !matchesPattern(event.Type, sub.pattern) {
			continue
		}
		go func(h Handler) {
			if err := h(context.WithoutCancel(ctx), event); err != nil {
				log.Printf("event handler error: type=%s err=%v", event.Type, err)
			}
		}(sub.handler)
	}

	return nil
}

// Subscribe registers a handler for events matching the pattern
func (l *Local) Subscribe(ctx context.Context, pattern string, consumerName string, handler Handler) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.handlers = append(l.handlers, localSubscription{pattern: pattern, handler: handler})
	return nil
}

// Close stops delivery
func (l *Local) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.handlers = nil
}

// Health always succeeds for the in-process bus
func (l *Local) Health() error {
	return nil
}

var _ EventBus = (*Local)(nil)
