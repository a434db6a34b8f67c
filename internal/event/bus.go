// Package event provides an in-memory implementation of the plugin.EventBus interface.
package event

import (
	"context"
	"sync"

	"github.com/croftlabs/agripulse/pkg/plugin"
	"go.uber.org/zap"
)

// Compile-time interface guard.
var _ plugin.EventBus = (*Bus)(nil)

// Bus is an in-memory event bus implementing plugin.EventBus.
// Publish is synchronous (handlers run in the caller's goroutine);
// PublishAsync dispatches each handler in its own goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]handlerEntry // topic -> handlers
	nextID   uint64
	logger   *zap.Logger
}

type handlerEntry struct {
	id      uint64
	handler plugin.EventHandler
}

// NewBus creates a new in-memory event bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]handlerEntry),
		logger:   logger,
	}
}

// Publish dispatches an event synchronously to all handlers of its topic.
func (b *Bus) Publish(ctx context.Context, event plugin.Event) error {
	for _, h := range b.snapshot(event.Topic) {
		b.safeCall(ctx, h.handler, event)
	}
	return nil
}

// PublishAsync dispatches an event asynchronously to all handlers of its topic.
func (b *Bus) PublishAsync(ctx context.Context, event plugin.Event) {
	for _, h := range b.snapshot(event.Topic) {
		go b.safeCall(ctx, h.handler, event)
	}
}

// Subscribe registers a handler for a topic. Returns an unsubscribe function.
func (b *Bus) Subscribe(topic string, handler plugin.EventHandler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[topic] = append(b.handlers[topic], handlerEntry{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		entries := b.handlers[topic]
		for i, e := range entries {
			if e.id == id {
				b.handlers[topic] = append(entries[:i], entries[i+1:]...)
				return
			}
		}
	}
}

// snapshot copies the handler list so handlers can subscribe/unsubscribe
// from within a callback without deadlocking.
func (b *Bus) snapshot(topic string) []handlerEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]handlerEntry, len(b.handlers[topic]))
	copy(out, b.handlers[topic])
	return out
}

func (b *Bus) safeCall(ctx context.Context, handler plugin.EventHandler, event plugin.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", event.Topic),
				zap.String("source", event.Source),
				zap.Any("panic", r),
			)
		}
	}()
	handler(ctx, event)
}
