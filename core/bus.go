package core

import (
	"log/slog"
	"sync"
)

// TopicHostReady is published by the embedding host once its startup batch
// has loaded. Modules that defer outward-facing work, like binding a
// listener, do it on this topic.
const TopicHostReady = "host.ready"

// Handler consumes one published message.
type Handler func(payload any)

// MessageBus is the narrow boundary modules talk to each other through.
// Modules wire handlers in SetupMessageHandlers after they load. Delivery is
// synchronous in the publisher's goroutine; a panicking handler is recovered
// and logged so one module cannot take down another's publish.
type MessageBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
}

func NewMessageBus(logger *slog.Logger) *MessageBus {
	return &MessageBus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for a topic. There is no unsubscribe;
// handlers live as long as the bus.
func (b *MessageBus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// Publish delivers the payload to every handler subscribed to the topic.
func (b *MessageBus) Publish(topic string, payload any) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[topic]...)
	b.mu.RUnlock()
	for _, h := range handlers {
		b.dispatch(topic, h, payload)
	}
}

func (b *MessageBus) dispatch(topic string, h Handler, payload any) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("message handler panicked", "topic", topic, "panic", rec)
		}
	}()
	h(payload)
}
