// Package notify provides a subscription hub for broadcasting state
// changes to the presentation layer. It replaces reactive property
// bindings with an explicit observer registration: the core publishes
// plain events, subscribers decide what to redraw.
package notify

import (
	"sync"

	"github.com/google/uuid"
)

// Hub manages subscriptions and broadcasts events of type T.
type Hub[T any] struct {
	mu          sync.RWMutex
	subscribers map[string]func(T)
	sequenceNo  uint64
}

// NewHub creates a new hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{
		subscribers: make(map[string]func(T)),
	}
}

// Subscribe registers a callback and returns its subscription ID.
// The callback is invoked synchronously on the publishing goroutine and
// must not block.
func (h *Hub[T]) Subscribe(fn func(T)) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.New().String()
	h.subscribers[id] = fn
	return id
}

// Unsubscribe removes a subscription. Unknown IDs are ignored.
func (h *Hub[T]) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, id)
}

// Publish delivers an event to all current subscribers.
func (h *Hub[T]) Publish(event T) {
	h.mu.RLock()
	// Copy callbacks to avoid holding the lock during delivery.
	fns := make([]func(T), 0, len(h.subscribers))
	for _, fn := range h.subscribers {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(event)
	}
}

// NextSequenceNo returns the next sequence number and increments the
// counter. Subscribers can use it to detect missed or stale events.
func (h *Hub[T]) NextSequenceNo() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sequenceNo++
	return h.sequenceNo
}

// Len returns the current subscriber count.
func (h *Hub[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
