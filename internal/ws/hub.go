package ws

import (
	"sync"

	"github.com/heliumweb/helium/backend/internal/shared/types"
)

const subscriberBuffer = 32

// Hub fans lifecycle events out to subscribers
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan types.Event]struct{}
	closed      bool
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan types.Event]struct{}),
	}
}

// Publish delivers an event to every subscriber. Subscribers whose
// buffers are full miss the event instead of blocking the publisher.
func (h *Hub) Publish(event types.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a new event channel
func (h *Hub) Subscribe() chan types.Event {
	ch := make(chan types.Event, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return ch
	}
	h.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a channel and closes it
func (h *Hub) Unsubscribe(ch chan types.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
}

// Subscribers reports the current subscriber count
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close drops every subscriber
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subscribers {
		delete(h.subscribers, ch)
		close(ch)
	}
}
