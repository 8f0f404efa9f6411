package websocket

import (
	"log/slog"
	"sync"

	"github.com/lorrc/case-event-hub/internal/core/domain"
	"github.com/lorrc/case-event-hub/internal/core/ports"
)

// Hub is the subscription registry for live connections. Writers take the
// lock exclusively; Subscribers copies under a read lock so delivery never
// holds it.
type Hub struct {
	// subscriptions maps a key to the subscribers watching it, by subscriber ID.
	subscriptions map[domain.SubscriptionKey]map[string]ports.Subscriber

	// bySubscriber is the reverse index used to prune a connection.
	bySubscriber map[string]map[domain.SubscriptionKey]struct{}

	mu     sync.RWMutex
	logger *slog.Logger
}

var _ ports.SubscriptionRegistry = (*Hub)(nil)

// NewHub creates an empty registry.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subscriptions: make(map[domain.SubscriptionKey]map[string]ports.Subscriber),
		bySubscriber:  make(map[string]map[domain.SubscriptionKey]struct{}),
		logger:        logger.With("component", "websocket_hub"),
	}
}

// Subscribe registers interest of sub in key. Subscribing twice is a no-op.
func (h *Hub) Subscribe(sub ports.Subscriber, key domain.SubscriptionKey) ports.SubscriptionHandle {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.subscriptions[key]
	if room == nil {
		room = make(map[string]ports.Subscriber)
		h.subscriptions[key] = room
	}
	room[sub.ID()] = sub

	keys := h.bySubscriber[sub.ID()]
	if keys == nil {
		keys = make(map[domain.SubscriptionKey]struct{})
		h.bySubscriber[sub.ID()] = keys
	}
	keys[key] = struct{}{}

	h.logger.Debug("subscribed", "subscriber", sub.ID(), "key", key.String())
	return ports.SubscriptionHandle{Subscriber: sub, Key: key}
}

// Unsubscribe removes one registered interest.
func (h *Hub) Unsubscribe(handle ports.SubscriptionHandle) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := handle.Subscriber.ID()
	h.remove(id, handle.Key)
	if keys, ok := h.bySubscriber[id]; ok {
		delete(keys, handle.Key)
		if len(keys) == 0 {
			delete(h.bySubscriber, id)
		}
	}
}

// UnsubscribeAll removes every interest of sub. It is called when the
// connection closes and when a delivery to it fails.
func (h *Hub) UnsubscribeAll(sub ports.Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := sub.ID()
	keys, ok := h.bySubscriber[id]
	if !ok {
		return
	}
	for key := range keys {
		h.remove(id, key)
	}
	delete(h.bySubscriber, id)

	h.logger.Debug("subscriber removed", "subscriber", id, "subscriptions", len(keys))
}

// Subscribers returns a snapshot of the subscribers watching key.
func (h *Hub) Subscribers(key domain.SubscriptionKey) []ports.Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room := h.subscriptions[key]
	if len(room) == 0 {
		return nil
	}
	subs := make([]ports.Subscriber, 0, len(room))
	for _, sub := range room {
		subs = append(subs, sub)
	}
	return subs
}

// SubscriberCount returns the number of connections with at least one
// subscription.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.bySubscriber)
}

// KeyCount returns the number of distinct watched keys.
func (h *Hub) KeyCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions)
}

// remove must be called with mu held.
func (h *Hub) remove(id string, key domain.SubscriptionKey) {
	room, ok := h.subscriptions[key]
	if !ok {
		return
	}
	delete(room, id)
	if len(room) == 0 {
		delete(h.subscriptions, key)
	}
}
