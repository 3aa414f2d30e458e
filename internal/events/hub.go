package events

import (
	"sync"

	"emergency-service/internal/logging"
	"emergency-service/internal/models"
)

// Event types published on the hub.
const (
	EmergencyCreated   = "emergency_created"
	EmergencyUpdated   = "emergency_updated"
	EmergencyConfirmed = "emergency_confirmed"
	EmergencyCleared   = "emergency_cleared"
)

// Event is one change notification carrying the emergency snapshot after
// the change.
type Event struct {
	Type      string           `json:"type"`
	Emergency models.Emergency `json:"emergency"`
}

// Hub fans out emergency change events to subscribers. A subscription is a
// channel of snapshots over time; cancellation is explicit via the returned
// cancel func, which closes the channel.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	buffer int
	closed bool
	logger *logging.Logger
}

// NewHub creates a Hub whose subscriber channels buffer up to buffer events.
func NewHub(buffer int, logger *logging.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[int]chan Event),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a new subscriber. The cancel func is idempotent.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Publish delivers ev to all subscribers without blocking. A subscriber that
// cannot keep up loses the event; the store remains the source of truth.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.logger.Warnf("Event hub: subscriber %d is full, dropping %s", id, ev.Type)
		}
	}
}

// Close terminates all subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
