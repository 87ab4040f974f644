// Package stream pushes payment widget outcomes to subscribed clients over
// websocket. The event vocabulary is a closed set; anything else is rejected
// at the door.
package stream

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type EventKind string

const (
	KindSuccess EventKind = "SUCCESS"
	KindFail    EventKind = "FAIL"
	KindCancel  EventKind = "CANCEL"
	KindLog     EventKind = "LOG"
)

func validKind(k EventKind) bool {
	switch k {
	case KindSuccess, KindFail, KindCancel, KindLog:
		return true
	}
	return false
}

// ServerEvent is one typed outcome pushed to a subscriber.
type ServerEvent struct {
	Kind      EventKind `json:"kind"`
	OrderID   string    `json:"order_id"`
	Code      string    `json:"code,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// sendBuffer is small on purpose: a subscriber that cannot drain a handful
// of terminal outcomes is a subscriber we drop events for.
const sendBuffer = 8

type client struct {
	userID string
	send   chan ServerEvent
}

type Hub struct {
	mu      sync.RWMutex
	byOrder map[string]map[*client]struct{}
	clients map[*client]map[string]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		byOrder: make(map[string]map[*client]struct{}),
		clients: make(map[*client]map[string]struct{}),
		logger:  logger,
	}
}

func (h *Hub) register(userID string) *client {
	c := &client{userID: userID, send: make(chan ServerEvent, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = make(map[string]struct{})
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for orderID := range h.clients[c] {
		delete(h.byOrder[orderID], c)
		if len(h.byOrder[orderID]) == 0 {
			delete(h.byOrder, orderID)
		}
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) subscribe(c *client, orderID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	if h.byOrder[orderID] == nil {
		h.byOrder[orderID] = make(map[*client]struct{})
	}
	h.byOrder[orderID][c] = struct{}{}
	h.clients[c][orderID] = struct{}{}
}

// NotifyOutcome broadcasts one event to every subscriber of orderID. Slow
// consumers have the event dropped rather than blocking the caller.
func (h *Hub) NotifyOutcome(orderID, kind, code, message string) {
	k := EventKind(kind)
	if !validKind(k) {
		h.logger.Warn("unknown stream event kind dropped", zap.String("kind", kind))
		return
	}
	event := ServerEvent{
		Kind:      k,
		OrderID:   orderID,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byOrder[orderID] {
		select {
		case c.send <- event:
		default:
			h.logger.Warn("stream event dropped for slow consumer",
				zap.String("order_id", orderID),
				zap.String("user_id", c.userID))
		}
	}
}

// SubscriberCount reports how many clients watch an order id.
func (h *Hub) SubscriberCount(orderID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byOrder[orderID])
}
