package realtime

import (
	"sync"

	"github.com/yakoovad/scanhub/internal/model"
	"go.uber.org/zap"
)

// Hub fans scan-insert events out to in-process subscribers. Delivery is
// at-least-once and unordered relative to any bulk load a subscriber did
// before attaching; slow subscribers have events dropped rather than
// blocking the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}

	logger *zap.Logger
}

// Subscription is a live attachment to the insert stream. Close must be
// called when the consumer is torn down, or the channel leaks.
type Subscription struct {
	C <-chan *model.Scan

	send    chan *model.Scan
	ownerID *string
	hub     *Hub
	once    sync.Once
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe attaches to the stream. A non-nil ownerID filters events to
// that owner's inserts.
func (h *Hub) Subscribe(ownerID *string) *Subscription {
	sub := &Subscription{
		send:    make(chan *model.Scan, 16),
		ownerID: ownerID,
		hub:     h,
	}
	sub.C = sub.send

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Publish delivers one inserted scan to every matching subscriber.
func (h *Hub) Publish(scan *model.Scan) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		if sub.ownerID != nil {
			if scan.OwnerID == nil || *scan.OwnerID != *sub.ownerID {
				continue
			}
		}
		select {
		case sub.send <- scan:
		default:
			h.logger.Warn("dropping scan event for slow subscriber",
				zap.Int64("scan_id", scan.ID))
		}
	}
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.send)
	}
}

// Close releases the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
	})
}
