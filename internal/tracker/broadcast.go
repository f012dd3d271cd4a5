package tracker

import (
	"sync"

	"github.com/google/uuid"

	"github.com/fieldline-systems/geotrack/internal/gps"
)

// subscriberBuffer is the per-subscriber channel depth. A subscriber that
// falls further behind than this loses samples rather than slowing the run.
const subscriberBuffer = 16

// Hub fans samples out to any number of subscribers. Publishing never
// blocks: a full subscriber channel drops the sample for that subscriber
// only. There is no delivery guarantee; ordering holds per subscriber as
// long as it keeps up.
type Hub struct {
	mu   sync.Mutex
	subs map[uuid.UUID]chan gps.Sample
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]chan gps.Sample)}
}

// Subscribe registers a new subscriber and returns its handle and channel.
// The channel stays open until Unsubscribe; samples published while the
// tracker is stopped simply never arrive.
func (h *Hub) Subscribe() (uuid.UUID, <-chan gps.Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.New()
	ch := make(chan gps.Sample, subscriberBuffer)
	h.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel. Unknown handles
// are ignored.
func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Publish delivers s to every subscriber that has room.
func (h *Hub) Publish(s gps.Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- s:
		default: // subscriber is behind, drop for it
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
