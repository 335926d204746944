package dispatch

import (
	"sync"

	"loanflow-backend/internal/domain"
	"loanflow-backend/internal/logger"
)

const subscriberBuffer = 64

// Hub is the topic fan-out behind the dispatcher's publish endpoint.
// Delivery is at-most-once: a message published with no subscriber on
// its topic, or to a subscriber whose buffer is full, is dropped.
type Hub struct {
	mu   sync.Mutex
	subs map[domain.Op]map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[domain.Op]map[chan []byte]struct{})}
}

// Subscribe registers a subscriber on one topic and returns its
// message channel plus a cancel func that must be called on teardown.
func (h *Hub) Subscribe(topic domain.Op) (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[chan []byte]struct{})
	}
	h.subs[topic][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[topic][ch]; ok {
			delete(h.subs[topic], ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Subscribers reports how many subscribers a topic currently has.
func (h *Hub) Subscribers(topic domain.Op) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[topic])
}

// Publish fans payload out to every subscriber of topic and reports
// how many received it.
func (h *Hub) Publish(topic domain.Op, payload []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for ch := range h.subs[topic] {
		select {
		case ch <- payload:
			delivered++
		default:
			logger.Warn("subscriber buffer full, message dropped", "topic", string(topic))
		}
	}
	return delivered
}
