package ws

import (
	"context"
	"encoding/json"
	"sync"
)

// Hub fans push messages out to websocket clients by topic. It implements
// both the publisher side (local events) and the sink side (events bridged
// from Redis pub/sub published by other instances).
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[*Client]struct{})}
}

// Subscribe adds the client to a topic.
func (h *Hub) Subscribe(c *Client, topic string) {
	if topic == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.topics[topic]
	if !ok {
		set = make(map[*Client]struct{})
		h.topics[topic] = set
	}
	set[c] = struct{}{}
}

// Unsubscribe removes the client from a topic.
func (h *Hub) Unsubscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(c, topic)
}

// Remove detaches the client from every topic. Called when the connection
// closes.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic := range h.topics {
		h.drop(c, topic)
	}
}

func (h *Hub) drop(c *Client, topic string) {
	set, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.topics, topic)
	}
}

// Publish serializes a local event and broadcasts it to the topic's
// subscribers on this instance. Satisfies the services' publisher
// dependency.
func (h *Hub) Publish(_ context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	h.broadcast(topic, data)
	return nil
}

// Deliver broadcasts a message bridged from Redis pub/sub. Satisfies the
// subscriber bridge's sink dependency.
func (h *Hub) Deliver(topic string, payload []byte) {
	h.broadcast(topic, payload)
}

func (h *Hub) broadcast(topic string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.topics[topic] {
		// Non-blocking: a client that cannot drain its send buffer is
		// dropped rather than allowed to stall the broadcast.
		select {
		case <-c.done:
		case c.send <- data:
		default:
			c.closeSlow()
		}
	}
}
