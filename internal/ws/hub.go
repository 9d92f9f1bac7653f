package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Topic is one feed stream: a table narrowed to a scope (user id, booking id or "global").
type Topic struct {
	Table string
	Scope string
}

// Envelope is the wire shape of one change pushed to subscribers.
type Envelope struct {
	Table  string      `json:"table"`
	Scope  string      `json:"scope"`
	Kind   string      `json:"kind"`
	Record interface{} `json:"record"`
}

// Client represents a single feed WebSocket connection subscribed to one topic.
type Client struct {
	UserID string
	Topic  Topic
	Send   chan []byte
	Hub    *Hub // set by Register so Close() can unregister
	mu     sync.Mutex
	closed bool
}

func NewClient(userID string, topic Topic) *Client {
	return &Client{UserID: userID, Topic: topic, Send: make(chan []byte, 256)}
}

func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.Send)
	hub := c.Hub
	c.mu.Unlock()
	if hub != nil {
		hub.unregister(c)
	}
}

// enqueue reports false when the client is closed or its buffer is full.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// Hub maintains the set of active feed clients and fans changes out per topic.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	byTopic map[Topic]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		byTopic: make(map[Topic]map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	c.mu.Lock()
	c.Hub = h
	c.mu.Unlock()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if h.byTopic[c.Topic] == nil {
		h.byTopic[c.Topic] = make(map[*Client]struct{})
	}
	h.byTopic[c.Topic][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	if m := h.byTopic[c.Topic]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byTopic, c.Topic)
		}
	}
}

// Publish sends one change to every subscriber of (table, scope). A subscriber whose
// buffer is full is disconnected rather than skipped, so it reconnects and resyncs
// instead of silently missing the change.
func (h *Hub) Publish(table, scope, kind string, record interface{}) {
	data, err := json.Marshal(Envelope{Table: table, Scope: scope, Kind: kind, Record: record})
	if err != nil {
		log.Printf("[hub] encode %s/%s: %v", table, scope, err)
		return
	}
	topic := Topic{Table: table, Scope: scope}
	h.mu.RLock()
	m := h.byTopic[topic]
	clients := make([]*Client, 0, len(m))
	for c := range m {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		if !c.enqueue(data) {
			log.Printf("[hub] dropping slow subscriber %s on %s/%s", c.UserID, table, scope)
			c.Close()
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) TopicCount(table, scope string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byTopic[Topic{Table: table, Scope: scope}])
}
