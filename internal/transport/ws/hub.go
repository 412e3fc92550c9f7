package ws

import (
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dkarpov/netarcade/internal/engine"
)

// Envelope is the wire frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub tracks live connections and named broadcast groups. It implements
// engine.Broadcaster; sends never block, a slow client just loses frames.
type Hub struct {
	logger *log.Logger

	mu      sync.RWMutex
	clients map[string]*Client
	groups  map[string]map[string]bool
}

func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[string]*Client),
		groups:  make(map[string]map[string]bool),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

func (h *Hub) unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, connID)
	for group, members := range h.groups {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

// SendTo pushes one event to one connection.
func (h *Hub) SendTo(connID, event string, payload any) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		h.logger.Error("cannot encode event", "event", event, "err", err)
		return
	}

	h.mu.RLock()
	c := h.clients[connID]
	h.mu.RUnlock()
	if c != nil {
		c.enqueue(frame)
	}
}

// SendToGroup pushes one event to every member of a group.
func (h *Hub) SendToGroup(group, event string, payload any) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		h.logger.Error("cannot encode event", "event", event, "err", err)
		return
	}

	h.mu.RLock()
	var members []*Client
	for connID := range h.groups[group] {
		if c := h.clients[connID]; c != nil {
			members = append(members, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range members {
		c.enqueue(frame)
	}
}

func (h *Hub) JoinGroup(group, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.groups[group] == nil {
		h.groups[group] = make(map[string]bool)
	}
	h.groups[group][connID] = true
}

func (h *Hub) LeaveGroup(group, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.groups[group]
	delete(members, connID)
	if len(members) == 0 {
		delete(h.groups, group)
	}
}

var _ engine.Broadcaster = (*Hub)(nil)

func encodeFrame(event string, payload any) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
