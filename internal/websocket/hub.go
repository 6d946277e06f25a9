package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

const (
	TypeEntityUpdated = "entity_updated"
	TypeCardUpdated   = "card_updated"
	TypeCardDeleted   = "card_deleted"
)

// Message tells browsers which cards need to be re-fetched.
type Message struct {
	Type     string  `json:"type"`
	EntityID string  `json:"entity_id,omitempty"`
	CardIDs  []int64 `json:"card_ids"`
}

// EntityUpdated announces a host entity change affecting cardIDs.
func EntityUpdated(entityID string, cardIDs []int64) Message {
	return Message{Type: TypeEntityUpdated, EntityID: entityID, CardIDs: cardIDs}
}

// CardUpdated announces a changed card definition.
func CardUpdated(cardID int64) Message {
	return Message{Type: TypeCardUpdated, CardIDs: []int64{cardID}}
}

// CardDeleted announces a removed card definition.
func CardDeleted(cardID int64) Message {
	return Message{Type: TypeCardDeleted, CardIDs: []int64{cardID}}
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("browser connected", "viewer", c.viewerID)
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to all connected clients. Messages without any
// card ids are dropped.
func (h *Hub) Broadcast(msg Message) {
	if len(msg.CardIDs) == 0 {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("browser send buffer full, dropping message", "viewer", c.viewerID, "type", msg.Type)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
