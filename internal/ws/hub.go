package ws

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"casebridge/internal/models"
	"casebridge/internal/observability"
)

// Hub maintains the active case rooms. Each connected user holds one
// Client; a client may be a member of any number of rooms at once.
// All membership state is process-local and dies with the connection.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[int]map[*Client]struct{}
	clients map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[int]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
	}
}

// Register adds an authenticated connection with zero joined rooms.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// Unregister drops the connection and every room membership it holds.
// Membership does not survive a reconnect; the client rejoins explicitly.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for caseID := range c.rooms {
		h.removeFromRoom(caseID, c)
	}
	c.markClosed()
	close(c.send)
}

// Join adds the client to a case room. Joining twice is a no-op.
func (h *Hub) Join(c *Client, caseID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	if _, ok := h.rooms[caseID]; !ok {
		h.rooms[caseID] = make(map[*Client]struct{})
	}
	h.rooms[caseID][c] = struct{}{}
	c.rooms[caseID] = struct{}{}
}

// Leave removes the client from a case room.
func (h *Hub) Leave(c *Client, caseID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoom(caseID, c)
	delete(c.rooms, caseID)
}

// InRoom reports whether the client currently holds membership in the
// case's room.
func (h *Hub) InRoom(c *Client, caseID int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := c.rooms[caseID]
	return ok
}

// RoomSize returns the number of connections in a case room.
func (h *Hub) RoomSize(caseID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[caseID])
}

// BroadcastNewMessage pushes a persisted message to every connection in
// the case's room, the sender's other devices included.
func (h *Hub) BroadcastNewMessage(msg models.Message) {
	event := models.ServerEvent{Type: models.EventNewMessage, Message: &msg}
	h.broadcast(msg.CaseID, event, nil)
	observability.IncWSEvent("case", models.EventNewMessage)
}

// BroadcastReadReceipt notifies the room that a message transitioned to
// read.
func (h *Hub) BroadcastReadReceipt(caseID, messageID int, readAt time.Time) {
	event := models.ServerEvent{
		Type:      models.EventMessageRead,
		CaseID:    caseID,
		MessageID: messageID,
		ReadAt:    &readAt,
	}
	h.broadcast(caseID, event, nil)
	observability.IncWSEvent("case", models.EventMessageRead)
}

// BroadcastTyping relays a typing indicator to the other members of the
// room. The originating connection never receives its own signal; no
// state is kept, the hub is purely a relay.
func (h *Hub) BroadcastTyping(caseID int, from *Client, isTyping bool) {
	event := models.ServerEvent{
		Type:     models.EventUserTyping,
		CaseID:   caseID,
		UserID:   from.UserID,
		IsTyping: isTyping,
	}
	h.broadcast(caseID, event, from)
	observability.IncWSEvent("case", models.EventUserTyping)
}

// broadcast queues the event for every room member except exclude. A
// member whose send buffer is full is dropped so one slow consumer
// cannot stall delivery to the rest of the room.
func (h *Hub) broadcast(caseID int, event models.ServerEvent, exclude *Client) {
	payload := event.Encode()

	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[caseID]))
	for c := range h.rooms[caseID] {
		if c != exclude {
			members = append(members, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range members {
		if !c.enqueue(payload) {
			zap.S().Warnw("dropping unresponsive websocket client",
				"conn_id", c.ConnID, "user_id", c.UserID, "case_id", caseID)
			c.conn.Close()
			h.Unregister(c)
		}
	}
}

// removeFromRoom is called with h.mu held.
func (h *Hub) removeFromRoom(caseID int, c *Client) {
	if members, ok := h.rooms[caseID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, caseID)
		}
	}
}
