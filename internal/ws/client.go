package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Outbound frames must land within writeWait.
	writeWait = 10 * time.Second
	// A connection silent for longer than pongWait is treated as gone.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// Inbound control events are tiny; anything bigger is abuse.
	maxEventBytes = 4 << 10
	// Per-connection outbound buffer.
	sendBuffer = 64
)

// Client is the connection session for one authenticated websocket.
// Room membership lives in rooms, mutated only under the hub's lock,
// and is discarded when the connection goes away.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	ConnID      string
	UserID      int
	Role        string
	RemoteIP    string
	RequestID   string
	ConnectedAt time.Time

	rooms map[int]struct{}

	mu     sync.Mutex
	closed bool
}

// enqueue queues a payload for delivery. It reports false when the
// client's buffer is full; a closed client swallows the payload.
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// markClosed flags the client so no further payloads are queued.
// Called by the hub with its own lock held, before closing send.
func (c *Client) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// sendEvent queues an event for this connection only.
func (c *Client) sendEvent(payload []byte) {
	if !c.enqueue(payload) {
		c.conn.Close()
	}
}

// writePump drains the send channel onto the wire and keeps the
// connection alive with periodic pings. One writer per connection; all
// writes to the socket go through here.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				zap.S().Debugw("websocket write error",
					"conn_id", c.ConnID, "user_id", c.UserID, "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
