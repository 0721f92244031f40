package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"casebridge/internal/auth"
	"casebridge/internal/models"
	"casebridge/internal/observability"
	"casebridge/internal/repositories"
)

// ChannelHandler upgrades authenticated websocket connections and
// dispatches the client events of the realtime contract. The credential
// is validated once, at connection time.
type ChannelHandler struct {
	hub      *Hub
	cases    repositories.CaseRepository
	verifier auth.TokenVerifier
}

// NewChannelHandler constructs a ChannelHandler.
func NewChannelHandler(hub *Hub, cases repositories.CaseRepository, verifier auth.TokenVerifier) *ChannelHandler {
	return &ChannelHandler{hub: hub, cases: cases, verifier: verifier}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates the handshake, upgrades the connection, and
// runs the session until the peer goes away.
func (h *ChannelHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("casebridge/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	identity, err := h.verifier.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := &Client{
		hub:         h.hub,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		ConnID:      uuid.NewString(),
		UserID:      identity.UserID,
		Role:        identity.Role,
		RemoteIP:    observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		ConnectedAt: time.Now(),
		rooms:       make(map[int]struct{}),
	}
	h.hub.Register(client)

	// The request context is canceled as soon as Handle returns, even
	// though the connection is hijacked. The session needs a context
	// that lives as long as the connection does.
	sessionCtx := context.WithoutCancel(ctx)

	observability.IncWSActive("case")
	observability.IncWSEvent("case", "ws_connect")
	h.publishSessionEvent(sessionCtx, client, "ws_connect", "")

	go client.writePump()
	go h.readLoop(sessionCtx, client)
}

// readLoop consumes client events until the connection drops, then
// discards the session and its room memberships.
func (h *ChannelHandler) readLoop(ctx context.Context, client *Client) {
	var closeReason string
	defer func() {
		h.hub.Unregister(client)
		client.conn.Close()
		observability.DecWSActive("case")
		observability.IncWSEvent("case", "ws_disconnect")
		h.publishSessionEvent(ctx, client, "ws_disconnect", closeReason)
	}()

	client.conn.SetReadLimit(maxEventBytes)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := client.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("case", "ws_error")
				h.publishSessionEvent(ctx, client, "ws_error", closeReason)
			}
			return
		}

		var event models.ClientEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			client.sendEvent(models.ServerEvent{Type: models.EventError, Error: "malformed event"}.Encode())
			continue
		}
		h.dispatch(ctx, client, event)
	}
}

// dispatch routes one client event. Join requests are verified against
// the case record before admission; an unauthorized join is refused,
// never silently honored.
func (h *ChannelHandler) dispatch(ctx context.Context, client *Client, event models.ClientEvent) {
	switch event.Type {
	case models.EventJoinCase:
		if event.CaseID == 0 {
			client.sendEvent(models.ServerEvent{Type: models.EventError, Error: "join_case requires case_id"}.Encode())
			return
		}
		member, err := h.cases.IsParticipant(ctx, event.CaseID, client.UserID)
		if err != nil {
			zap.S().Errorw("join verification failed", "case_id", event.CaseID, "user_id", client.UserID, "error", err)
			client.sendEvent(models.ServerEvent{Type: models.EventError, CaseID: event.CaseID, Error: "could not verify case access"}.Encode())
			return
		}
		if !member {
			client.sendEvent(models.ServerEvent{Type: models.EventError, CaseID: event.CaseID, Error: "access denied to case room"}.Encode())
			return
		}
		h.hub.Join(client, event.CaseID)
		observability.IncWSEvent("case", models.EventJoinCase)

	case models.EventLeaveCase:
		h.hub.Leave(client, event.CaseID)
		observability.IncWSEvent("case", models.EventLeaveCase)

	case models.EventTyping:
		// Pure relay: only members of the room may signal, nothing is
		// persisted, and the sender never hears its own indicator.
		if !h.hub.InRoom(client, event.CaseID) {
			return
		}
		h.hub.BroadcastTyping(event.CaseID, client, event.IsTyping)

	default:
		client.sendEvent(models.ServerEvent{Type: models.EventError, Error: "unknown event type"}.Encode())
	}
}

func (h *ChannelHandler) publishSessionEvent(ctx context.Context, client *Client, name, reason string) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        "case",
			"event":       name,
			"conn_id":     client.ConnID,
			"duration_ms": time.Since(client.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id": client.UserID,
			"role":    client.Role,
			"ip":      client.RemoteIP,
		},
	}
	_ = observability.PublishEvent(ctx, "ws_events.cases", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: name,
		Payload:   payload,
	}, observability.BuildHeaders(client.RequestID, ""))
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}
