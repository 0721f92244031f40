package models

import (
	"encoding/json"
	"time"
)

// Client-to-server websocket event types.
const (
	EventJoinCase  = "join_case"
	EventLeaveCase = "leave_case"
	EventTyping    = "typing"
)

// Server-to-client websocket event types.
const (
	EventNewMessage  = "new_message"
	EventMessageRead = "message_read"
	EventUserTyping  = "user_typing"
	EventError       = "error"
)

// ClientEvent is the envelope for events received over a websocket
// connection. Fields beyond Type are populated per event type.
type ClientEvent struct {
	Type     string `json:"type"`
	CaseID   int    `json:"case_id,omitempty"`
	IsTyping bool   `json:"is_typing,omitempty"`
}

// ServerEvent is the envelope pushed to room members.
type ServerEvent struct {
	Type      string     `json:"type"`
	Message   *Message   `json:"message,omitempty"`
	MessageID int        `json:"message_id,omitempty"`
	CaseID    int        `json:"case_id,omitempty"`
	UserID    int        `json:"user_id,omitempty"`
	IsTyping  bool       `json:"is_typing,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Encode marshals the event for the wire. Marshalling a ServerEvent
// cannot fail for the field types above, so the error is dropped.
func (e ServerEvent) Encode() []byte {
	payload, _ := json.Marshal(e)
	return payload
}
