package models

import "time"

// Message types.
const (
	MessageTypeText   = "text"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

// ValidMessageType reports whether t is a known message type.
func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeFile, MessageTypeSystem:
		return true
	}
	return false
}

// Message is one entry in a case conversation. A message is created on
// send, mutated once when the receiver acknowledges it, and never edited
// or deleted.
type Message struct {
	ID          int        `db:"id" json:"id"`
	CaseID      int        `db:"case_id" json:"case_id"`
	SenderID    int        `db:"sender_id" json:"sender_id"`
	ReceiverID  int        `db:"receiver_id" json:"receiver_id"`
	MessageType string     `db:"message_type" json:"message_type"`
	Content     string     `db:"content" json:"content"`
	FileName    *string    `db:"file_name" json:"file_name,omitempty"`
	FileURL     *string    `db:"file_url" json:"file_url,omitempty"`
	FileSize    *int64     `db:"file_size" json:"file_size,omitempty"`
	ReadStatus  bool       `db:"read_status" json:"read_status"`
	ReadAt      *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// UnreadCount is the number of unread messages addressed to a user in
// one case. Derived on demand, never stored.
type UnreadCount struct {
	CaseID int `db:"case_id" json:"case_id"`
	Count  int `db:"count" json:"count"`
}
