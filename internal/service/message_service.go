package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"casebridge/internal/models"
	"casebridge/internal/repositories"
)

// Sentinel errors used by handlers to map to HTTP status codes.
var (
	ErrValidation   = errors.New("validation failed")
	ErrAccessDenied = errors.New("access denied")
)

// List bounds for message history reads.
const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// MaxFileBytes is the attachment size ceiling.
const MaxFileBytes = 5 << 20

// allowedFileExtensions is the attachment allow-list: images plus a
// small set of document types. The reference itself stays opaque.
var allowedFileExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {},
	".pdf": {}, ".txt": {}, ".doc": {}, ".docx": {},
}

// Broadcaster pushes events to the connected participants of a case.
type Broadcaster interface {
	BroadcastNewMessage(msg models.Message)
	BroadcastReadReceipt(caseID, messageID int, readAt time.Time)
}

// MessageService is the sole writer of message records and the sole
// authority on read-state transitions. Both the REST handlers and the
// realtime channel go through it.
type MessageService struct {
	cases       repositories.CaseRepository
	messages    repositories.MessageRepository
	broadcaster Broadcaster
}

// NewMessageService builds a MessageService.
func NewMessageService(cases repositories.CaseRepository, messages repositories.MessageRepository, broadcaster Broadcaster) *MessageService {
	return &MessageService{cases: cases, messages: messages, broadcaster: broadcaster}
}

// SendMessageInput carries the fields of a send call.
type SendMessageInput struct {
	CaseID      int
	SenderID    int
	ReceiverID  int
	MessageType string
	Content     string
	FileName    string
	FileURL     string
	FileSize    int64
}

// SendMessage validates and persists a message, then broadcasts it to
// the case's room. All preconditions fail before any write.
func (s *MessageService) SendMessage(ctx context.Context, in SendMessageInput) (models.Message, error) {
	c, err := s.cases.GetCase(ctx, in.CaseID)
	if err != nil {
		return models.Message{}, err
	}
	if !c.IsParticipant(in.SenderID) {
		return models.Message{}, fmt.Errorf("%w: not a participant of case %d", ErrAccessDenied, in.CaseID)
	}
	if !c.HasLawyer() {
		return models.Message{}, fmt.Errorf("%w: case has no assigned lawyer", ErrValidation)
	}
	if in.ReceiverID == in.SenderID {
		return models.Message{}, fmt.Errorf("%w: sender and receiver must differ", ErrValidation)
	}
	if c.OtherParticipant(in.SenderID) != in.ReceiverID {
		return models.Message{}, fmt.Errorf("%w: receiver is not the case counterpart", ErrValidation)
	}

	msgType := in.MessageType
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	if !models.ValidMessageType(msgType) {
		return models.Message{}, fmt.Errorf("%w: unknown message type %q", ErrValidation, in.MessageType)
	}

	msg := models.Message{
		CaseID:      in.CaseID,
		SenderID:    in.SenderID,
		ReceiverID:  in.ReceiverID,
		MessageType: msgType,
		Content:     strings.TrimSpace(in.Content),
	}

	switch msgType {
	case models.MessageTypeFile:
		if err := validateAttachment(in); err != nil {
			return models.Message{}, err
		}
		fileName, fileURL, fileSize := in.FileName, in.FileURL, in.FileSize
		msg.FileName = &fileName
		msg.FileURL = &fileURL
		msg.FileSize = &fileSize
	default:
		if msg.Content == "" && in.FileURL == "" {
			return models.Message{}, fmt.Errorf("%w: message content is required", ErrValidation)
		}
		if in.FileURL != "" {
			fileURL := in.FileURL
			msg.FileURL = &fileURL
			if in.FileName != "" {
				fileName := in.FileName
				msg.FileName = &fileName
			}
		}
	}

	created, err := s.messages.CreateMessage(ctx, msg)
	if err != nil {
		return models.Message{}, err
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastNewMessage(created)
	}
	return created, nil
}

// ListMessages returns the case history in creation order. The
// participant check runs on every call; a pure read, no read-state
// mutation.
func (s *MessageService) ListMessages(ctx context.Context, caseID, requesterID, limit, offset int) ([]models.Message, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	member, err := s.cases.IsParticipant(ctx, caseID, requesterID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("%w: not a participant of case %d", ErrAccessDenied, caseID)
	}

	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	return s.messages.ListMessages(ctx, caseID, limit, offset)
}

// MarkRead acknowledges a message. Only the receiver may acknowledge,
// the transition happens at most once, and repeat calls return the
// message unchanged without a second broadcast.
func (s *MessageService) MarkRead(ctx context.Context, messageID, requesterID int) (models.Message, error) {
	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if msg.ReceiverID != requesterID {
		return models.Message{}, fmt.Errorf("%w: only the receiver may mark a message read", ErrAccessDenied)
	}
	if msg.ReadStatus {
		return msg, nil
	}

	updated, transitioned, err := s.messages.MarkRead(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}

	if transitioned && s.broadcaster != nil && updated.ReadAt != nil {
		s.broadcaster.BroadcastReadReceipt(updated.CaseID, updated.ID, *updated.ReadAt)
	}
	return updated, nil
}

// UnreadCounts returns the per-case unread totals for messages
// addressed to the user. Computed from the store on every call; cases
// with nothing unread are omitted.
func (s *MessageService) UnreadCounts(ctx context.Context, userID int) ([]models.UnreadCount, error) {
	return s.messages.UnreadCounts(ctx, userID)
}

func validateAttachment(in SendMessageInput) error {
	if in.FileURL == "" {
		return fmt.Errorf("%w: file message requires a file reference", ErrValidation)
	}
	if in.FileName == "" {
		return fmt.Errorf("%w: file message requires a file name", ErrValidation)
	}
	if in.FileSize <= 0 {
		return fmt.Errorf("%w: file message requires a file size", ErrValidation)
	}
	if in.FileSize > MaxFileBytes {
		return fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, MaxFileBytes)
	}
	ext := strings.ToLower(filepath.Ext(in.FileName))
	if _, ok := allowedFileExtensions[ext]; !ok {
		return fmt.Errorf("%w: file type %q is not allowed", ErrValidation, ext)
	}
	return nil
}
