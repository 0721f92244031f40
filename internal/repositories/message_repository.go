package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"casebridge/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines persistence for case messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.Message) (models.Message, error)
	ListMessages(ctx context.Context, caseID int, limit, offset int) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	MarkRead(ctx context.Context, messageID int) (models.Message, bool, error)
	UnreadCounts(ctx context.Context, userID int) ([]models.UnreadCount, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, case_id, sender_id, receiver_id, message_type, content, file_name, file_url, file_size, read_status, read_at, created_at`

// CreateMessage stores a message; the creation timestamp is assigned by
// the database at insert time.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	var created models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (case_id, sender_id, receiver_id, message_type, content, file_name, file_url, file_size)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
         RETURNING `+messageColumns,
		msg.CaseID, msg.SenderID, msg.ReceiverID, msg.MessageType, msg.Content,
		msg.FileName, msg.FileURL, msg.FileSize).StructScan(&created)
	return created, err
}

// ListMessages returns the case's messages in creation order. The
// database commit order, not broadcast arrival order, is authoritative.
func (r *MessageRepo) ListMessages(ctx context.Context, caseID int, limit, offset int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages WHERE case_id=$1 ORDER BY created_at ASC, id ASC LIMIT $2 OFFSET $3`,
		caseID, limit, offset)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// MarkRead sets read_status and the read timestamp with a single
// conditional update, so a message records at most one read_at even
// under concurrent calls. The boolean reports whether this call
// performed the transition; already-read messages come back unchanged.
func (r *MessageRepo) MarkRead(ctx context.Context, messageID int) (models.Message, bool, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`UPDATE messages SET read_status=TRUE, read_at=NOW() WHERE id=$1 AND read_status=FALSE
         RETURNING `+messageColumns, messageID).StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		// Already read (or gone); hand back the current row.
		msg, err = r.GetMessage(ctx, messageID)
		return msg, false, err
	}
	return msg, true, err
}

// UnreadCounts returns per-case unread totals for messages addressed to
// the user. Cases with zero unread messages are omitted.
func (r *MessageRepo) UnreadCounts(ctx context.Context, userID int) ([]models.UnreadCount, error) {
	var counts []models.UnreadCount
	err := r.db.SelectContext(ctx, &counts,
		`SELECT case_id, COUNT(*) AS count FROM messages
         WHERE receiver_id=$1 AND read_status=FALSE
         GROUP BY case_id ORDER BY case_id`, userID)
	return counts, err
}
