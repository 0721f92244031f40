package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"casebridge/internal/models"
	"casebridge/internal/observability"
	"casebridge/internal/repositories"
	"casebridge/internal/service"
	"casebridge/internal/telemetry"
)

// MessageHandler exposes the message service over HTTP. The realtime
// channel carries the push side; these endpoints carry the
// request/response side.
type MessageHandler struct {
	messages *service.MessageService
	audit    *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messages *service.MessageService, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{messages: messages, audit: audit}
}

// ListMessages returns a case's history in creation order.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	caseID, err := strconv.Atoi(c.Param("case_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid case id"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	msgs, err := h.messages.ListMessages(c.Request.Context(), caseID, userIDFromContext(c), limit, offset)
	if err != nil {
		respondError(c, err, "failed to load messages")
		return
	}

	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage validates, persists, and broadcasts a new message.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req struct {
		CaseID      int    `json:"case_id" binding:"required"`
		ReceiverID  int    `json:"receiver_id" binding:"required"`
		MessageType string `json:"message_type"`
		Content     string `json:"content"`
		FileName    string `json:"file_name"`
		FileURL     string `json:"file_url"`
		FileSize    int64  `json:"file_size"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	senderID := userIDFromContext(c)
	msg, err := h.messages.SendMessage(c.Request.Context(), service.SendMessageInput{
		CaseID:      req.CaseID,
		SenderID:    senderID,
		ReceiverID:  req.ReceiverID,
		MessageType: req.MessageType,
		Content:     req.Content,
		FileName:    req.FileName,
		FileURL:     req.FileURL,
		FileSize:    req.FileSize,
	})
	if err != nil {
		respondError(c, err, "failed to send message")
		return
	}

	observability.IncMessageSent(msg.MessageType)
	h.audit.Emit(c.Request.Context(), "message_sent", msg.CaseID, "", requestIDFromContext(c), senderID)
	c.JSON(http.StatusCreated, msg)
}

// MarkRead acknowledges a message on behalf of its receiver.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	requesterID := userIDFromContext(c)
	msg, err := h.messages.MarkRead(c.Request.Context(), messageID, requesterID)
	if err != nil {
		respondError(c, err, "failed to mark message read")
		return
	}

	h.audit.Emit(c.Request.Context(), "message_read", msg.CaseID, "", requestIDFromContext(c), requesterID)
	c.JSON(http.StatusOK, msg)
}

// UnreadCounts returns the caller's per-case unread totals. Cases with
// nothing unread are omitted.
func (h *MessageHandler) UnreadCounts(c *gin.Context) {
	counts, err := h.messages.UnreadCounts(c.Request.Context(), userIDFromContext(c))
	if err != nil {
		respondError(c, err, "failed to load unread counts")
		return
	}

	if counts == nil {
		counts = []models.UnreadCount{}
	}
	c.JSON(http.StatusOK, gin.H{"unread_counts": counts})
}

// respondError maps the service error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, repositories.ErrCaseNotFound),
		errors.Is(err, repositories.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
