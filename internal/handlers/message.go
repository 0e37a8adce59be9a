package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
	"github.com/heliodesk/heliodesk-backend/internal/services"
)

type MessageHandler struct {
	messages services.MessageService
}

func NewMessageHandler(messages services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

type outgoingMessageRequest struct {
	RecipientID string `json:"recipient_id" binding:"required"`
	Content     string `json:"content" binding:"required"`
	SentAt      string `json:"sent_at"`
}

// POST /api/messages
func (h *MessageHandler) CreateOutgoing(c *gin.Context) {
	senderID, ok := RequestUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "missing_user", nil)
		return
	}
	var req outgoingMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	recipientID, err := uuid.Parse(req.RecipientID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_recipient_id", err)
		return
	}

	in := services.OutgoingMessageInput{
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     req.Content,
	}
	if req.SentAt != "" {
		t, err := time.Parse(time.RFC3339, req.SentAt)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_sent_at", err)
			return
		}
		in.SentAt = &t
	}

	msg, err := h.messages.CreateOutgoingMessage(dbctx.Context{Ctx: c.Request.Context()}, in)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "message_create_failed", err)
		return
	}
	RespondOK(c, gin.H{"message": msg})
}

// GET /api/messages/:id
func (h *MessageHandler) GetByID(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_message_id", err)
		return
	}
	msg, err := h.messages.GetByID(dbctx.Context{Ctx: c.Request.Context()}, messageID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "message_lookup_failed", err)
		return
	}
	if msg == nil {
		RespondError(c, http.StatusNotFound, "message_not_found", nil)
		return
	}
	RespondOK(c, gin.H{"message": msg})
}
