package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
	"github.com/heliodesk/heliodesk-backend/internal/services"
)

// WebhookHandler ingests channel callbacks. The response is returned before
// any of the staged jobs run; callers never see pipeline failures.
type WebhookHandler struct {
	log      *logger.Logger
	messages services.MessageService
}

func NewWebhookHandler(log *logger.Logger, messages services.MessageService) *WebhookHandler {
	return &WebhookHandler{
		log:      log.With("handler", "WebhookHandler"),
		messages: messages,
	}
}

type incomingWebhookRequest struct {
	TenantID    string `json:"tenant_id" binding:"required"`
	SenderPhone string `json:"sender_phone" binding:"required"`
	RecipientID string `json:"recipient_id" binding:"required"`
	Content     string `json:"content"`
	SentAt      string `json:"sent_at"`
	IsProspect  bool   `json:"is_prospect"`
}

// POST /webhook/message
func (h *WebhookHandler) IncomingMessage(c *gin.Context) {
	var req incomingWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_tenant_id", err)
		return
	}
	recipientID, err := uuid.Parse(req.RecipientID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_recipient_id", err)
		return
	}

	in := services.IncomingMessageInput{
		TenantID:    tenantID,
		SenderPhone: req.SenderPhone,
		RecipientID: recipientID,
		Content:     req.Content,
		IsProspect:  req.IsProspect,
	}
	if req.SentAt != "" {
		t, err := time.Parse(time.RFC3339, req.SentAt)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_sent_at", err)
			return
		}
		in.SentAt = &t
	}

	msg, err := h.messages.CreateIncomingMessage(dbctx.Context{Ctx: c.Request.Context()}, in)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "message_create_failed", err)
		return
	}
	RespondOK(c, gin.H{"message": msg})
}

type deliveryStatusRequest struct {
	MessageID string `json:"message_id" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

// POST /webhook/delivery-status
func (h *WebhookHandler) DeliveryStatus(c *gin.Context) {
	var req deliveryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	messageID, err := uuid.Parse(req.MessageID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_message_id", err)
		return
	}
	if err := h.messages.UpdateDeliveryStatus(dbctx.Context{Ctx: c.Request.Context()}, messageID, req.Status); err != nil {
		RespondError(c, http.StatusBadRequest, "delivery_status_failed", err)
		return
	}
	RespondOK(c, gin.H{"updated": true})
}
