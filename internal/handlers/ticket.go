package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
	"github.com/heliodesk/heliodesk-backend/internal/services"
)

type TicketHandler struct {
	tickets services.TicketService
}

func NewTicketHandler(tickets services.TicketService) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

// GET /api/tickets/:id
func (h *TicketHandler) GetByID(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_ticket_id", err)
		return
	}
	ticket, err := h.tickets.GetByID(dbctx.Context{Ctx: c.Request.Context()}, ticketID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "ticket_lookup_failed", err)
		return
	}
	if ticket == nil {
		RespondError(c, http.StatusNotFound, "ticket_not_found", nil)
		return
	}
	RespondOK(c, gin.H{"ticket": ticket})
}

// GET /api/tickets/:id/messages
func (h *TicketHandler) ListMessages(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_ticket_id", err)
		return
	}
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	msgs, err := h.tickets.ListMessages(dbctx.Context{Ctx: c.Request.Context()}, ticketID, limit)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "message_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"messages": msgs})
}

// POST /api/tickets/:id/close
func (h *TicketHandler) Close(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_ticket_id", err)
		return
	}
	if err := h.tickets.Close(dbctx.Context{Ctx: c.Request.Context()}, ticketID, types.CloseTypeAgent); err != nil {
		RespondError(c, http.StatusBadRequest, "ticket_close_failed", err)
		return
	}
	RespondOK(c, gin.H{"closed": true})
}
