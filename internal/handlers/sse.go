package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/heliodesk/heliodesk-backend/internal/sse"
)

type SSEHandler struct {
	hub *sse.Hub
}

func NewSSEHandler(hub *sse.Hub) *SSEHandler {
	return &SSEHandler{hub: hub}
}

// GET /sse/stream
// Subscribes the authenticated agent to their own notification channel and
// streams until the connection drops.
func (h *SSEHandler) Stream(c *gin.Context) {
	userID, ok := RequestUserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "missing_user", nil)
		return
	}
	client := h.hub.NewClient(userID)
	h.hub.Subscribe(client, userID.String())
	defer h.hub.CloseClient(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
