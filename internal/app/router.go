package app

import (
	"github.com/gin-gonic/gin"

	"github.com/heliodesk/heliodesk-backend/internal/server"
)

func wireRouter(cfg Config, h Handlers, m Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AuthMiddleware:    m.Auth,
		WebhookMiddleware: m.Webhook,
		WebhookHandler:    h.Webhook,
		MessageHandler:    h.Message,
		TicketHandler:     h.Ticket,
		JobHandler:        h.Job,
		SSEHandler:        h.SSE,
		AllowOrigins:      cfg.AllowOrigins,
	})
}
