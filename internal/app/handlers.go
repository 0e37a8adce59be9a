package app

import (
	"github.com/heliodesk/heliodesk-backend/internal/handlers"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
	"github.com/heliodesk/heliodesk-backend/internal/sse"
)

type Handlers struct {
	Webhook *handlers.WebhookHandler
	Message *handlers.MessageHandler
	Ticket  *handlers.TicketHandler
	Job     *handlers.JobHandler
	SSE     *handlers.SSEHandler
}

func wireHandlers(log *logger.Logger, s Services, hub *sse.Hub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Webhook: handlers.NewWebhookHandler(log, s.Message),
		Message: handlers.NewMessageHandler(s.Message),
		Ticket:  handlers.NewTicketHandler(s.Ticket),
		Job:     handlers.NewJobHandler(s.Job),
		SSE:     handlers.NewSSEHandler(hub),
	}
}
