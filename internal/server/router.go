package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/heliodesk/heliodesk-backend/internal/handlers"
	"github.com/heliodesk/heliodesk-backend/internal/middleware"
)

const serviceName = "heliodesk-backend"

type RouterConfig struct {
	AuthMiddleware    *middleware.AuthMiddleware
	WebhookMiddleware *middleware.WebhookMiddleware
	WebhookHandler    *handlers.WebhookHandler
	MessageHandler    *handlers.MessageHandler
	TicketHandler     *handlers.TicketHandler
	JobHandler        *handlers.JobHandler
	SSEHandler        *handlers.SSEHandler
	AllowOrigins      []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Webhook-Secret"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// Channel callbacks; returns before any staged job runs.
	webhook := router.Group("/webhook")
	webhook.Use(cfg.WebhookMiddleware.RequireSecret())
	{
		webhook.POST("/message", cfg.WebhookHandler.IncomingMessage)
		webhook.POST("/delivery-status", cfg.WebhookHandler.DeliveryStatus)
	}

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	{
		// Messages
		api.POST("/messages", cfg.MessageHandler.CreateOutgoing)
		api.GET("/messages/:id", cfg.MessageHandler.GetByID)
		// Tickets
		api.GET("/tickets/:id", cfg.TicketHandler.GetByID)
		api.GET("/tickets/:id/messages", cfg.TicketHandler.ListMessages)
		api.POST("/tickets/:id/close", cfg.TicketHandler.Close)
		// Scheduled jobs (ops)
		api.GET("/jobs", cfg.JobHandler.ListByStatus)
		api.GET("/jobs/stats", cfg.JobHandler.Stats)
		api.GET("/jobs/:id", cfg.JobHandler.GetByID)
		// SSE
		api.GET("/sse/stream", cfg.SSEHandler.Stream)
	}

	return router
}
