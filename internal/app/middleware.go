package app

import (
	"github.com/heliodesk/heliodesk-backend/internal/middleware"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
)

type Middleware struct {
	Auth    *middleware.AuthMiddleware
	Webhook *middleware.WebhookMiddleware
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth:    middleware.NewAuthMiddleware(log, cfg.JWTSecretKey),
		Webhook: middleware.NewWebhookMiddleware(log, cfg.WebhookSecret),
	}
}
