package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
)

type WebhookMiddleware struct {
	log    *logger.Logger
	secret string
}

func NewWebhookMiddleware(baseLog *logger.Logger, secret string) *WebhookMiddleware {
	return &WebhookMiddleware{
		log:    baseLog.With("Middleware", "WebhookMiddleware"),
		secret: secret,
	}
}

// RequireSecret guards the channel callbacks with a shared-secret header.
// An empty configured secret disables the check for local development.
func (wm *WebhookMiddleware) RequireSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		if wm.secret == "" {
			c.Next()
			return
		}
		got := c.GetHeader("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(wm.secret)) != 1 {
			wm.log.Warn("Webhook secret mismatch", "remote", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}
		c.Next()
	}
}
