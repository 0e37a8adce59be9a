package app

import (
	"strings"

	"github.com/heliodesk/heliodesk-backend/internal/platform/envutil"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
)

type Config struct {
	JWTSecretKey   string
	WebhookSecret  string
	RosterPath     string
	AllowOrigins   []string
	EnableRedis    bool
	EnableWhatsapp bool
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		JWTSecretKey:   envutil.Get("JWT_SECRET_KEY", "defaultsecret"),
		WebhookSecret:  envutil.Get("WEBHOOK_SECRET", ""),
		RosterPath:     envutil.Get("AGENT_ROSTER_PATH", ""),
		EnableRedis:    envutil.Bool("REDIS_ENABLED", false),
		EnableWhatsapp: envutil.Bool("WHATSAPP_ENABLED", false),
	}
	if raw := envutil.Get("CORS_ALLOW_ORIGINS", ""); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowOrigins = append(cfg.AllowOrigins, o)
			}
		}
	}
	if cfg.JWTSecretKey == "defaultsecret" {
		log.Warn("JWT_SECRET_KEY not set, using default")
	}
	return cfg
}
