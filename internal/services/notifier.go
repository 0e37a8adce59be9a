package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/heliodesk/heliodesk-backend/internal/clients/redis"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
	"github.com/heliodesk/heliodesk-backend/internal/sse"
)

// Notifier pushes events at agents. Fire-and-forget: failures are logged and
// never propagated to callers.
type Notifier interface {
	NotifyAgent(userID uuid.UUID, event sse.Event, title string, body string)
}

type notifier struct {
	log *logger.Logger
	hub *sse.Hub
	bus redis.NotifyBus
}

// NewNotifier accepts a nil bus; single-instance deployments run without
// redis and fan out through the in-process hub only.
func NewNotifier(baseLog *logger.Logger, hub *sse.Hub, bus redis.NotifyBus) Notifier {
	return &notifier{
		log: baseLog.With("service", "Notifier"),
		hub: hub,
		bus: bus,
	}
}

func (n *notifier) NotifyAgent(userID uuid.UUID, event sse.Event, title string, body string) {
	if userID == uuid.Nil {
		return
	}
	msg := sse.Message{
		Channel: userID.String(),
		Event:   event,
		Data: map[string]any{
			"title": title,
			"body":  body,
		},
	}
	if n.hub != nil {
		n.hub.Broadcast(msg)
	}
	if n.bus != nil {
		if err := n.bus.Publish(context.Background(), msg); err != nil {
			n.log.Warn("Notify bus publish failed", "user_id", userID, "error", err)
		}
	}
}
