package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/heliodesk/heliodesk-backend/internal/data/repos"
	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
	"github.com/heliodesk/heliodesk-backend/internal/sse"
)

// AlertEscalatorService runs the delayed "still no response?" check. It
// never re-schedules itself; an unanswered thread is picked up again only by
// the hourly flag sweep or by the next incoming message.
type AlertEscalatorService interface {
	CheckAndAlert(dbc dbctx.Context, messageID, senderID, recipientID uuid.UUID, delayMinutes int) error
}

type alertEscalatorService struct {
	log      *logger.Logger
	messages repos.MessageRepo
	users    repos.UserRepo
	alerts   repos.AlertRepo
	notifier Notifier
}

func NewAlertEscalatorService(baseLog *logger.Logger, messages repos.MessageRepo, users repos.UserRepo, alerts repos.AlertRepo, notifier Notifier) AlertEscalatorService {
	return &alertEscalatorService{
		log:      baseLog.With("service", "AlertEscalatorService"),
		messages: messages,
		users:    users,
		alerts:   alerts,
		notifier: notifier,
	}
}

func (s *alertEscalatorService) CheckAndAlert(dbc dbctx.Context, messageID, senderID, recipientID uuid.UUID, delayMinutes int) error {
	msg, err := s.messages.GetByID(dbc, messageID)
	if err != nil {
		return fmt.Errorf("load message: %w", err)
	}
	if msg == nil {
		s.log.Warn("Message gone before alert check", "message_id", messageID)
		return nil
	}

	answered, err := s.responseExists(dbc, msg, senderID, recipientID)
	if err != nil {
		return err
	}

	// The flagged party is whoever is owed a response.
	flagged := recipientID
	if msg.Direction != types.DirectionIncoming {
		flagged = senderID
	}
	waiting := senderID
	if msg.Direction != types.DirectionIncoming {
		waiting = recipientID
	}

	if answered {
		if err := s.users.UpdateFields(dbc, waiting, map[string]interface{}{
			"require_response": false,
		}); err != nil {
			return fmt.Errorf("clear flag: %w", err)
		}
		return nil
	}

	alert := &types.Alert{
		TenantID:  msg.TenantID,
		AgentID:   flagged,
		MessageID: &msg.ID,
		Kind:      types.AlertNoResponse,
		Body:      fmt.Sprintf("No response after %d minutes", delayMinutes),
	}
	if msg.TicketID != nil {
		alert.TicketID = msg.TicketID
	}
	if _, err := s.alerts.Create(dbc, alert); err != nil {
		return fmt.Errorf("create alert: %w", err)
	}

	updates := map[string]interface{}{"require_response": true}
	if u, err := s.users.GetByID(dbc, waiting); err == nil && u != nil && u.LastMessageAt == nil {
		updates["last_message_at"] = msg.SentAt
	}
	if err := s.users.UpdateFields(dbc, waiting, updates); err != nil {
		return fmt.Errorf("reaffirm flag: %w", err)
	}

	s.notifier.NotifyAgent(flagged, sse.EventResponseOverdue,
		"Response overdue", alert.Body)
	s.log.Info("Raised no-response alert",
		"agent_id", flagged, "message_id", msg.ID, "delay_minutes", delayMinutes)
	return nil
}

func (s *alertEscalatorService) responseExists(dbc dbctx.Context, msg *types.Message, senderID, recipientID uuid.UUID) (bool, error) {
	if msg.TicketID != nil {
		ok, err := s.messages.ExistsOutgoingForTicketAfter(dbc, *msg.TicketID, msg.SentAt)
		if err != nil {
			return false, fmt.Errorf("lookup ticket response: %w", err)
		}
		return ok, nil
	}
	ok, err := s.messages.ExistsOutgoingBetweenAfter(dbc, recipientID, senderID, msg.SentAt)
	if err != nil {
		return false, fmt.Errorf("lookup direct response: %w", err)
	}
	return ok, nil
}
