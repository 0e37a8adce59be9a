package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/heliodesk/heliodesk-backend/internal/data/repos"
	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
)

// TicketService owns ticket lifecycle transitions. Tickets only ever move
// open -> closed; reopening means the assigner creates a fresh ticket.
type TicketService interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Ticket, error)
	ListMessages(dbc dbctx.Context, ticketID uuid.UUID, limit int) ([]*types.Message, error)
	Close(dbc dbctx.Context, ticketID uuid.UUID, closeType string) error
	AutoCloseIdle(dbc dbctx.Context, tenantID uuid.UUID) (int, error)
}

type ticketService struct {
	log      *logger.Logger
	tickets  repos.TicketRepo
	messages repos.MessageRepo
	settings TenantSettingsService
}

func NewTicketService(baseLog *logger.Logger, tickets repos.TicketRepo, messages repos.MessageRepo, settings TenantSettingsService) TicketService {
	return &ticketService{
		log:      baseLog.With("service", "TicketService"),
		tickets:  tickets,
		messages: messages,
		settings: settings,
	}
}

func (s *ticketService) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Ticket, error) {
	return s.tickets.GetByID(dbc, id)
}

func (s *ticketService) ListMessages(dbc dbctx.Context, ticketID uuid.UUID, limit int) ([]*types.Message, error) {
	return s.messages.ListByTicket(dbc, ticketID, limit)
}

func (s *ticketService) Close(dbc dbctx.Context, ticketID uuid.UUID, closeType string) error {
	t, err := s.tickets.GetByID(dbc, ticketID)
	if err != nil {
		return fmt.Errorf("load ticket: %w", err)
	}
	if t == nil {
		return fmt.Errorf("ticket %s not found", ticketID)
	}
	if t.Status == types.TicketClosed {
		return nil
	}
	if closeType == "" {
		closeType = types.CloseTypeAgent
	}
	if err := s.tickets.Close(dbc, ticketID, closeType, time.Now().UTC()); err != nil {
		return fmt.Errorf("close ticket: %w", err)
	}
	s.log.Info("Closed ticket", "ticket_id", ticketID, "close_type", closeType)
	return nil
}

// AutoCloseIdle closes every open ticket of the tenant whose last message is
// older than the tenant's auto-close window. Returns how many closed.
func (s *ticketService) AutoCloseIdle(dbc dbctx.Context, tenantID uuid.UUID) (int, error) {
	hours := s.settings.GetAutoCloseHours(dbc, tenantID)
	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	idle, err := s.tickets.ListOpenIdle(dbc, tenantID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list idle tickets: %w", err)
	}
	closed := 0
	for _, t := range idle {
		if err := s.tickets.Close(dbc, t.ID, types.CloseTypeAuto, time.Now().UTC()); err != nil {
			s.log.Error("Auto-close failed", "ticket_id", t.ID, "error", err)
			continue
		}
		closed++
	}
	if closed > 0 {
		s.log.Info("Auto-closed idle tickets", "tenant_id", tenantID, "count", closed)
	}
	return closed, nil
}
