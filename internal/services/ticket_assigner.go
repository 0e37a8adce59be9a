package services

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/heliodesk/heliodesk-backend/internal/data/repos"
	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
)

// TicketAssignerService decides which ticket a message belongs to.
// Assign runs synchronously at message creation and may open new tickets;
// Reconcile runs as a deferred re-check and only attaches to tickets that
// already exist, catching out-of-order siblings that opened or closed a
// ticket in the intervening window.
type TicketAssignerService interface {
	Assign(dbc dbctx.Context, msg *types.Message) error
	Reconcile(dbc dbctx.Context, messageID uuid.UUID) error
}

type ticketAssignerService struct {
	log      *logger.Logger
	messages repos.MessageRepo
	tickets  repos.TicketRepo
	users    repos.UserRepo
	kpis     repos.KpiRepo
}

func NewTicketAssignerService(baseLog *logger.Logger, messages repos.MessageRepo, tickets repos.TicketRepo, users repos.UserRepo, kpis repos.KpiRepo) TicketAssignerService {
	return &ticketAssignerService{
		log:      baseLog.With("service", "TicketAssignerService"),
		messages: messages,
		tickets:  tickets,
		users:    users,
		kpis:     kpis,
	}
}

func (s *ticketAssignerService) Assign(dbc dbctx.Context, msg *types.Message) error {
	return s.assign(dbc, msg, true)
}

func (s *ticketAssignerService) Reconcile(dbc dbctx.Context, messageID uuid.UUID) error {
	msg, err := s.messages.GetByID(dbc, messageID)
	if err != nil {
		return fmt.Errorf("load message: %w", err)
	}
	if msg == nil {
		s.log.Warn("Message gone before ticket reconcile", "message_id", messageID)
		return nil
	}
	return s.assign(dbc, msg, false)
}

func (s *ticketAssignerService) assign(dbc dbctx.Context, msg *types.Message, allowCreate bool) error {
	if msg.TicketID != nil || msg.IsProspect {
		return nil
	}

	customerID, agentID, err := s.pairFor(dbc, msg)
	if err != nil || customerID == uuid.Nil {
		return err
	}

	open, err := s.tickets.FindOpenByPair(dbc, customerID, agentID)
	if err != nil {
		return fmt.Errorf("lookup open ticket: %w", err)
	}
	if open != nil {
		return s.attach(dbc, msg, open.ID)
	}

	closed, err := s.tickets.FindLatestClosedByPair(dbc, customerID, agentID)
	if err != nil {
		return fmt.Errorf("lookup closed ticket: %w", err)
	}

	if msg.Direction == types.DirectionOutgoing {
		// Outgoing messages never open tickets. A trailing reply into a
		// closed conversation is still worth keeping attached.
		if closed != nil {
			return s.attach(dbc, msg, closed.ID)
		}
		return nil
	}

	if closed != nil {
		lastIn, err := s.messages.LastIncomingForTicket(dbc, closed.ID)
		if err != nil {
			return fmt.Errorf("lookup last incoming: %w", err)
		}
		if lastIn != nil && lastIn.SentAt.After(msg.SentAt) {
			// Reordering artifact of an already-superseded conversation
			// window. Left unassigned on purpose.
			s.log.Info("Dropping stale incoming message from ticketing",
				"message_id", msg.ID, "closed_ticket_id", closed.ID)
			return nil
		}
	}

	if !allowCreate {
		return nil
	}
	return s.openTicket(dbc, msg, customerID, agentID)
}

// pairFor orients the (customer, agent) pair from the message direction.
// Returns uuid.Nil when the customer side is not a standard-role user,
// which opts the message out of ticketing entirely.
func (s *ticketAssignerService) pairFor(dbc dbctx.Context, msg *types.Message) (uuid.UUID, uuid.UUID, error) {
	customerID, agentID := msg.SenderID, msg.RecipientID
	if msg.Direction == types.DirectionOutgoing {
		customerID, agentID = msg.RecipientID, msg.SenderID
	}
	customer, err := s.users.GetByID(dbc, customerID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("load customer: %w", err)
	}
	if customer == nil || customer.Role != types.RoleStandard {
		return uuid.Nil, uuid.Nil, nil
	}
	return customerID, agentID, nil
}

func (s *ticketAssignerService) attach(dbc dbctx.Context, msg *types.Message, ticketID uuid.UUID) error {
	if err := s.messages.AttachTicket(dbc, msg.ID, ticketID); err != nil {
		return fmt.Errorf("attach message to ticket: %w", err)
	}
	msg.TicketID = &ticketID
	return nil
}

func (s *ticketAssignerService) openTicket(dbc dbctx.Context, msg *types.Message, customerID, agentID uuid.UUID) error {
	subject := truncateSubject(msg.Content, 120)
	ticket, err := s.tickets.Create(dbc, &types.Ticket{
		TenantID: msg.TenantID,
		UserID:   customerID,
		AgentID:  agentID,
		Status:   types.TicketOpen,
		Subject:  subject,
	})
	if err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	if err := s.attach(dbc, msg, ticket.ID); err != nil {
		return err
	}

	data, _ := json.Marshal(map[string]string{"message_id": msg.ID.String()})
	if _, err := s.kpis.Create(dbc, &types.Kpi{
		TenantID:  msg.TenantID,
		Type:      types.KpiNewTicket,
		Value:     1,
		UserID:    agentID,
		TicketID:  &ticket.ID,
		Data:      datatypes.JSON(data),
		CreatedAt: msg.SentAt,
	}); err != nil {
		return fmt.Errorf("record new-ticket kpi: %w", err)
	}

	s.log.Info("Opened ticket", "ticket_id", ticket.ID, "user_id", customerID, "agent_id", agentID)
	return nil
}

// truncateSubject cuts content to at most max bytes without splitting a
// multi-byte rune.
func truncateSubject(content string, max int) string {
	if len(content) <= max {
		return content
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}
