package services

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/heliodesk/heliodesk-backend/internal/data/repos"
	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
)

// MessageRouterService decides, before an incoming message is persisted,
// which agent actually receives it. Messages addressed to the shared
// WhatsApp inbox are pinned to the sender's sticky agent when one exists,
// otherwise spread uniformly over the eligible agents.
type MessageRouterService interface {
	RouteIncoming(dbc dbctx.Context, msg *types.Message) error
}

type messageRouterService struct {
	log     *logger.Logger
	users   repos.UserRepo
	tenants repos.TenantRepo
	roster  *Roster
	pick    func(n int) int
}

func NewMessageRouterService(baseLog *logger.Logger, users repos.UserRepo, tenants repos.TenantRepo, roster *Roster) MessageRouterService {
	return &messageRouterService{
		log:     baseLog.With("service", "MessageRouterService"),
		users:   users,
		tenants: tenants,
		roster:  roster,
		pick:    rand.Intn,
	}
}

func (s *messageRouterService) RouteIncoming(dbc dbctx.Context, msg *types.Message) error {
	if msg == nil || msg.Direction != types.DirectionIncoming {
		return nil
	}

	recipient, err := s.users.GetByID(dbc, msg.RecipientID)
	if err != nil {
		return fmt.Errorf("load recipient: %w", err)
	}
	if recipient == nil || recipient.Role != types.RoleWhatsapp {
		return nil
	}

	sender, err := s.users.GetByID(dbc, msg.SenderID)
	if err != nil {
		return fmt.Errorf("load sender: %w", err)
	}
	if sender == nil || sender.Role != types.RoleStandard {
		return nil
	}

	sticky, err := s.resolveStickyAgent(dbc, sender)
	if err != nil {
		return err
	}
	if sticky != nil && sticky.ID != recipient.ID {
		// Deterministic route; no flags change since the customer already has
		// a pinned agent.
		msg.RecipientID = sticky.ID
		return nil
	}

	agent, err := s.randomEligibleAgent(dbc, msg.TenantID)
	if err != nil {
		return err
	}
	if agent == nil {
		s.log.Warn("No eligible agents, message stays on shared inbox",
			"tenant_id", msg.TenantID, "sender_id", sender.ID)
		return nil
	}

	originalRecipient := msg.RecipientID
	msg.WhatsappRouted = true
	msg.OriginalRecipientID = &originalRecipient
	msg.RecipientID = agent.ID

	// Future messages from this customer route deterministically via the
	// sticky assignment.
	if err := s.users.UpdateFields(dbc, sender.ID, map[string]interface{}{
		"manager_id": agent.ID,
	}); err != nil {
		return fmt.Errorf("persist sticky agent: %w", err)
	}
	s.log.Info("Routed shared-inbox message to random agent",
		"message_sender", sender.ID, "agent_id", agent.ID)
	return nil
}

// resolveStickyAgent walks the manager chain until it reaches an agent-role
// user. The visited set guards against accidental cycles in the hierarchy.
func (s *messageRouterService) resolveStickyAgent(dbc dbctx.Context, sender *types.User) (*types.User, error) {
	visited := map[uuid.UUID]bool{sender.ID: true}
	next := sender.ManagerID
	for next != nil && *next != uuid.Nil {
		if visited[*next] {
			s.log.Warn("Manager chain cycle detected", "user_id", sender.ID, "at", *next)
			return nil, nil
		}
		visited[*next] = true
		u, err := s.users.GetByID(dbc, *next)
		if err != nil {
			return nil, fmt.Errorf("walk manager chain: %w", err)
		}
		if u == nil {
			return nil, nil
		}
		if u.Role == types.RoleAgent {
			return u, nil
		}
		next = u.ManagerID
	}
	return nil, nil
}

func (s *messageRouterService) randomEligibleAgent(dbc dbctx.Context, tenantID uuid.UUID) (*types.User, error) {
	agents, err := s.users.ListAgents(dbc, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}

	tenantKey := ""
	if t, err := s.tenants.GetByID(dbc, tenantID); err == nil && t != nil {
		tenantKey = t.Key
	}

	eligible := agents[:0:0]
	for _, a := range agents {
		if s.roster.Eligible(tenantKey, a.Name) {
			eligible = append(eligible, a)
		}
	}
	if len(eligible) == 0 {
		return nil, nil
	}
	return eligible[s.pick(len(eligible))], nil
}
