package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/heliodesk/heliodesk-backend/internal/clients/whatsapp"
	"github.com/heliodesk/heliodesk-backend/internal/data/repos"
	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
	"github.com/heliodesk/heliodesk-backend/internal/sse"
)

// Stage delays between message creation and the deferred consistency passes.
// Each later stage re-reads current state, so the tiers are advisory ordering,
// not a guarantee.
const (
	TicketStageDelay = 5 * time.Second
	KpiStageDelay    = 10 * time.Second
	FlagStageDelay   = 20 * time.Second
)

type IncomingMessageInput struct {
	TenantID    uuid.UUID
	SenderPhone string
	RecipientID uuid.UUID
	Content     string
	SentAt      *time.Time
	IsProspect  bool
}

type OutgoingMessageInput struct {
	SenderID    uuid.UUID
	RecipientID uuid.UUID
	Content     string
	SentAt      *time.Time
}

// MessageService is the ingestion entry point. It routes, persists, makes a
// best-effort synchronous ticket assignment, then enqueues the staged
// follow-ups that settle the final state.
type MessageService interface {
	CreateIncomingMessage(dbc dbctx.Context, in IncomingMessageInput) (*types.Message, error)
	CreateOutgoingMessage(dbc dbctx.Context, in OutgoingMessageInput) (*types.Message, error)
	UpdateDeliveryStatus(dbc dbctx.Context, messageID uuid.UUID, status string) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Message, error)
}

type messageService struct {
	log       *logger.Logger
	messages  repos.MessageRepo
	users     repos.UserRepo
	router    MessageRouterService
	assigner  TicketAssignerService
	tracker   ResponseTrackerService
	scheduler JobScheduler
	notifier  Notifier
	wa        whatsapp.Client
}

// NewMessageService accepts a nil whatsapp client; outbound messages are then
// persisted without a delivery attempt.
func NewMessageService(
	baseLog *logger.Logger,
	messages repos.MessageRepo,
	users repos.UserRepo,
	router MessageRouterService,
	assigner TicketAssignerService,
	tracker ResponseTrackerService,
	scheduler JobScheduler,
	notifier Notifier,
	wa whatsapp.Client,
) MessageService {
	return &messageService{
		log:       baseLog.With("service", "MessageService"),
		messages:  messages,
		users:     users,
		router:    router,
		assigner:  assigner,
		tracker:   tracker,
		scheduler: scheduler,
		notifier:  notifier,
		wa:        wa,
	}
}

func (s *messageService) CreateIncomingMessage(dbc dbctx.Context, in IncomingMessageInput) (*types.Message, error) {
	if in.SenderPhone == "" || in.RecipientID == uuid.Nil {
		return nil, fmt.Errorf("incoming message needs sender phone and recipient")
	}
	sender, err := s.resolveSender(dbc, in)
	if err != nil {
		return nil, err
	}

	sentAt := time.Now().UTC()
	if in.SentAt != nil {
		sentAt = in.SentAt.UTC()
	}
	msg := &types.Message{
		TenantID:       in.TenantID,
		SenderID:       sender.ID,
		RecipientID:    in.RecipientID,
		Direction:      types.DirectionIncoming,
		Content:        in.Content,
		SentAt:         sentAt,
		IsProspect:     in.IsProspect,
		DeliveryStatus: types.DeliveryDelivered,
	}

	if err := s.router.RouteIncoming(dbc, msg); err != nil {
		return nil, fmt.Errorf("route message: %w", err)
	}
	if msg, err = s.messages.Create(dbc, msg); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	// Best effort only; the 5s stage repeats the lookup with settled data.
	if err := s.assigner.Assign(dbc, msg); err != nil {
		s.log.Warn("Synchronous ticket assignment failed", "message_id", msg.ID, "error", err)
	}

	// Prospect traffic opts out of the pipeline entirely; none of the staged
	// passes would act on it.
	if !msg.IsProspect {
		s.enqueueStages(dbc, msg)
	}
	if err := s.messages.MarkProcessed(dbc, msg.ID); err != nil {
		s.log.Warn("Mark processed failed", "message_id", msg.ID, "error", err)
	}

	s.notifier.NotifyAgent(msg.RecipientID, sse.EventAgentNotification,
		"New message", msg.Content)
	return msg, nil
}

func (s *messageService) CreateOutgoingMessage(dbc dbctx.Context, in OutgoingMessageInput) (*types.Message, error) {
	if in.SenderID == uuid.Nil || in.RecipientID == uuid.Nil {
		return nil, fmt.Errorf("outgoing message needs sender and recipient")
	}
	sender, err := s.users.GetByID(dbc, in.SenderID)
	if err != nil {
		return nil, fmt.Errorf("load sender: %w", err)
	}
	if sender == nil {
		return nil, fmt.Errorf("sender %s not found", in.SenderID)
	}
	recipient, err := s.users.GetByID(dbc, in.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("load recipient: %w", err)
	}
	if recipient == nil {
		return nil, fmt.Errorf("recipient %s not found", in.RecipientID)
	}

	sentAt := time.Now().UTC()
	if in.SentAt != nil {
		sentAt = in.SentAt.UTC()
	}
	msg := &types.Message{
		TenantID:       sender.TenantID,
		SenderID:       sender.ID,
		RecipientID:    recipient.ID,
		Direction:      types.DirectionOutgoing,
		Content:        in.Content,
		SentAt:         sentAt,
		DeliveryStatus: types.DeliveryPending,
	}
	if msg, err = s.messages.Create(dbc, msg); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	if err := s.assigner.Assign(dbc, msg); err != nil {
		s.log.Warn("Synchronous ticket assignment failed", "message_id", msg.ID, "error", err)
	}
	if err := s.tracker.RecordFirstResponse(dbc, msg); err != nil {
		s.log.Warn("First-response kpi failed", "message_id", msg.ID, "error", err)
	}

	// Replies only need the flag stage; the customer's flag clears once the
	// reconcile pass sees this message on top.
	s.enqueueFlagStage(dbc, msg.ID, recipient.ID)
	if recipient.Role != types.RoleStandard {
		s.enqueueFlagStage(dbc, msg.ID, sender.ID)
	}
	if err := s.messages.MarkProcessed(dbc, msg.ID); err != nil {
		s.log.Warn("Mark processed failed", "message_id", msg.ID, "error", err)
	}

	s.deliverAsync(msg, recipient.Phone)
	return msg, nil
}

func (s *messageService) UpdateDeliveryStatus(dbc dbctx.Context, messageID uuid.UUID, status string) error {
	switch status {
	case types.DeliveryPending, types.DeliverySent, types.DeliveryDelivered, types.DeliveryFailed:
	default:
		return fmt.Errorf("unknown delivery status %q", status)
	}
	return s.messages.UpdateDeliveryStatus(dbc, messageID, status)
}

func (s *messageService) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Message, error) {
	return s.messages.GetByID(dbc, id)
}

// resolveSender maps the webhook phone number to a user, creating a fresh
// standard user on first contact.
func (s *messageService) resolveSender(dbc dbctx.Context, in IncomingMessageInput) (*types.User, error) {
	sender, err := s.users.GetByPhone(dbc, in.TenantID, in.SenderPhone)
	if err != nil {
		return nil, fmt.Errorf("lookup sender: %w", err)
	}
	if sender != nil {
		return sender, nil
	}
	sender, err = s.users.Create(dbc, &types.User{
		TenantID: in.TenantID,
		Role:     types.RoleStandard,
		Name:     in.SenderPhone,
		Phone:    in.SenderPhone,
	})
	if err != nil {
		return nil, fmt.Errorf("create sender: %w", err)
	}
	s.log.Info("Created user from first contact", "user_id", sender.ID, "phone", in.SenderPhone)
	return sender, nil
}

func (s *messageService) enqueueStages(dbc dbctx.Context, msg *types.Message) {
	if _, err := s.scheduler.ScheduleDelayed(dbc, "ticket assignment re-check", types.JobTicketAssignment, map[string]any{
		"message_id": msg.ID.String(),
	}, TicketStageDelay); err != nil {
		s.log.Error("Enqueue ticket stage failed", "message_id", msg.ID, "error", err)
	}
	if _, err := s.scheduler.ScheduleDelayed(dbc, "response kpi", types.JobResponseKpi, map[string]any{
		"message_id": msg.ID.String(),
	}, KpiStageDelay); err != nil {
		s.log.Error("Enqueue kpi stage failed", "message_id", msg.ID, "error", err)
	}
	s.enqueueFlagStage(dbc, msg.ID, msg.SenderID)
}

func (s *messageService) enqueueFlagStage(dbc dbctx.Context, messageID, userID uuid.UUID) {
	if _, err := s.scheduler.ScheduleDelayed(dbc, "response flag reconcile", types.JobFlagReconcile, map[string]any{
		"user_id": userID.String(),
	}, FlagStageDelay); err != nil {
		s.log.Error("Enqueue flag stage failed", "message_id", messageID, "error", err)
	}
}

// deliverAsync hands the message to the outbound channel off the request
// path and writes the delivery status back when the attempt finishes.
func (s *messageService) deliverAsync(msg *types.Message, toPhone string) {
	if s.wa == nil || toPhone == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		status := types.DeliverySent
		res, err := s.wa.SendText(ctx, toPhone, msg.Content)
		if err != nil {
			s.log.Warn("Outbound delivery failed", "message_id", msg.ID, "error", err)
			status = types.DeliveryFailed
		} else if res != nil && res.Status != "" {
			status = res.Status
		}
		if err := s.messages.UpdateDeliveryStatus(dbctx.Context{Ctx: ctx}, msg.ID, status); err != nil {
			s.log.Warn("Delivery status write failed", "message_id", msg.ID, "error", err)
		}
	}()
}
