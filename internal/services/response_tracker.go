package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/heliodesk/heliodesk-backend/internal/data/repos"
	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
)

// MaxResponseMinutes caps first-response time at 48 hours of working
// minutes so ancient threads do not skew the averages.
const MaxResponseMinutes = 2880

// ResponseTrackerService maintains the require-response flag and the
// response-latency KPI stream. CreateResponseKpi runs 10s after an incoming
// message; ReconcileFlag runs 20s after any message and hourly in bulk, and
// is the authoritative self-healing pass. RecordFirstResponse runs inline
// when an outgoing message is created.
type ResponseTrackerService interface {
	CreateResponseKpi(dbc dbctx.Context, messageID uuid.UUID) error
	ReconcileFlag(dbc dbctx.Context, userID uuid.UUID) (bool, error)
	ReconcileAllFlags(dbc dbctx.Context, tenantID uuid.UUID) (int, error)
	RecordFirstResponse(dbc dbctx.Context, msg *types.Message) error
}

type responseTrackerService struct {
	log       *logger.Logger
	messages  repos.MessageRepo
	users     repos.UserRepo
	kpis      repos.KpiRepo
	settings  TenantSettingsService
	scheduler JobScheduler
}

func NewResponseTrackerService(baseLog *logger.Logger, messages repos.MessageRepo, users repos.UserRepo, kpis repos.KpiRepo, settings TenantSettingsService, scheduler JobScheduler) ResponseTrackerService {
	return &responseTrackerService{
		log:       baseLog.With("service", "ResponseTrackerService"),
		messages:  messages,
		users:     users,
		kpis:      kpis,
		settings:  settings,
		scheduler: scheduler,
	}
}

func (s *responseTrackerService) CreateResponseKpi(dbc dbctx.Context, messageID uuid.UUID) error {
	msg, err := s.messages.GetByID(dbc, messageID)
	if err != nil {
		return fmt.Errorf("load message: %w", err)
	}
	if msg == nil {
		s.log.Warn("Message gone before response kpi", "message_id", messageID)
		return nil
	}
	if msg.Direction != types.DirectionIncoming || msg.IsProspect {
		return nil
	}

	data, _ := json.Marshal(map[string]string{"message_id": msg.ID.String()})
	if _, err := s.kpis.Create(dbc, &types.Kpi{
		TenantID:  msg.TenantID,
		Type:      types.KpiRequireResponse,
		Value:     1,
		UserID:    msg.RecipientID,
		TicketID:  msg.TicketID,
		Data:      datatypes.JSON(data),
		CreatedAt: msg.SentAt,
	}); err != nil {
		return fmt.Errorf("record require-response kpi: %w", err)
	}

	if err := s.users.UpdateFields(dbc, msg.SenderID, map[string]interface{}{
		"require_response": true,
		"last_message_at":  msg.SentAt,
	}); err != nil {
		return fmt.Errorf("flag sender: %w", err)
	}

	delay := s.settings.GetAlertDelayMinutes(dbc, msg.TenantID)
	_, err = s.scheduler.ScheduleDelayed(dbc, "response alert check", types.JobResponseAlert, map[string]any{
		"message_id":    msg.ID.String(),
		"sender_id":     msg.SenderID.String(),
		"recipient_id":  msg.RecipientID.String(),
		"delay_minutes": delay,
	}, time.Duration(delay)*time.Minute)
	if err != nil {
		return fmt.Errorf("schedule alert check: %w", err)
	}
	return nil
}

// ReconcileFlag recomputes require_response for one user from their actual
// message history. Returns whether a write happened.
func (s *responseTrackerService) ReconcileFlag(dbc dbctx.Context, userID uuid.UUID) (bool, error) {
	user, err := s.users.GetByID(dbc, userID)
	if err != nil {
		return false, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		s.log.Warn("User gone before flag reconcile", "user_id", userID)
		return false, nil
	}

	last, err := s.messages.LastForUser(dbc, userID)
	if err != nil {
		return false, fmt.Errorf("load last message: %w", err)
	}

	want := false
	if last != nil && last.Direction == types.DirectionIncoming {
		if user.Role == types.RoleStandard {
			want = last.SenderID == userID
		} else {
			want = last.RecipientID == userID
		}
	}
	if want == user.RequireResponse {
		return false, nil
	}

	updates := map[string]interface{}{"require_response": want}
	if want && last != nil {
		updates["last_message_at"] = last.SentAt
	}
	if err := s.users.UpdateFields(dbc, userID, updates); err != nil {
		return false, fmt.Errorf("update flag: %w", err)
	}
	return true, nil
}

// ReconcileAllFlags is the hourly bulk pass over every standard user of a
// tenant. Returns how many flags were corrected.
func (s *responseTrackerService) ReconcileAllFlags(dbc dbctx.Context, tenantID uuid.UUID) (int, error) {
	users, err := s.users.ListStandard(dbc, tenantID)
	if err != nil {
		return 0, fmt.Errorf("list standard users: %w", err)
	}
	changed := 0
	for _, u := range users {
		wrote, err := s.ReconcileFlag(dbc, u.ID)
		if err != nil {
			s.log.Error("Flag reconcile failed", "user_id", u.ID, "error", err)
			continue
		}
		if wrote {
			changed++
		}
	}
	return changed, nil
}

// RecordFirstResponse emits the first-response-time KPI pair when an
// outgoing message is the first reply after the ticket's latest incoming
// message. Later replies to the same incoming message are not credited.
func (s *responseTrackerService) RecordFirstResponse(dbc dbctx.Context, msg *types.Message) error {
	if msg.Direction != types.DirectionOutgoing || msg.TicketID == nil || msg.IsProspect {
		return nil
	}

	lastIn, err := s.messages.LastIncomingForTicket(dbc, *msg.TicketID)
	if err != nil {
		return fmt.Errorf("load last incoming: %w", err)
	}
	if lastIn == nil || !lastIn.SentAt.Before(msg.SentAt) {
		return nil
	}

	earlier, err := s.messages.CountOutgoingForTicketBetween(dbc, *msg.TicketID, lastIn.SentAt, msg.SentAt)
	if err != nil {
		return fmt.Errorf("count earlier replies: %w", err)
	}
	if earlier > 0 {
		return nil
	}
	// Replies sharing one sent_at both pass the count above; the recorded KPI
	// is the tie-break so the incoming message is credited once.
	credited, err := s.kpis.ExistsForTicketSince(dbc, *msg.TicketID, types.KpiFirstResponseTime, lastIn.SentAt)
	if err != nil {
		return fmt.Errorf("check existing response kpi: %w", err)
	}
	if credited {
		return nil
	}

	start, end := s.settings.GetWorkday(dbc, msg.TenantID)
	minutes := WorkingMinutesBetween(lastIn.SentAt, msg.SentAt, start, end)
	if minutes > MaxResponseMinutes {
		minutes = MaxResponseMinutes
	}

	data, _ := json.Marshal(map[string]string{
		"message_id":  msg.ID.String(),
		"incoming_id": lastIn.ID.String(),
	})
	if _, err := s.kpis.Create(dbc, &types.Kpi{
		TenantID:  msg.TenantID,
		Type:      types.KpiFirstResponseTime,
		Value:     float64(minutes),
		UserID:    msg.SenderID,
		TicketID:  msg.TicketID,
		Data:      datatypes.JSON(data),
		CreatedAt: msg.SentAt,
	}); err != nil {
		return fmt.Errorf("record response-time kpi: %w", err)
	}
	if _, err := s.kpis.Create(dbc, &types.Kpi{
		TenantID:  msg.TenantID,
		Type:      types.KpiRespondedToClient,
		Value:     1,
		UserID:    msg.SenderID,
		TicketID:  msg.TicketID,
		CreatedAt: msg.SentAt,
	}); err != nil {
		return fmt.Errorf("record responded kpi: %w", err)
	}
	return nil
}

// WorkingMinutesBetween counts the minutes of [from, to) that fall inside
// the [startHour, endHour) window of each calendar day. Weekends still
// count; the window only trims overnight gaps.
func WorkingMinutesBetween(from, to time.Time, startHour, endHour int) int {
	if !from.Before(to) || startHour >= endHour {
		return 0
	}
	total := 0
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for day.Before(to) {
		winStart := day.Add(time.Duration(startHour) * time.Hour)
		winEnd := day.Add(time.Duration(endHour) * time.Hour)
		lo, hi := winStart, winEnd
		if from.After(lo) {
			lo = from
		}
		if to.Before(hi) {
			hi = to
		}
		if lo.Before(hi) {
			total += int(hi.Sub(lo) / time.Minute)
		}
		day = day.AddDate(0, 0, 1)
	}
	return total
}
