package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/heliodesk/heliodesk-backend/internal/data/repos"
	"github.com/heliodesk/heliodesk-backend/internal/data/repos/testutil"
	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
	"github.com/heliodesk/heliodesk-backend/internal/sse"
)

type stubNotifier struct {
	notified []uuid.UUID
}

func (s *stubNotifier) NotifyAgent(userID uuid.UUID, event sse.Event, title string, body string) {
	s.notified = append(s.notified, userID)
}

func newEscalatorForTest(t *testing.T) (AlertEscalatorService, *stubNotifier, repos.AlertRepo, repos.UserRepo) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	messageRepo := repos.NewMessageRepo(db, log)
	userRepo := repos.NewUserRepo(db, log)
	alertRepo := repos.NewAlertRepo(db, log)
	notifier := &stubNotifier{}
	return NewAlertEscalatorService(log, messageRepo, userRepo, alertRepo, notifier), notifier, alertRepo, userRepo
}

func TestCheckAndAlertRaisesWhenUnanswered(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	escalator, notifier, alertRepo, userRepo := newEscalatorForTest(t)

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	customer := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "carol")
	agent := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "amir")
	ticket := testutil.SeedTicket(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.TicketOpen)

	msg := testutil.SeedMessage(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.DirectionIncoming, time.Now().UTC().Add(-time.Hour))
	testutil.AttachMessage(t, ctx, tx, msg.ID, ticket.ID)

	if err := escalator.CheckAndAlert(dbc, msg.ID, customer.ID, agent.ID, 30); err != nil {
		t.Fatalf("CheckAndAlert: %v", err)
	}

	alerts, err := alertRepo.ListByMessage(dbc, msg.ID)
	if err != nil || len(alerts) != 1 {
		t.Fatalf("alerts: len=%d err=%v", len(alerts), err)
	}
	a := alerts[0]
	if a.AgentID != agent.ID || a.Kind != types.AlertNoResponse {
		t.Fatalf("alert misattributed: %+v", a)
	}
	if a.TicketID == nil || *a.TicketID != ticket.ID {
		t.Fatalf("alert not attached to ticket")
	}
	if len(notifier.notified) != 1 || notifier.notified[0] != agent.ID {
		t.Fatalf("agent not notified")
	}

	u, _ := userRepo.GetByID(dbc, customer.ID)
	if !u.RequireResponse || u.LastMessageAt == nil {
		t.Fatalf("response flag not re-affirmed: %+v", u)
	}
}

func TestCheckAndAlertClearsWhenAnswered(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	escalator, notifier, alertRepo, userRepo := newEscalatorForTest(t)

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	customer := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "carol")
	agent := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "amir")
	ticket := testutil.SeedTicket(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.TicketOpen)

	now := time.Now().UTC()
	msg := testutil.SeedMessage(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.DirectionIncoming, now.Add(-time.Hour))
	testutil.AttachMessage(t, ctx, tx, msg.ID, ticket.ID)
	reply := testutil.SeedMessage(t, ctx, tx, tenant.ID, agent.ID, customer.ID, types.DirectionOutgoing, now.Add(-30*time.Minute))
	testutil.AttachMessage(t, ctx, tx, reply.ID, ticket.ID)

	if err := userRepo.UpdateFields(dbc, customer.ID, map[string]interface{}{"require_response": true}); err != nil {
		t.Fatalf("seed flag: %v", err)
	}

	if err := escalator.CheckAndAlert(dbc, msg.ID, customer.ID, agent.ID, 30); err != nil {
		t.Fatalf("CheckAndAlert: %v", err)
	}
	if alerts, _ := alertRepo.ListByMessage(dbc, msg.ID); len(alerts) != 0 {
		t.Fatalf("answered message raised an alert")
	}
	if len(notifier.notified) != 0 {
		t.Fatalf("answered message notified someone")
	}
	u, _ := userRepo.GetByID(dbc, customer.ID)
	if u.RequireResponse {
		t.Fatalf("response flag not cleared")
	}
}

func TestCheckAndAlertWithoutTicketUsesDirectLookup(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	escalator, _, alertRepo, _ := newEscalatorForTest(t)

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	customer := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "carol")
	agent := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "amir")

	now := time.Now().UTC()
	msg := testutil.SeedMessage(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.DirectionIncoming, now.Add(-time.Hour))
	// Later reply exists outside any ticket.
	testutil.SeedMessage(t, ctx, tx, tenant.ID, agent.ID, customer.ID, types.DirectionOutgoing, now.Add(-10*time.Minute))

	if err := escalator.CheckAndAlert(dbc, msg.ID, customer.ID, agent.ID, 30); err != nil {
		t.Fatalf("CheckAndAlert: %v", err)
	}
	if alerts, _ := alertRepo.ListByMessage(dbc, msg.ID); len(alerts) != 0 {
		t.Fatalf("direct reply should suppress the alert")
	}
}
