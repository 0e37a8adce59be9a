package services

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/heliodesk/heliodesk-backend/internal/data/repos"
	"github.com/heliodesk/heliodesk-backend/internal/data/repos/testutil"
	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
)

func newAssignerForTest(t *testing.T) (TicketAssignerService, repos.TicketRepo, repos.MessageRepo, repos.KpiRepo) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	messageRepo := repos.NewMessageRepo(db, log)
	ticketRepo := repos.NewTicketRepo(db, log)
	userRepo := repos.NewUserRepo(db, log)
	kpiRepo := repos.NewKpiRepo(db, log)
	return NewTicketAssignerService(log, messageRepo, ticketRepo, userRepo, kpiRepo), ticketRepo, messageRepo, kpiRepo
}

func TestAssignCreatesTicketAndKpi(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	assigner, ticketRepo, _, kpiRepo := newAssignerForTest(t)

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	customer := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "carol")
	agent := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "amir")

	msg := testutil.SeedMessage(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.DirectionIncoming, time.Now().UTC())
	if err := assigner.Assign(dbc, msg); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if msg.TicketID == nil {
		t.Fatalf("incoming message with no prior ticket must open one")
	}

	ticket, err := ticketRepo.GetByID(dbc, *msg.TicketID)
	if err != nil || ticket == nil {
		t.Fatalf("created ticket not found: %v", err)
	}
	if ticket.Status != types.TicketOpen || ticket.UserID != customer.ID || ticket.AgentID != agent.ID {
		t.Fatalf("ticket fields wrong: %+v", ticket)
	}

	kpis, err := kpiRepo.ListByTicket(dbc, ticket.ID)
	if err != nil {
		t.Fatalf("ListByTicket: %v", err)
	}
	if len(kpis) != 1 || kpis[0].Type != types.KpiNewTicket || kpis[0].UserID != agent.ID {
		t.Fatalf("new-ticket kpi missing or misattributed: %+v", kpis)
	}
	if !kpis[0].CreatedAt.Equal(msg.SentAt) {
		t.Fatalf("kpi timestamp must copy the message sent_at")
	}
}

func TestAssignAtMostOneOpenTicketPerPair(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	assigner, ticketRepo, _, _ := newAssignerForTest(t)

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	customer := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "carol")
	agent := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "amir")

	now := time.Now().UTC()
	for i := 0; i < 4; i++ {
		direction := types.DirectionIncoming
		sender, recipient := customer.ID, agent.ID
		if i%2 == 1 {
			direction = types.DirectionOutgoing
			sender, recipient = agent.ID, customer.ID
		}
		msg := testutil.SeedMessage(t, ctx, tx, tenant.ID, sender, recipient, direction, now.Add(time.Duration(i)*time.Minute))
		if err := assigner.Assign(dbc, msg); err != nil {
			t.Fatalf("Assign #%d: %v", i, err)
		}
	}

	n, err := ticketRepo.CountOpenByPair(dbc, customer.ID, agent.ID)
	if err != nil {
		t.Fatalf("CountOpenByPair: %v", err)
	}
	if n != 1 {
		t.Fatalf("open tickets for pair = %d, want 1", n)
	}
}

func TestAssignOutgoingNeverCreates(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	assigner, ticketRepo, _, _ := newAssignerForTest(t)

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	customer := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "carol")
	agent := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "amir")

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		msg := testutil.SeedMessage(t, ctx, tx, tenant.ID, agent.ID, customer.ID, types.DirectionOutgoing, now.Add(time.Duration(i)*time.Minute))
		if err := assigner.Assign(dbc, msg); err != nil {
			t.Fatalf("Assign: %v", err)
		}
		if msg.TicketID != nil {
			t.Fatalf("outgoing message created a ticket")
		}
	}
	n, _ := ticketRepo.CountOpenByPair(dbc, customer.ID, agent.ID)
	if n != 0 {
		t.Fatalf("tickets exist after outgoing-only sequence")
	}
}

func TestAssignOutgoingAttachesToLatestClosed(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	assigner, _, _, _ := newAssignerForTest(t)

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	customer := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "carol")
	agent := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "amir")
	closed := testutil.SeedTicket(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.TicketClosed)

	msg := testutil.SeedMessage(t, ctx, tx, tenant.ID, agent.ID, customer.ID, types.DirectionOutgoing, time.Now().UTC())
	if err := assigner.Assign(dbc, msg); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if msg.TicketID == nil || *msg.TicketID != closed.ID {
		t.Fatalf("trailing reply must attach to the latest closed ticket")
	}
}

func TestAssignDropsReorderingArtifact(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	assigner, ticketRepo, _, _ := newAssignerForTest(t)

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	customer := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "carol")
	agent := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "amir")

	now := time.Now().UTC()
	closed := testutil.SeedTicket(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.TicketClosed)
	lastIn := testutil.SeedMessage(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.DirectionIncoming, now.Add(-time.Hour))
	testutil.AttachMessage(t, ctx, tx, lastIn.ID, closed.ID)

	// Arrives now but was sent before the closed conversation's last
	// incoming; it belongs to a superseded window and stays unassigned.
	stale := testutil.SeedMessage(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.DirectionIncoming, now.Add(-2*time.Hour))
	if err := assigner.Assign(dbc, stale); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if stale.TicketID != nil {
		t.Fatalf("stale incoming message must stay unassigned")
	}
	n, _ := ticketRepo.CountOpenByPair(dbc, customer.ID, agent.ID)
	if n != 0 {
		t.Fatalf("stale message opened a ticket")
	}
}

func TestAssignOrderingTolerance(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	assigner, ticketRepo, _, _ := newAssignerForTest(t)

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	customer := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "carol")
	agent := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "amir")

	now := time.Now().UTC()
	// Delivered out of order: B (sent T+1) processed before A (sent T).
	msgB := testutil.SeedMessage(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.DirectionIncoming, now.Add(time.Second))
	msgA := testutil.SeedMessage(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.DirectionIncoming, now)

	if err := assigner.Assign(dbc, msgB); err != nil {
		t.Fatalf("Assign B: %v", err)
	}
	if err := assigner.Assign(dbc, msgA); err != nil {
		t.Fatalf("Assign A: %v", err)
	}

	if msgA.TicketID == nil || msgB.TicketID == nil {
		t.Fatalf("both messages must end up assigned")
	}
	if *msgA.TicketID != *msgB.TicketID {
		t.Fatalf("out-of-order siblings landed on different tickets")
	}
	n, _ := ticketRepo.CountOpenByPair(dbc, customer.ID, agent.ID)
	if n != 1 {
		t.Fatalf("open tickets = %d, want 1", n)
	}
}

func TestReconcileNeverCreates(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	assigner, ticketRepo, messageRepo, _ := newAssignerForTest(t)

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	customer := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "carol")
	agent := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "amir")

	msg := testutil.SeedMessage(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.DirectionIncoming, time.Now().UTC())
	if err := assigner.Reconcile(dbc, msg.ID); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	got, _ := messageRepo.GetByID(dbc, msg.ID)
	if got.TicketID != nil {
		t.Fatalf("reconcile must not create tickets")
	}
	n, _ := ticketRepo.CountOpenByPair(dbc, customer.ID, agent.ID)
	if n != 0 {
		t.Fatalf("reconcile created a ticket")
	}

	// Once a sibling opened the ticket, reconcile attaches.
	open := testutil.SeedTicket(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.TicketOpen)
	if err := assigner.Reconcile(dbc, msg.ID); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	got, _ = messageRepo.GetByID(dbc, msg.ID)
	if got.TicketID == nil || *got.TicketID != open.ID {
		t.Fatalf("reconcile did not attach to the new open ticket")
	}
}

func TestTruncateSubject(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"short passes through", "need help with my order", "need help with my order"},
		{"ascii cut at limit", strings.Repeat("a", 200), strings.Repeat("a", 120)},
		{"rune not split", strings.Repeat("a", 119) + "éxx", strings.Repeat("a", 119)},
		{"multibyte content", strings.Repeat("ü", 100), strings.Repeat("ü", 60)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := truncateSubject(tc.content, 120)
			if got != tc.want {
				t.Fatalf("truncateSubject = %q, want %q", got, tc.want)
			}
			if len(got) > 120 {
				t.Fatalf("subject is %d bytes", len(got))
			}
			if !utf8.ValidString(got) {
				t.Fatalf("subject is not valid utf-8: %q", got)
			}
		})
	}
}
