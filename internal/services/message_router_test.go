package services

import (
	"context"
	"testing"
	"time"

	"github.com/heliodesk/heliodesk-backend/internal/data/repos"
	"github.com/heliodesk/heliodesk-backend/internal/data/repos/testutil"
	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
)

func newRouterForTest(t *testing.T, roster *Roster) (*messageRouterService, repos.UserRepo) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	userRepo := repos.NewUserRepo(db, log)
	tenantRepo := repos.NewTenantRepo(db, log)
	if roster == nil {
		roster, _ = LoadRoster(log, "")
	}
	svc := NewMessageRouterService(log, userRepo, tenantRepo, roster).(*messageRouterService)
	return svc, userRepo
}

func TestRouteIncomingSticky(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	router, userRepo := newRouterForTest(t, nil)

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	inbox := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleWhatsapp, "inbox")
	sticky := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "amir")
	customer := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "carol")
	if err := userRepo.UpdateFields(dbc, customer.ID, map[string]interface{}{"manager_id": sticky.ID}); err != nil {
		t.Fatalf("set sticky: %v", err)
	}

	msg := &types.Message{
		TenantID:    tenant.ID,
		SenderID:    customer.ID,
		RecipientID: inbox.ID,
		Direction:   types.DirectionIncoming,
		SentAt:      time.Now().UTC(),
	}
	if err := router.RouteIncoming(dbc, msg); err != nil {
		t.Fatalf("RouteIncoming: %v", err)
	}
	if msg.RecipientID != sticky.ID {
		t.Fatalf("message not routed to sticky agent")
	}
	if msg.WhatsappRouted || msg.OriginalRecipientID != nil {
		t.Fatalf("sticky routing must not set random-routing flags")
	}
}

func TestRouteIncomingRandomFallback(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	router, userRepo := newRouterForTest(t, nil)
	router.pick = func(n int) int { return 0 }

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	inbox := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleWhatsapp, "inbox")
	agent := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "amir")
	customer := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "carol")

	msg := &types.Message{
		TenantID:    tenant.ID,
		SenderID:    customer.ID,
		RecipientID: inbox.ID,
		Direction:   types.DirectionIncoming,
		SentAt:      time.Now().UTC(),
	}
	if err := router.RouteIncoming(dbc, msg); err != nil {
		t.Fatalf("RouteIncoming: %v", err)
	}
	if msg.RecipientID != agent.ID {
		t.Fatalf("message not routed to the eligible agent")
	}
	if !msg.WhatsappRouted || msg.OriginalRecipientID == nil || *msg.OriginalRecipientID != inbox.ID {
		t.Fatalf("random routing flags not set: %+v", msg)
	}

	// The pick becomes the customer's sticky agent for next time.
	u, _ := userRepo.GetByID(dbc, customer.ID)
	if u.ManagerID == nil || *u.ManagerID != agent.ID {
		t.Fatalf("sticky agent not persisted")
	}
}

func TestRouteIncomingNoEligibleAgents(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	router, _ := newRouterForTest(t, nil)

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	inbox := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleWhatsapp, "inbox")
	customer := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "carol")

	msg := &types.Message{
		TenantID:    tenant.ID,
		SenderID:    customer.ID,
		RecipientID: inbox.ID,
		Direction:   types.DirectionIncoming,
		SentAt:      time.Now().UTC(),
	}
	if err := router.RouteIncoming(dbc, msg); err != nil {
		t.Fatalf("RouteIncoming: %v", err)
	}
	if msg.RecipientID != inbox.ID || msg.WhatsappRouted {
		t.Fatalf("empty agent pool must leave the message on the shared inbox")
	}
}

func TestRouteIncomingRosterFilter(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	roster, err := ParseRoster([]byte("tenants:\n  - tenant: acme\n    agents: [bea]\n"))
	if err != nil {
		t.Fatalf("ParseRoster: %v", err)
	}
	router, _ := newRouterForTest(t, roster)
	router.pick = func(n int) int { return 0 }

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	inbox := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleWhatsapp, "inbox")
	testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "amir")
	eligible := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "bea")
	customer := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "carol")

	msg := &types.Message{
		TenantID:    tenant.ID,
		SenderID:    customer.ID,
		RecipientID: inbox.ID,
		Direction:   types.DirectionIncoming,
		SentAt:      time.Now().UTC(),
	}
	if err := router.RouteIncoming(dbc, msg); err != nil {
		t.Fatalf("RouteIncoming: %v", err)
	}
	if msg.RecipientID != eligible.ID {
		t.Fatalf("roster filter ignored; routed to %s", msg.RecipientID)
	}
}

func TestRouteIncomingDirectMessageUntouched(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	router, _ := newRouterForTest(t, nil)

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	agent := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "amir")
	customer := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "carol")

	msg := &types.Message{
		TenantID:    tenant.ID,
		SenderID:    customer.ID,
		RecipientID: agent.ID,
		Direction:   types.DirectionIncoming,
		SentAt:      time.Now().UTC(),
	}
	if err := router.RouteIncoming(dbc, msg); err != nil {
		t.Fatalf("RouteIncoming: %v", err)
	}
	if msg.RecipientID != agent.ID || msg.WhatsappRouted {
		t.Fatalf("direct message must not be rerouted")
	}
}

func TestResolveStickyAgentCycleGuard(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	router, userRepo := newRouterForTest(t, nil)

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	a := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "a")
	b := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "b")
	if err := userRepo.UpdateFields(dbc, a.ID, map[string]interface{}{"manager_id": b.ID}); err != nil {
		t.Fatalf("link a->b: %v", err)
	}
	if err := userRepo.UpdateFields(dbc, b.ID, map[string]interface{}{"manager_id": a.ID}); err != nil {
		t.Fatalf("link b->a: %v", err)
	}

	sender, _ := userRepo.GetByID(dbc, a.ID)
	sticky, err := router.resolveStickyAgent(dbc, sender)
	if err != nil {
		t.Fatalf("resolveStickyAgent: %v", err)
	}
	if sticky != nil {
		t.Fatalf("cycle must resolve to no sticky agent")
	}
}
