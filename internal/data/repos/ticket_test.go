package repos

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/heliodesk/heliodesk-backend/internal/data/repos/testutil"
	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
)

func TestTicketRepoPairLookups(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewTicketRepo(db, testutil.Logger(t))

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	customer := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "carol")
	agent := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "amir")
	other := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "bea")

	open := testutil.SeedTicket(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.TicketOpen)
	testutil.SeedTicket(t, ctx, tx, tenant.ID, customer.ID, other.ID, types.TicketOpen)

	got, err := repo.FindOpenByPair(dbc, customer.ID, agent.ID)
	if err != nil {
		t.Fatalf("FindOpenByPair: %v", err)
	}
	if got == nil || got.ID != open.ID {
		t.Fatalf("FindOpenByPair returned wrong ticket")
	}
	if got, _ := repo.FindOpenByPair(dbc, agent.ID, customer.ID); got != nil {
		t.Fatalf("pair lookup must be oriented (user, agent)")
	}

	// Latest closed wins on closed_at, not created_at.
	now := time.Now().UTC()
	older := testutil.SeedTicket(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.TicketClosed)
	newer := testutil.SeedTicket(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.TicketClosed)
	setClosedAt(t, tx, older.ID, now.Add(-2*time.Hour))
	setClosedAt(t, tx, newer.ID, now.Add(-time.Hour))

	closed, err := repo.FindLatestClosedByPair(dbc, customer.ID, agent.ID)
	if err != nil {
		t.Fatalf("FindLatestClosedByPair: %v", err)
	}
	if closed == nil || closed.ID != newer.ID {
		t.Fatalf("FindLatestClosedByPair did not return the most recent close")
	}
}

func TestTicketRepoClose(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewTicketRepo(db, testutil.Logger(t))

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	customer := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "carol")
	agent := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "amir")
	ticket := testutil.SeedTicket(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.TicketOpen)

	now := time.Now().UTC()
	if err := repo.Close(dbc, ticket.ID, types.CloseTypeAuto, now); err != nil {
		t.Fatalf("Close: %v", err)
	}
	got, _ := repo.GetByID(dbc, ticket.ID)
	if got.Status != types.TicketClosed || got.CloseType != types.CloseTypeAuto || got.ClosedAt == nil {
		t.Fatalf("close did not persist: %+v", got)
	}

	// Closing again is a no-op; closed tickets never transition.
	if err := repo.Close(dbc, ticket.ID, types.CloseTypeAgent, now.Add(time.Hour)); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	got, _ = repo.GetByID(dbc, ticket.ID)
	if got.CloseType != types.CloseTypeAuto {
		t.Fatalf("second close overwrote the first: %+v", got)
	}
}

func TestTicketRepoListOpenIdle(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewTicketRepo(db, testutil.Logger(t))

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	customer := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "carol")
	agent := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "amir")
	other := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "bea")

	now := time.Now().UTC()
	idle := testutil.SeedTicket(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.TicketOpen)
	stale := testutil.SeedMessage(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.DirectionIncoming, now.Add(-48*time.Hour))
	testutil.AttachMessage(t, ctx, tx, stale.ID, idle.ID)

	active := testutil.SeedTicket(t, ctx, tx, tenant.ID, customer.ID, other.ID, types.TicketOpen)
	recent := testutil.SeedMessage(t, ctx, tx, tenant.ID, customer.ID, other.ID, types.DirectionIncoming, now.Add(-time.Hour))
	testutil.AttachMessage(t, ctx, tx, recent.ID, active.ID)

	got, err := repo.ListOpenIdle(dbc, tenant.ID, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("ListOpenIdle: %v", err)
	}
	if len(got) != 1 || got[0].ID != idle.ID {
		t.Fatalf("ListOpenIdle returned %d tickets, want just the idle one", len(got))
	}
}

func setClosedAt(t *testing.T, tx *gorm.DB, ticketID interface{}, at time.Time) {
	t.Helper()
	if err := tx.Model(&types.Ticket{}).Where("id = ?", ticketID).Update("closed_at", at).Error; err != nil {
		t.Fatalf("set closed_at: %v", err)
	}
}
