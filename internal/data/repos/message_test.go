package repos

import (
	"context"
	"testing"
	"time"

	"github.com/heliodesk/heliodesk-backend/internal/data/repos/testutil"
	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
)

func TestMessageRepoLastForUser(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewMessageRepo(db, testutil.Logger(t))

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	customer := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "carol")
	agent := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "amir")

	now := time.Now().UTC()
	testutil.SeedMessage(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.DirectionIncoming, now.Add(-2*time.Hour))
	reply := testutil.SeedMessage(t, ctx, tx, tenant.ID, agent.ID, customer.ID, types.DirectionOutgoing, now.Add(-time.Hour))

	// Last message must be found whether the user was sender or recipient,
	// ordered by sent_at rather than insertion order.
	got, err := repo.LastForUser(dbc, customer.ID)
	if err != nil {
		t.Fatalf("LastForUser(customer): %v", err)
	}
	if got == nil || got.ID != reply.ID {
		t.Fatalf("LastForUser(customer) returned wrong message")
	}
	got, err = repo.LastForUser(dbc, agent.ID)
	if err != nil {
		t.Fatalf("LastForUser(agent): %v", err)
	}
	if got == nil || got.ID != reply.ID {
		t.Fatalf("LastForUser(agent) returned wrong message")
	}

	// A backdated insert must not become the last message.
	testutil.SeedMessage(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.DirectionIncoming, now.Add(-3*time.Hour))
	got, _ = repo.LastForUser(dbc, customer.ID)
	if got == nil || got.ID != reply.ID {
		t.Fatalf("backdated message shadowed the true last message")
	}

	// Prospect messages are outside the pipeline and must not shadow the last
	// message either.
	prospect := testutil.SeedMessage(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.DirectionIncoming, now)
	if err := tx.Model(&types.Message{}).Where("id = ?", prospect.ID).Update("is_prospect", true).Error; err != nil {
		t.Fatalf("mark prospect: %v", err)
	}
	got, _ = repo.LastForUser(dbc, customer.ID)
	if got == nil || got.ID != reply.ID {
		t.Fatalf("prospect message visible to LastForUser")
	}
}

func TestMessageRepoTicketQueries(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewMessageRepo(db, testutil.Logger(t))

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	customer := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "carol")
	agent := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "amir")
	ticket := testutil.SeedTicket(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.TicketOpen)

	now := time.Now().UTC()
	in1 := testutil.SeedMessage(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.DirectionIncoming, now.Add(-3*time.Hour))
	in2 := testutil.SeedMessage(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.DirectionIncoming, now.Add(-2*time.Hour))
	out1 := testutil.SeedMessage(t, ctx, tx, tenant.ID, agent.ID, customer.ID, types.DirectionOutgoing, now.Add(-time.Hour))
	for _, m := range []*types.Message{in1, in2, out1} {
		testutil.AttachMessage(t, ctx, tx, m.ID, ticket.ID)
	}

	lastIn, err := repo.LastIncomingForTicket(dbc, ticket.ID)
	if err != nil {
		t.Fatalf("LastIncomingForTicket: %v", err)
	}
	if lastIn == nil || lastIn.ID != in2.ID {
		t.Fatalf("LastIncomingForTicket returned wrong message")
	}

	n, err := repo.CountOutgoingForTicketBetween(dbc, ticket.ID, in2.SentAt, out1.SentAt)
	if err != nil {
		t.Fatalf("CountOutgoingForTicketBetween: %v", err)
	}
	if n != 0 {
		t.Fatalf("count between incoming and first reply = %d, want 0", n)
	}

	ok, err := repo.ExistsOutgoingForTicketAfter(dbc, ticket.ID, in2.SentAt)
	if err != nil || !ok {
		t.Fatalf("ExistsOutgoingForTicketAfter: ok=%v err=%v", ok, err)
	}
	ok, err = repo.ExistsOutgoingForTicketAfter(dbc, ticket.ID, out1.SentAt)
	if err != nil || ok {
		t.Fatalf("ExistsOutgoingForTicketAfter past the reply: ok=%v err=%v", ok, err)
	}

	ok, err = repo.ExistsOutgoingBetweenAfter(dbc, agent.ID, customer.ID, in2.SentAt)
	if err != nil || !ok {
		t.Fatalf("ExistsOutgoingBetweenAfter: ok=%v err=%v", ok, err)
	}
	ok, err = repo.ExistsOutgoingBetweenAfter(dbc, customer.ID, agent.ID, in2.SentAt)
	if err != nil || ok {
		t.Fatalf("ExistsOutgoingBetweenAfter is directional; reverse must be false")
	}

	msgs, err := repo.ListByTicket(dbc, ticket.ID, 0)
	if err != nil {
		t.Fatalf("ListByTicket: %v", err)
	}
	if len(msgs) != 3 || msgs[0].ID != in1.ID || msgs[2].ID != out1.ID {
		t.Fatalf("ListByTicket order wrong")
	}
}

func TestMessageRepoMutations(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewMessageRepo(db, testutil.Logger(t))

	tenant := testutil.SeedTenant(t, ctx, tx, "acme")
	customer := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleStandard, "carol")
	agent := testutil.SeedUser(t, ctx, tx, tenant.ID, types.RoleAgent, "amir")
	ticket := testutil.SeedTicket(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.TicketOpen)
	msg := testutil.SeedMessage(t, ctx, tx, tenant.ID, customer.ID, agent.ID, types.DirectionIncoming, time.Now().UTC())

	if err := repo.AttachTicket(dbc, msg.ID, ticket.ID); err != nil {
		t.Fatalf("AttachTicket: %v", err)
	}
	if err := repo.MarkProcessed(dbc, msg.ID); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	if err := repo.UpdateDeliveryStatus(dbc, msg.ID, types.DeliverySent); err != nil {
		t.Fatalf("UpdateDeliveryStatus: %v", err)
	}

	got, err := repo.GetByID(dbc, msg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.TicketID == nil || *got.TicketID != ticket.ID {
		t.Fatalf("ticket not attached")
	}
	if !got.Processed || got.DeliveryStatus != types.DeliverySent {
		t.Fatalf("mutations not persisted: %+v", got)
	}
}
