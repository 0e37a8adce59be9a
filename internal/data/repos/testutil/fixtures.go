package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"gorm.io/gorm"
)

func SeedTenant(tb testing.TB, ctx context.Context, tx *gorm.DB, key string) *types.Tenant {
	tb.Helper()
	t := &types.Tenant{
		ID:                uuid.New(),
		Key:               key,
		Name:              key,
		AlertDelayMinutes: 30,
		AutoCloseHours:    24,
		WorkdayStartHour:  9,
		WorkdayEndHour:    18,
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed tenant: %v", err)
	}
	return t
}

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, role, name string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:       uuid.New(),
		TenantID: tenantID,
		Role:     role,
		Name:     name,
		Phone:    "+1" + uuid.NewString()[:8],
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedTicket(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID, userID, agentID uuid.UUID, status string) *types.Ticket {
	tb.Helper()
	tk := &types.Ticket{
		ID:       uuid.New(),
		TenantID: tenantID,
		UserID:   userID,
		AgentID:  agentID,
		Status:   status,
		Subject:  "ticket",
	}
	if status == types.TicketClosed {
		now := time.Now().UTC()
		tk.CloseType = types.CloseTypeAgent
		tk.ClosedAt = &now
	}
	if err := tx.WithContext(ctx).Create(tk).Error; err != nil {
		tb.Fatalf("seed ticket: %v", err)
	}
	return tk
}

func SeedMessage(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID, senderID, recipientID uuid.UUID, direction string, sentAt time.Time) *types.Message {
	tb.Helper()
	m := &types.Message{
		ID:             uuid.New(),
		TenantID:       tenantID,
		SenderID:       senderID,
		RecipientID:    recipientID,
		Direction:      direction,
		Content:        "hello",
		SentAt:         sentAt,
		DeliveryStatus: types.DeliveryDelivered,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	return m
}

func AttachMessage(tb testing.TB, ctx context.Context, tx *gorm.DB, messageID, ticketID uuid.UUID) {
	tb.Helper()
	if err := tx.WithContext(ctx).Model(&types.Message{}).
		Where("id = ?", messageID).
		Update("ticket_id", ticketID).Error; err != nil {
		tb.Fatalf("attach message: %v", err)
	}
}
