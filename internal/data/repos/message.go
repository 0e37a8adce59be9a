package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
)

type MessageRepo interface {
	Create(dbc dbctx.Context, msg *types.Message) (*types.Message, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Message, error)
	AttachTicket(dbc dbctx.Context, messageID uuid.UUID, ticketID uuid.UUID) error
	MarkProcessed(dbc dbctx.Context, id uuid.UUID) error
	UpdateDeliveryStatus(dbc dbctx.Context, id uuid.UUID, status string) error
	// LastForUser returns the user's chronologically last message across all
	// conversations, as sender or recipient. Prospect messages are invisible
	// to the flag pipeline and are skipped.
	LastForUser(dbc dbctx.Context, userID uuid.UUID) (*types.Message, error)
	LastIncomingForTicket(dbc dbctx.Context, ticketID uuid.UUID) (*types.Message, error)
	CountOutgoingForTicketBetween(dbc dbctx.Context, ticketID uuid.UUID, after, before time.Time) (int64, error)
	ExistsOutgoingForTicketAfter(dbc dbctx.Context, ticketID uuid.UUID, after time.Time) (bool, error)
	// ExistsOutgoingBetweenAfter reports whether fromID sent toID an outgoing
	// message later than after, in any conversation.
	ExistsOutgoingBetweenAfter(dbc dbctx.Context, fromID, toID uuid.UUID, after time.Time) (bool, error)
	LastMessageForTicket(dbc dbctx.Context, ticketID uuid.UUID) (*types.Message, error)
	ListByTicket(dbc dbctx.Context, ticketID uuid.UUID, limit int) ([]*types.Message, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{
		db:  db,
		log: baseLog.With("repo", "MessageRepo"),
	}
}

func (r *messageRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *messageRepo) Create(dbc dbctx.Context, msg *types.Message) (*types.Message, error) {
	if err := r.handle(dbc).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *messageRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Message, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var msg types.Message
	err := r.handle(dbc).
		Where("id = ?", id).
		Limit(1).
		Find(&msg).Error
	if err != nil {
		return nil, err
	}
	if msg.ID == uuid.Nil {
		return nil, nil
	}
	return &msg, nil
}

func (r *messageRepo) AttachTicket(dbc dbctx.Context, messageID uuid.UUID, ticketID uuid.UUID) error {
	return r.handle(dbc).
		Model(&types.Message{}).
		Where("id = ?", messageID).
		Update("ticket_id", ticketID).Error
}

func (r *messageRepo) MarkProcessed(dbc dbctx.Context, id uuid.UUID) error {
	return r.handle(dbc).
		Model(&types.Message{}).
		Where("id = ?", id).
		Update("processed", true).Error
}

func (r *messageRepo) UpdateDeliveryStatus(dbc dbctx.Context, id uuid.UUID, status string) error {
	return r.handle(dbc).
		Model(&types.Message{}).
		Where("id = ?", id).
		Update("delivery_status", status).Error
}

func (r *messageRepo) LastForUser(dbc dbctx.Context, userID uuid.UUID) (*types.Message, error) {
	var msg types.Message
	err := r.handle(dbc).
		Where("(sender_id = ? OR recipient_id = ?) AND is_prospect = FALSE", userID, userID).
		Order("sent_at DESC").
		Limit(1).
		Find(&msg).Error
	if err != nil {
		return nil, err
	}
	if msg.ID == uuid.Nil {
		return nil, nil
	}
	return &msg, nil
}

func (r *messageRepo) LastIncomingForTicket(dbc dbctx.Context, ticketID uuid.UUID) (*types.Message, error) {
	var msg types.Message
	err := r.handle(dbc).
		Where("ticket_id = ? AND direction = ?", ticketID, types.DirectionIncoming).
		Order("sent_at DESC").
		Limit(1).
		Find(&msg).Error
	if err != nil {
		return nil, err
	}
	if msg.ID == uuid.Nil {
		return nil, nil
	}
	return &msg, nil
}

func (r *messageRepo) CountOutgoingForTicketBetween(dbc dbctx.Context, ticketID uuid.UUID, after, before time.Time) (int64, error) {
	var n int64
	err := r.handle(dbc).
		Model(&types.Message{}).
		Where("ticket_id = ? AND direction = ? AND sent_at > ? AND sent_at < ?",
			ticketID, types.DirectionOutgoing, after, before).
		Count(&n).Error
	return n, err
}

func (r *messageRepo) ExistsOutgoingForTicketAfter(dbc dbctx.Context, ticketID uuid.UUID, after time.Time) (bool, error) {
	var n int64
	err := r.handle(dbc).
		Model(&types.Message{}).
		Where("ticket_id = ? AND direction = ? AND sent_at > ?",
			ticketID, types.DirectionOutgoing, after).
		Count(&n).Error
	return n > 0, err
}

func (r *messageRepo) ExistsOutgoingBetweenAfter(dbc dbctx.Context, fromID, toID uuid.UUID, after time.Time) (bool, error) {
	var n int64
	err := r.handle(dbc).
		Model(&types.Message{}).
		Where("sender_id = ? AND recipient_id = ? AND direction = ? AND sent_at > ?",
			fromID, toID, types.DirectionOutgoing, after).
		Count(&n).Error
	return n > 0, err
}

func (r *messageRepo) LastMessageForTicket(dbc dbctx.Context, ticketID uuid.UUID) (*types.Message, error) {
	var msg types.Message
	err := r.handle(dbc).
		Where("ticket_id = ?", ticketID).
		Order("sent_at DESC").
		Limit(1).
		Find(&msg).Error
	if err != nil {
		return nil, err
	}
	if msg.ID == uuid.Nil {
		return nil, nil
	}
	return &msg, nil
}

func (r *messageRepo) ListByTicket(dbc dbctx.Context, ticketID uuid.UUID, limit int) ([]*types.Message, error) {
	var out []*types.Message
	q := r.handle(dbc).
		Where("ticket_id = ?", ticketID).
		Order("sent_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
