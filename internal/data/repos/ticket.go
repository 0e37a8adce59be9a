package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
)

type TicketRepo interface {
	Create(dbc dbctx.Context, t *types.Ticket) (*types.Ticket, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Ticket, error)
	FindOpenByPair(dbc dbctx.Context, userID, agentID uuid.UUID) (*types.Ticket, error)
	FindLatestClosedByPair(dbc dbctx.Context, userID, agentID uuid.UUID) (*types.Ticket, error)
	Close(dbc dbctx.Context, id uuid.UUID, closeType string, at time.Time) error
	// ListOpenIdle returns open tenant tickets with no message at or after
	// cutoff. Feeds the auto-close sweep.
	ListOpenIdle(dbc dbctx.Context, tenantID uuid.UUID, cutoff time.Time) ([]*types.Ticket, error)
	CountOpenByPair(dbc dbctx.Context, userID, agentID uuid.UUID) (int64, error)
}

type ticketRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTicketRepo(db *gorm.DB, baseLog *logger.Logger) TicketRepo {
	return &ticketRepo{
		db:  db,
		log: baseLog.With("repo", "TicketRepo"),
	}
}

func (r *ticketRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *ticketRepo) Create(dbc dbctx.Context, t *types.Ticket) (*types.Ticket, error) {
	if err := r.handle(dbc).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (r *ticketRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Ticket, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var t types.Ticket
	err := r.handle(dbc).
		Where("id = ?", id).
		Limit(1).
		Find(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == uuid.Nil {
		return nil, nil
	}
	return &t, nil
}

func (r *ticketRepo) FindOpenByPair(dbc dbctx.Context, userID, agentID uuid.UUID) (*types.Ticket, error) {
	var t types.Ticket
	err := r.handle(dbc).
		Where("user_id = ? AND agent_id = ? AND status = ?", userID, agentID, types.TicketOpen).
		Order("created_at DESC").
		Limit(1).
		Find(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == uuid.Nil {
		return nil, nil
	}
	return &t, nil
}

func (r *ticketRepo) FindLatestClosedByPair(dbc dbctx.Context, userID, agentID uuid.UUID) (*types.Ticket, error) {
	var t types.Ticket
	err := r.handle(dbc).
		Where("user_id = ? AND agent_id = ? AND status = ?", userID, agentID, types.TicketClosed).
		Order("closed_at DESC").
		Limit(1).
		Find(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == uuid.Nil {
		return nil, nil
	}
	return &t, nil
}

func (r *ticketRepo) Close(dbc dbctx.Context, id uuid.UUID, closeType string, at time.Time) error {
	return r.handle(dbc).
		Model(&types.Ticket{}).
		Where("id = ? AND status = ?", id, types.TicketOpen).
		Updates(map[string]interface{}{
			"status":     types.TicketClosed,
			"close_type": closeType,
			"closed_at":  at,
		}).Error
}

func (r *ticketRepo) ListOpenIdle(dbc dbctx.Context, tenantID uuid.UUID, cutoff time.Time) ([]*types.Ticket, error) {
	var out []*types.Ticket
	err := r.handle(dbc).
		Where("tenant_id = ? AND status = ?", tenantID, types.TicketOpen).
		Where("NOT EXISTS (SELECT 1 FROM message m WHERE m.ticket_id = ticket.id AND m.sent_at >= ?)", cutoff).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ticketRepo) CountOpenByPair(dbc dbctx.Context, userID, agentID uuid.UUID) (int64, error) {
	var n int64
	err := r.handle(dbc).
		Model(&types.Ticket{}).
		Where("user_id = ? AND agent_id = ? AND status = ?", userID, agentID, types.TicketOpen).
		Count(&n).Error
	return n, err
}
