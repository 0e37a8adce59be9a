package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
)

type AlertRepo interface {
	Create(dbc dbctx.Context, a *types.Alert) (*types.Alert, error)
	ListByAgent(dbc dbctx.Context, agentID uuid.UUID, limit int) ([]*types.Alert, error)
	ListByMessage(dbc dbctx.Context, messageID uuid.UUID) ([]*types.Alert, error)
}

type alertRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAlertRepo(db *gorm.DB, baseLog *logger.Logger) AlertRepo {
	return &alertRepo{
		db:  db,
		log: baseLog.With("repo", "AlertRepo"),
	}
}

func (r *alertRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *alertRepo) Create(dbc dbctx.Context, a *types.Alert) (*types.Alert, error) {
	if err := r.handle(dbc).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (r *alertRepo) ListByAgent(dbc dbctx.Context, agentID uuid.UUID, limit int) ([]*types.Alert, error) {
	var out []*types.Alert
	q := r.handle(dbc).
		Where("agent_id = ?", agentID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *alertRepo) ListByMessage(dbc dbctx.Context, messageID uuid.UUID) ([]*types.Alert, error) {
	var out []*types.Alert
	err := r.handle(dbc).
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
