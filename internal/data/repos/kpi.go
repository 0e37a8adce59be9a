package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
)

type KpiRepo interface {
	Create(dbc dbctx.Context, k *types.Kpi) (*types.Kpi, error)
	ListByTicket(dbc dbctx.Context, ticketID uuid.UUID) ([]*types.Kpi, error)
	ListByUserAndType(dbc dbctx.Context, userID uuid.UUID, kpiType string) ([]*types.Kpi, error)
	// ExistsForTicketSince reports whether a KPI of the given type was already
	// recorded for the ticket at or after since.
	ExistsForTicketSince(dbc dbctx.Context, ticketID uuid.UUID, kpiType string, since time.Time) (bool, error)
}

type kpiRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKpiRepo(db *gorm.DB, baseLog *logger.Logger) KpiRepo {
	return &kpiRepo{
		db:  db,
		log: baseLog.With("repo", "KpiRepo"),
	}
}

func (r *kpiRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *kpiRepo) Create(dbc dbctx.Context, k *types.Kpi) (*types.Kpi, error) {
	if err := r.handle(dbc).Create(k).Error; err != nil {
		return nil, err
	}
	return k, nil
}

func (r *kpiRepo) ListByTicket(dbc dbctx.Context, ticketID uuid.UUID) ([]*types.Kpi, error) {
	var out []*types.Kpi
	err := r.handle(dbc).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *kpiRepo) ExistsForTicketSince(dbc dbctx.Context, ticketID uuid.UUID, kpiType string, since time.Time) (bool, error) {
	var n int64
	err := r.handle(dbc).
		Model(&types.Kpi{}).
		Where("ticket_id = ? AND type = ? AND created_at >= ?", ticketID, kpiType, since).
		Count(&n).Error
	return n > 0, err
}

func (r *kpiRepo) ListByUserAndType(dbc dbctx.Context, userID uuid.UUID, kpiType string) ([]*types.Kpi, error) {
	var out []*types.Kpi
	err := r.handle(dbc).
		Where("user_id = ? AND type = ?", userID, kpiType).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
