package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
)

type TenantRepo interface {
	Create(dbc dbctx.Context, t *types.Tenant) (*types.Tenant, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Tenant, error)
	GetByKey(dbc dbctx.Context, key string) (*types.Tenant, error)
	List(dbc dbctx.Context) ([]*types.Tenant, error)
}

type tenantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTenantRepo(db *gorm.DB, baseLog *logger.Logger) TenantRepo {
	return &tenantRepo{
		db:  db,
		log: baseLog.With("repo", "TenantRepo"),
	}
}

func (r *tenantRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *tenantRepo) Create(dbc dbctx.Context, t *types.Tenant) (*types.Tenant, error) {
	if err := r.handle(dbc).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (r *tenantRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Tenant, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var t types.Tenant
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

func (r *tenantRepo) GetByKey(dbc dbctx.Context, key string) (*types.Tenant, error) {
	if key == "" {
		return nil, nil
	}
	var t types.Tenant
	err := r.handle(dbc).
		Where("key = ?", key).
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

func (r *tenantRepo) List(dbc dbctx.Context) ([]*types.Tenant, error) {
	var out []*types.Tenant
	if err := r.handle(dbc).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
