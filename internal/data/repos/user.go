package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
)

type UserRepo interface {
	Create(dbc dbctx.Context, u *types.User) (*types.User, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error)
	GetByPhone(dbc dbctx.Context, tenantID uuid.UUID, phone string) (*types.User, error)
	ListAgents(dbc dbctx.Context, tenantID uuid.UUID) ([]*types.User, error)
	ListStandard(dbc dbctx.Context, tenantID uuid.UUID) ([]*types.User, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{
		db:  db,
		log: baseLog.With("repo", "UserRepo"),
	}
}

func (r *userRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *userRepo) Create(dbc dbctx.Context, u *types.User) (*types.User, error) {
	if err := r.handle(dbc).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var u types.User
	err := r.handle(dbc).
		Where("id = ?", id).
		Limit(1).
		Find(&u).Error
	if err != nil {
		return nil, err
	}
	if u.ID == uuid.Nil {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepo) GetByPhone(dbc dbctx.Context, tenantID uuid.UUID, phone string) (*types.User, error) {
	if phone == "" {
		return nil, nil
	}
	var u types.User
	err := r.handle(dbc).
		Where("tenant_id = ? AND phone = ?", tenantID, phone).
		Limit(1).
		Find(&u).Error
	if err != nil {
		return nil, err
	}
	if u.ID == uuid.Nil {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepo) ListAgents(dbc dbctx.Context, tenantID uuid.UUID) ([]*types.User, error) {
	var out []*types.User
	err := r.handle(dbc).
		Where("tenant_id = ? AND role = ?", tenantID, types.RoleAgent).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userRepo) ListStandard(dbc dbctx.Context, tenantID uuid.UUID) ([]*types.User, error) {
	var out []*types.User
	err := r.handle(dbc).
		Where("tenant_id = ? AND role = ?", tenantID, types.RoleStandard).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return r.handle(dbc).
		Model(&types.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}
