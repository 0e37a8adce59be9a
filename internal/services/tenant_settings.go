package services

import (
	"github.com/google/uuid"

	"github.com/heliodesk/heliodesk-backend/internal/data/repos"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
)

const (
	defaultAlertDelayMinutes = 30
	defaultAutoCloseHours    = 24
	defaultWorkdayStartHour  = 9
	defaultWorkdayEndHour    = 18
)

// TenantSettingsService reads per-tenant pipeline knobs, falling back to
// defaults when the tenant row is missing or holds zero values.
type TenantSettingsService interface {
	GetAlertDelayMinutes(dbc dbctx.Context, tenantID uuid.UUID) int
	GetAutoCloseHours(dbc dbctx.Context, tenantID uuid.UUID) int
	GetWorkday(dbc dbctx.Context, tenantID uuid.UUID) (startHour, endHour int)
}

type tenantSettingsService struct {
	log  *logger.Logger
	repo repos.TenantRepo
}

func NewTenantSettingsService(baseLog *logger.Logger, repo repos.TenantRepo) TenantSettingsService {
	return &tenantSettingsService{
		log:  baseLog.With("service", "TenantSettingsService"),
		repo: repo,
	}
}

func (s *tenantSettingsService) GetAlertDelayMinutes(dbc dbctx.Context, tenantID uuid.UUID) int {
	t, err := s.repo.GetByID(dbc, tenantID)
	if err != nil {
		s.log.Warn("Tenant lookup failed, using default alert delay", "tenant_id", tenantID, "error", err)
		return defaultAlertDelayMinutes
	}
	if t == nil || t.AlertDelayMinutes <= 0 {
		return defaultAlertDelayMinutes
	}
	return t.AlertDelayMinutes
}

func (s *tenantSettingsService) GetAutoCloseHours(dbc dbctx.Context, tenantID uuid.UUID) int {
	t, err := s.repo.GetByID(dbc, tenantID)
	if err != nil {
		s.log.Warn("Tenant lookup failed, using default auto-close window", "tenant_id", tenantID, "error", err)
		return defaultAutoCloseHours
	}
	if t == nil || t.AutoCloseHours <= 0 {
		return defaultAutoCloseHours
	}
	return t.AutoCloseHours
}

func (s *tenantSettingsService) GetWorkday(dbc dbctx.Context, tenantID uuid.UUID) (int, int) {
	t, err := s.repo.GetByID(dbc, tenantID)
	if err != nil || t == nil {
		return defaultWorkdayStartHour, defaultWorkdayEndHour
	}
	start, end := t.WorkdayStartHour, t.WorkdayEndHour
	if start < 0 || start > 23 || end <= start || end > 24 {
		return defaultWorkdayStartHour, defaultWorkdayEndHour
	}
	return start, end
}
