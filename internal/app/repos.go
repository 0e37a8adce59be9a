package app

import (
	"gorm.io/gorm"

	"github.com/heliodesk/heliodesk-backend/internal/data/repos"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
)

type Repos struct {
	Tenant       repos.TenantRepo
	User         repos.UserRepo
	Message      repos.MessageRepo
	Ticket       repos.TicketRepo
	ScheduledJob repos.ScheduledJobRepo
	Kpi          repos.KpiRepo
	Alert        repos.AlertRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Tenant:       repos.NewTenantRepo(db, log),
		User:         repos.NewUserRepo(db, log),
		Message:      repos.NewMessageRepo(db, log),
		Ticket:       repos.NewTicketRepo(db, log),
		ScheduledJob: repos.NewScheduledJobRepo(db, log),
		Kpi:          repos.NewKpiRepo(db, log),
		Alert:        repos.NewAlertRepo(db, log),
	}
}
