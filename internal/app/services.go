package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/heliodesk/heliodesk-backend/internal/clients/redis"
	"github.com/heliodesk/heliodesk-backend/internal/clients/whatsapp"
	"github.com/heliodesk/heliodesk-backend/internal/jobs"
	"github.com/heliodesk/heliodesk-backend/internal/jobs/pipeline/flagreconcile"
	"github.com/heliodesk/heliodesk-backend/internal/jobs/pipeline/responsealert"
	"github.com/heliodesk/heliodesk-backend/internal/jobs/pipeline/responsekpi"
	"github.com/heliodesk/heliodesk-backend/internal/jobs/pipeline/ticketassignment"
	"github.com/heliodesk/heliodesk-backend/internal/jobs/runtime"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
	"github.com/heliodesk/heliodesk-backend/internal/services"
	"github.com/heliodesk/heliodesk-backend/internal/sse"
)

type Services struct {
	TenantSettings services.TenantSettingsService
	Notifier       services.Notifier
	MessageRouter  services.MessageRouterService
	TicketAssigner services.TicketAssignerService
	Tracker        services.ResponseTrackerService
	Escalator      services.AlertEscalatorService
	Ticket         services.TicketService
	Message        services.MessageService
	Job            services.JobService

	Scheduler   *jobs.Scheduler
	Maintenance *jobs.Maintenance
	NotifyBus   redis.NotifyBus
	Whatsapp    whatsapp.Client
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, hub *sse.Hub) (Services, error) {
	log.Info("Wiring services...")

	var bus redis.NotifyBus
	if cfg.EnableRedis {
		b, err := redis.NewNotifyBus(log)
		if err != nil {
			return Services{}, fmt.Errorf("init notify bus: %w", err)
		}
		bus = b
	}
	var wa whatsapp.Client
	if cfg.EnableWhatsapp {
		w, err := whatsapp.NewFromEnv(log)
		if err != nil {
			return Services{}, fmt.Errorf("init whatsapp client: %w", err)
		}
		wa = w
	}

	roster, err := services.LoadRoster(log, cfg.RosterPath)
	if err != nil {
		return Services{}, fmt.Errorf("load agent roster: %w", err)
	}

	registry := runtime.NewRegistry()
	scheduler := jobs.NewScheduler(db, log, r.ScheduledJob, registry, jobs.DefaultConfig())

	settings := services.NewTenantSettingsService(log, r.Tenant)
	notifier := services.NewNotifier(log, hub, bus)
	router := services.NewMessageRouterService(log, r.User, r.Tenant, roster)
	assigner := services.NewTicketAssignerService(log, r.Message, r.Ticket, r.User, r.Kpi)
	tracker := services.NewResponseTrackerService(log, r.Message, r.User, r.Kpi, settings, scheduler)
	escalator := services.NewAlertEscalatorService(log, r.Message, r.User, r.Alert, notifier)
	ticketSvc := services.NewTicketService(log, r.Ticket, r.Message, settings)
	messageSvc := services.NewMessageService(log, r.Message, r.User, router, assigner, tracker, scheduler, notifier, wa)
	jobSvc := services.NewJobService(log, r.ScheduledJob)

	for _, h := range []runtime.Handler{
		ticketassignment.New(log, assigner),
		responsekpi.New(log, tracker),
		flagreconcile.New(log, tracker),
		responsealert.New(log, escalator),
	} {
		if err := registry.Register(h); err != nil {
			return Services{}, fmt.Errorf("register pipeline: %w", err)
		}
	}

	maintenance := jobs.NewMaintenance(log, scheduler, r.Tenant, tracker, ticketSvc)

	return Services{
		TenantSettings: settings,
		Notifier:       notifier,
		MessageRouter:  router,
		TicketAssigner: assigner,
		Tracker:        tracker,
		Escalator:      escalator,
		Ticket:         ticketSvc,
		Message:        messageSvc,
		Job:            jobSvc,
		Scheduler:      scheduler,
		Maintenance:    maintenance,
		NotifyBus:      bus,
		Whatsapp:       wa,
	}, nil
}
