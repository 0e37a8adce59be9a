package jobs

import (
	"context"
	"time"

	"github.com/heliodesk/heliodesk-backend/internal/data/repos"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
	"github.com/heliodesk/heliodesk-backend/internal/services"
)

// Maintenance is the hourly bulk sweep: it recomputes response flags for
// every standard user and auto-closes idle tickets, tenant by tenant. It is
// the authoritative repair path for anything the staged jobs missed.
type Maintenance struct {
	log      *logger.Logger
	sched    *Scheduler
	tenants  repos.TenantRepo
	tracker  services.ResponseTrackerService
	tickets  services.TicketService
	interval time.Duration
}

func NewMaintenance(baseLog *logger.Logger, sched *Scheduler, tenants repos.TenantRepo, tracker services.ResponseTrackerService, tickets services.TicketService) *Maintenance {
	return &Maintenance{
		log:      baseLog.With("component", "Maintenance"),
		sched:    sched,
		tenants:  tenants,
		tracker:  tracker,
		tickets:  tickets,
		interval: time.Hour,
	}
}

// Start arms the first sweep one interval after boot so startup recovery
// finishes first. Each sweep reschedules the next through the scheduler's
// in-memory primitive; the chain stops when the scheduler's context is
// cancelled.
func (m *Maintenance) Start() {
	m.sched.ScheduleInMemory(m.interval, m.sweep)
}

func (m *Maintenance) sweep(ctx context.Context) {
	m.RunOnce(ctx)
	m.sched.ScheduleInMemory(m.interval, m.sweep)
}

func (m *Maintenance) RunOnce(ctx context.Context) {
	dbc := dbctx.Context{Ctx: ctx}
	tenants, err := m.tenants.List(dbc)
	if err != nil {
		m.log.Error("Maintenance tenant list failed", "error", err)
		return
	}
	for _, t := range tenants {
		flags, err := m.tracker.ReconcileAllFlags(dbc, t.ID)
		if err != nil {
			m.log.Error("Bulk flag reconcile failed", "tenant_id", t.ID, "error", err)
		}
		closed, err := m.tickets.AutoCloseIdle(dbc, t.ID)
		if err != nil {
			m.log.Error("Ticket auto-close failed", "tenant_id", t.ID, "error", err)
		}
		if flags > 0 || closed > 0 {
			m.log.Info("Maintenance sweep",
				"tenant_id", t.ID, "flags_corrected", flags, "tickets_closed", closed)
		}
	}
}
