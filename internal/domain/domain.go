package domain

import (
	"github.com/heliodesk/heliodesk-backend/internal/domain/alerts"
	"github.com/heliodesk/heliodesk-backend/internal/domain/chat"
	"github.com/heliodesk/heliodesk-backend/internal/domain/directory"
	"github.com/heliodesk/heliodesk-backend/internal/domain/jobs"
	"github.com/heliodesk/heliodesk-backend/internal/domain/metrics"
	"github.com/heliodesk/heliodesk-backend/internal/domain/ticketing"
)

// Aggregated aliases so callers can import a single types package.

type (
	Tenant       = directory.Tenant
	User         = directory.User
	Message      = chat.Message
	Ticket       = ticketing.Ticket
	ScheduledJob = jobs.ScheduledJob
	Kpi          = metrics.Kpi
	Alert        = alerts.Alert
)

const (
	RoleStandard = directory.RoleStandard
	RoleAgent    = directory.RoleAgent
	RoleWhatsapp = directory.RoleWhatsapp

	DirectionIncoming = chat.DirectionIncoming
	DirectionOutgoing = chat.DirectionOutgoing

	DeliveryPending   = chat.DeliveryPending
	DeliverySent      = chat.DeliverySent
	DeliveryDelivered = chat.DeliveryDelivered
	DeliveryFailed    = chat.DeliveryFailed

	TicketOpen   = ticketing.StatusOpen
	TicketClosed = ticketing.StatusClosed

	CloseTypeAgent = ticketing.CloseTypeAgent
	CloseTypeAuto  = ticketing.CloseTypeAuto

	JobPending   = jobs.StatusPending
	JobRunning   = jobs.StatusRunning
	JobCompleted = jobs.StatusCompleted
	JobFailed    = jobs.StatusFailed

	JobTicketAssignment = jobs.TypeTicketAssignment
	JobResponseKpi      = jobs.TypeResponseKpi
	JobResponseAlert    = jobs.TypeResponseAlert
	JobFlagReconcile    = jobs.TypeFlagReconcile

	KpiNewTicket         = metrics.KpiNewTicket
	KpiRequireResponse   = metrics.KpiRequireResponse
	KpiFirstResponseTime = metrics.KpiFirstResponseTime
	KpiRespondedToClient = metrics.KpiRespondedToClient

	AlertNoResponse = alerts.KindNoResponse
)

// AllModels is the AutoMigrate set, leaf tables first.
func AllModels() []any {
	return []any{
		&directory.Tenant{},
		&directory.User{},
		&ticketing.Ticket{},
		&chat.Message{},
		&jobs.ScheduledJob{},
		&metrics.Kpi{},
		&alerts.Alert{},
	}
}
