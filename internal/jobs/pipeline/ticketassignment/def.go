package ticketassignment

import (
	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
	"github.com/heliodesk/heliodesk-backend/internal/services"
)

// Pipeline re-runs the ticket lookup 5 seconds after message creation so
// near-simultaneous siblings have settled. It attaches only; it never opens
// tickets.
type Pipeline struct {
	log      *logger.Logger
	assigner services.TicketAssignerService
}

func New(baseLog *logger.Logger, assigner services.TicketAssignerService) *Pipeline {
	return &Pipeline{
		log:      baseLog.With("pipeline", "TicketAssignment"),
		assigner: assigner,
	}
}

func (p *Pipeline) Type() string { return types.JobTicketAssignment }
