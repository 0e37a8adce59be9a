package responsekpi

import (
	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
	"github.com/heliodesk/heliodesk-backend/internal/services"
)

// Pipeline runs 10 seconds after an incoming message, once the ticket
// re-check has had its chance. It emits the require-response KPI, flags the
// sender, and schedules the alert check at the tenant's delay.
type Pipeline struct {
	log     *logger.Logger
	tracker services.ResponseTrackerService
}

func New(baseLog *logger.Logger, tracker services.ResponseTrackerService) *Pipeline {
	return &Pipeline{
		log:     baseLog.With("pipeline", "ResponseKpi"),
		tracker: tracker,
	}
}

func (p *Pipeline) Type() string { return types.JobResponseKpi }
