package responsealert

import (
	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
	"github.com/heliodesk/heliodesk-backend/internal/services"
)

// Pipeline fires after the tenant's alert delay and either clears the
// response flag (a reply appeared) or raises a no-response alert. It never
// re-schedules itself.
type Pipeline struct {
	log       *logger.Logger
	escalator services.AlertEscalatorService
}

func New(baseLog *logger.Logger, escalator services.AlertEscalatorService) *Pipeline {
	return &Pipeline{
		log:       baseLog.With("pipeline", "ResponseAlert"),
		escalator: escalator,
	}
}

func (p *Pipeline) Type() string { return types.JobResponseAlert }
