package flagreconcile

import (
	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
	"github.com/heliodesk/heliodesk-backend/internal/services"
)

// Pipeline is the 20-second self-healing pass: it recomputes one user's
// require-response flag from their actual message history and writes only on
// change.
type Pipeline struct {
	log     *logger.Logger
	tracker services.ResponseTrackerService
}

func New(baseLog *logger.Logger, tracker services.ResponseTrackerService) *Pipeline {
	return &Pipeline{
		log:     baseLog.With("pipeline", "FlagReconcile"),
		tracker: tracker,
	}
}

func (p *Pipeline) Type() string { return types.JobFlagReconcile }
