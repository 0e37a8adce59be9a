package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/heliodesk/heliodesk-backend/internal/data/repos"
	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
)

// JobService is the read-only ops surface over the scheduled-job store.
// Failed jobs have no automatic recovery, so the stuck and failed counts
// here are the operational alerting signal.
type JobService interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ScheduledJob, error)
	ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.ScheduledJob, error)
	Stats(dbc dbctx.Context) (map[string]int64, error)
}

type jobService struct {
	log  *logger.Logger
	jobs repos.ScheduledJobRepo
}

func NewJobService(baseLog *logger.Logger, jobs repos.ScheduledJobRepo) JobService {
	return &jobService{
		log:  baseLog.With("service", "JobService"),
		jobs: jobs,
	}
}

func (s *jobService) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ScheduledJob, error) {
	return s.jobs.GetByID(dbc, id)
}

func (s *jobService) ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.ScheduledJob, error) {
	switch status {
	case types.JobPending, types.JobRunning, types.JobCompleted, types.JobFailed:
	default:
		return nil, fmt.Errorf("unknown job status %q", status)
	}
	return s.jobs.ListByStatus(dbc, status, limit)
}

func (s *jobService) Stats(dbc dbctx.Context) (map[string]int64, error) {
	out := map[string]int64{}
	for _, status := range []string{types.JobPending, types.JobRunning, types.JobCompleted, types.JobFailed} {
		n, err := s.jobs.CountByStatus(dbc, status)
		if err != nil {
			return nil, fmt.Errorf("count %s jobs: %w", status, err)
		}
		out[status] = n
	}
	return out, nil
}
