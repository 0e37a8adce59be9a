package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
)

// JobScheduler is the slice of the scheduler that services need: persist a
// deferred job and arm a timer for it. The concrete scheduler lives in
// internal/jobs; services stay on this side of the dependency edge so job
// pipelines can call back into them.
type JobScheduler interface {
	ScheduleDelayed(dbc dbctx.Context, name string, jobType string, payload map[string]any, delay time.Duration) (uuid.UUID, error)
}
