package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
)

type ScheduledJobRepo interface {
	Create(dbc dbctx.Context, job *types.ScheduledJob) (*types.ScheduledJob, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ScheduledJob, error)
	// ClaimPending transitions a single job from pending to running with an
	// atomic conditional update. Exactly one caller wins when Recover and the
	// sweep race to fire the same due job.
	ClaimPending(dbc dbctx.Context, id uuid.UUID, now time.Time) (bool, error)
	Complete(dbc dbctx.Context, id uuid.UUID) error
	Fail(dbc dbctx.Context, id uuid.UUID, errorMessage string) error
	ListPending(dbc dbctx.Context, limit int) ([]*types.ScheduledJob, error)
	ListDuePending(dbc dbctx.Context, now time.Time, limit int) ([]*types.ScheduledJob, error)
	ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.ScheduledJob, error)
	// ReapStuckRunning fails every running job that started before cutoff.
	ReapStuckRunning(dbc dbctx.Context, cutoff time.Time) (int64, error)
	// DeleteFinishedBefore removes completed/failed jobs older than cutoff.
	DeleteFinishedBefore(dbc dbctx.Context, cutoff time.Time) (int64, error)
	CountByStatus(dbc dbctx.Context, status string) (int64, error)
}

type scheduledJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScheduledJobRepo(db *gorm.DB, baseLog *logger.Logger) ScheduledJobRepo {
	return &scheduledJobRepo{
		db:  db,
		log: baseLog.With("repo", "ScheduledJobRepo"),
	}
}

func (r *scheduledJobRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *scheduledJobRepo) Create(dbc dbctx.Context, job *types.ScheduledJob) (*types.ScheduledJob, error) {
	if err := r.handle(dbc).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *scheduledJobRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ScheduledJob, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var job types.ScheduledJob
	err := r.handle(dbc).
		Where("id = ?", id).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *scheduledJobRepo) ClaimPending(dbc dbctx.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := r.handle(dbc).
		Model(&types.ScheduledJob{}).
		Where("id = ? AND status = ?", id, types.JobPending).
		Updates(map[string]interface{}{
			"status":      types.JobRunning,
			"executed_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *scheduledJobRepo) Complete(dbc dbctx.Context, id uuid.UUID) error {
	return r.handle(dbc).
		Model(&types.ScheduledJob{}).
		Where("id = ? AND status = ?", id, types.JobRunning).
		Update("status", types.JobCompleted).Error
}

func (r *scheduledJobRepo) Fail(dbc dbctx.Context, id uuid.UUID, errorMessage string) error {
	return r.handle(dbc).
		Model(&types.ScheduledJob{}).
		Where("id = ? AND status = ?", id, types.JobRunning).
		Updates(map[string]interface{}{
			"status":        types.JobFailed,
			"error_message": errorMessage,
		}).Error
}

func (r *scheduledJobRepo) ListPending(dbc dbctx.Context, limit int) ([]*types.ScheduledJob, error) {
	var out []*types.ScheduledJob
	q := r.handle(dbc).
		Where("status = ?", types.JobPending).
		Order("execute_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *scheduledJobRepo) ListDuePending(dbc dbctx.Context, now time.Time, limit int) ([]*types.ScheduledJob, error) {
	var out []*types.ScheduledJob
	q := r.handle(dbc).
		Where("status = ? AND execute_at <= ?", types.JobPending, now).
		Order("execute_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *scheduledJobRepo) ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.ScheduledJob, error) {
	var out []*types.ScheduledJob
	q := r.handle(dbc).
		Where("status = ?", status).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *scheduledJobRepo) ReapStuckRunning(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	res := r.handle(dbc).
		Model(&types.ScheduledJob{}).
		Where("status = ? AND executed_at IS NOT NULL AND executed_at < ?", types.JobRunning, cutoff).
		Updates(map[string]interface{}{
			"status":        types.JobFailed,
			"error_message": "reaped: running past timeout",
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *scheduledJobRepo) DeleteFinishedBefore(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	res := r.handle(dbc).
		Where("status IN ? AND created_at < ?", []string{types.JobCompleted, types.JobFailed}, cutoff).
		Delete(&types.ScheduledJob{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *scheduledJobRepo) CountByStatus(dbc dbctx.Context, status string) (int64, error) {
	var n int64
	err := r.handle(dbc).
		Model(&types.ScheduledJob{}).
		Where("status = ?", status).
		Count(&n).Error
	return n, err
}
