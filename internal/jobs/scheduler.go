package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/heliodesk/heliodesk-backend/internal/data/repos"
	types "github.com/heliodesk/heliodesk-backend/internal/domain"
	"github.com/heliodesk/heliodesk-backend/internal/jobs/runtime"
	"github.com/heliodesk/heliodesk-backend/internal/platform/dbctx"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
)

type Config struct {
	// SweepInterval re-arms due pending jobs with no live in-process timer,
	// covering timers lost to restarts the recovery pass missed.
	SweepInterval time.Duration
	// ReapInterval checks for jobs stuck in running; StuckTimeout is how long a
	// running job may live before it is presumed crashed and marked failed.
	ReapInterval time.Duration
	StuckTimeout time.Duration
	// RetentionInterval prunes terminal jobs older than Retention.
	RetentionInterval time.Duration
	Retention         time.Duration
	MaxConcurrency    int
}

func DefaultConfig() Config {
	return Config{
		SweepInterval:     10 * time.Second,
		ReapInterval:      1 * time.Minute,
		StuckTimeout:      1 * time.Hour,
		RetentionInterval: 1 * time.Hour,
		Retention:         7 * 24 * time.Hour,
		MaxConcurrency:    8,
	}
}

// Scheduler persists deferred work and arms an in-process timer per job.
// Recover and the periodic sweep can both try to fire the same due job; the
// repo's conditional pending→running claim guarantees a single execution
// wins. Executors are idempotent, so message-level processing stays correct
// at-least-once.
type Scheduler struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.ScheduledJobRepo
	registry *runtime.Registry
	cfg      Config

	pool *errgroup.Group

	mu      sync.Mutex
	armed   map[uuid.UUID]*time.Timer
	baseCtx context.Context
}

func NewScheduler(db *gorm.DB, baseLog *logger.Logger, repo repos.ScheduledJobRepo, registry *runtime.Registry, cfg Config) *Scheduler {
	if cfg.SweepInterval <= 0 {
		cfg = DefaultConfig()
	}
	pool := &errgroup.Group{}
	if cfg.MaxConcurrency > 0 {
		pool.SetLimit(cfg.MaxConcurrency)
	}
	return &Scheduler{
		db:       db,
		log:      baseLog.With("component", "Scheduler"),
		repo:     repo,
		registry: registry,
		cfg:      cfg,
		pool:     pool,
		armed:    make(map[uuid.UUID]*time.Timer),
		baseCtx:  context.Background(),
	}
}

// ScheduleDelayed persists a job due after delay and arms a timer for it.
func (s *Scheduler) ScheduleDelayed(dbc dbctx.Context, name string, jobType string, payload map[string]any, delay time.Duration) (uuid.UUID, error) {
	if jobType == "" {
		return uuid.Nil, fmt.Errorf("missing job_type")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal job payload: %w", err)
	}
	now := time.Now().UTC()
	job := &types.ScheduledJob{
		ID:        uuid.New(),
		JobName:   name,
		JobType:   jobType,
		JobData:   datatypes.JSON(b),
		ExecuteAt: now.Add(delay),
		Status:    types.JobPending,
		CreatedAt: now,
	}
	if _, err := s.repo.Create(dbc, job); err != nil {
		return uuid.Nil, fmt.Errorf("persist scheduled job: %w", err)
	}
	s.arm(job)
	return job.ID, nil
}

// ScheduleInMemory arms a timer without persisting anything. Work scheduled
// this way is lost on restart; callers use it for periodic self-rescheduling
// sweeps, never for per-message state.
func (s *Scheduler) ScheduleInMemory(delay time.Duration, fn func(ctx context.Context)) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		ctx := s.baseCtx
		s.mu.Unlock()
		select {
		case <-ctx.Done():
			return
		default:
		}
		fn(ctx)
	})
}

// Recover re-arms every pending job at process start. Past-due jobs fire
// immediately.
func (s *Scheduler) Recover(ctx context.Context) error {
	pending, err := s.repo.ListPending(dbctx.Context{Ctx: ctx}, 0)
	if err != nil {
		return fmt.Errorf("list pending jobs: %w", err)
	}
	for _, job := range pending {
		s.arm(job)
	}
	s.log.Info("Recovered pending jobs", "count", len(pending))
	return nil
}

// Start launches the sweep, reaper and retention loops. It does not block.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	go s.sweepLoop(ctx)
	go s.reapLoop(ctx)
	go s.retentionLoop(ctx)
}

func (s *Scheduler) arm(job *types.ScheduledJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.armed[job.ID]; ok {
		return
	}
	delay := time.Until(job.ExecuteAt)
	if delay < 0 {
		delay = 0
	}
	id := job.ID
	s.armed[id] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.armed, id)
		ctx := s.baseCtx
		s.mu.Unlock()
		s.pool.Go(func() error {
			s.execute(ctx, id)
			return nil
		})
	})
}

// execute claims and runs one job. Every failure path is contained here: a
// job's error or panic lands on its own row and never reaches another job or
// the scheduler loops.
func (s *Scheduler) execute(ctx context.Context, id uuid.UUID) {
	ctx, span := otel.Tracer("jobs.scheduler").Start(ctx, "scheduler.execute",
		trace.WithAttributes(attribute.String("job.id", id.String())))
	defer span.End()

	dbc := dbctx.Context{Ctx: ctx}
	claimed, err := s.repo.ClaimPending(dbc, id, time.Now().UTC())
	if err != nil {
		s.log.Warn("Claim failed", "job_id", id, "error", err)
		return
	}
	if !claimed {
		// Lost the race or the job is already terminal.
		return
	}
	job, err := s.repo.GetByID(dbc, id)
	if err != nil || job == nil {
		s.log.Warn("Claimed job vanished", "job_id", id, "error", err)
		return
	}

	span.SetAttributes(attribute.String("job.type", job.JobType))

	h, ok := s.registry.Get(job.JobType)
	if !ok {
		s.log.Error("No handler registered", "job_id", id, "job_type", job.JobType)
		_ = s.repo.Fail(dbc, id, "no handler registered for job_type="+job.JobType)
		return
	}

	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				runErr = fmt.Errorf("panic: %v", r)
				s.log.Error("Job handler panic", "job_id", id, "job_type", job.JobType, "panic", r)
			}
		}()
		runErr = h.Run(runtime.NewContext(ctx, s.db, job))
	}()

	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "job failed")
		s.log.Warn("Job failed", "job_id", id, "job_type", job.JobType, "error", runErr)
		if err := s.repo.Fail(dbc, id, runErr.Error()); err != nil {
			s.log.Error("Recording job failure failed", "job_id", id, "error", err)
		}
		return
	}
	if err := s.repo.Complete(dbc, id); err != nil {
		s.log.Error("Recording job completion failed", "job_id", id, "error", err)
	}
}

func (s *Scheduler) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			due, err := s.repo.ListDuePending(dbctx.Context{Ctx: ctx}, time.Now().UTC(), 500)
			if err != nil {
				s.log.Warn("Sweep query failed", "error", err)
				continue
			}
			for _, job := range due {
				s.arm(job)
			}
		}
	}
}

func (s *Scheduler) reapLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-s.cfg.StuckTimeout)
			n, err := s.repo.ReapStuckRunning(dbctx.Context{Ctx: ctx}, cutoff)
			if err != nil {
				s.log.Warn("Reap query failed", "error", err)
				continue
			}
			if n > 0 {
				s.log.Warn("Reaped stuck jobs", "count", n)
			}
		}
	}
}

func (s *Scheduler) retentionLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RetentionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-s.cfg.Retention)
			n, err := s.repo.DeleteFinishedBefore(dbctx.Context{Ctx: ctx}, cutoff)
			if err != nil {
				s.log.Warn("Retention sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.log.Debug("Pruned finished jobs", "count", n)
			}
		}
	}
}
