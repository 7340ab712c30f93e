package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/kiranetwork/recon_backend/config"
	"bitbucket.org/kiranetwork/recon_backend/models"
	"bitbucket.org/kiranetwork/recon_backend/utils"
	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// JobRegistry tracks background runs in the jobs table. It is built
// once in main and injected into the handlers; nothing else should
// create Job rows directly.
type JobRegistry struct {
	db     *gorm.DB
	logger *logrus.Logger
	locker *redislock.Client
}

func NewJobRegistry(db *gorm.DB, logger *logrus.Logger, locker *redislock.Client) *JobRegistry {
	return &JobRegistry{db: db, logger: logger, locker: locker}
}

// Create registers a pending job and returns it with a fresh run id.
func (r *JobRegistry) Create(ctx context.Context, jobType models.JobType, platform, accountLabel string, from, to *models.DateOnly) (*models.Job, error) {
	job := &models.Job{
		RunId:        uuid.NewString(),
		JobType:      jobType,
		Platform:     platform,
		AccountLabel: accountLabel,
		FromDate:     from,
		ToDate:       to,
		Status:       models.JobStatusPending,
	}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *JobRegistry) MarkRunning(ctx context.Context, runId string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&models.Job{}).
		Where("run_id = ?", runId).
		Updates(map[string]interface{}{
			"status":     models.JobStatusRunning,
			"started_at": &now,
		}).Error
}

func (r *JobRegistry) MarkCompleted(ctx context.Context, runId string, transactionsCount int, description string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job models.Job
		if err := tx.First(&job, "run_id = ?", runId).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Job{}).
			Where("run_id = ?", runId).
			Updates(map[string]interface{}{
				"status":             models.JobStatusCompleted,
				"transactions_count": transactionsCount,
				"description":        description,
				"finished_at":        &now,
			}).Error; err != nil {
			return err
		}
		return publishJobEvent(ctx, tx, &job, models.EventTypeJobCompleted, models.JobStatusCompleted, description)
	})
}

func (r *JobRegistry) MarkFailed(ctx context.Context, runId string, cause error) error {
	now := time.Now().UTC()
	description := ""
	if cause != nil {
		description = cause.Error()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job models.Job
		if err := tx.First(&job, "run_id = ?", runId).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Job{}).
			Where("run_id = ?", runId).
			Updates(map[string]interface{}{
				"status":      models.JobStatusFailed,
				"description": description,
				"finished_at": &now,
			}).Error; err != nil {
			return err
		}
		return publishJobEvent(ctx, tx, &job, models.EventTypeJobFailed, models.JobStatusFailed, description)
	})
}

// publishJobEvent records the terminal state of a run in the outbox, in
// the same transaction as the status update. Downstream consumers get
// sync and parse outcomes without polling the jobs table.
func publishJobEvent(ctx context.Context, tx *gorm.DB, job *models.Job, eventType string, status models.JobStatus, description string) error {
	entity := job.AccountLabel
	if entity == "" {
		entity = job.Platform
	}
	return models.PublishReconEvent(ctx, tx, entity, eventType, job.RunId, map[string]interface{}{
		"job_type":    string(job.JobType),
		"platform":    job.Platform,
		"status":      string(status),
		"description": description,
	})
}

func (r *JobRegistry) Get(ctx context.Context, runId string) (*models.Job, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).First(&job, "run_id = ?", runId).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// FindRunning returns the newest pending or running job of one type and
// platform, or nil when none is in flight.
func (r *JobRegistry) FindRunning(ctx context.Context, jobType models.JobType, platform string) (*models.Job, error) {
	query := r.db.WithContext(ctx).
		Where("job_type = ? AND status IN ?", jobType, []models.JobStatus{models.JobStatusPending, models.JobStatusRunning})
	if platform != "" {
		query = query.Where("platform = ?", platform)
	}
	var jobs []models.Job
	if err := query.Order("created_at DESC").Limit(1).Find(&jobs).Error; err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return &jobs[0], nil
}

func (r *JobRegistry) List(ctx context.Context, status models.JobStatus, limit int) ([]models.Job, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var jobs []models.Job
	if err := query.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// Start creates a job and launches fn on a goroutine, enforcing one run
// per (jobType, platform) at a time. The redis lock is the fast path;
// the jobs-table check is the one that actually decides, so losing
// redis degrades to DB-only single-flight rather than double starts.
// A second start while one is in flight returns ErrorJobAlreadyRunning
// with the existing job.
func (r *JobRegistry) Start(ctx context.Context, jobType models.JobType, platform, accountLabel string, from, to *models.DateOnly,
	fn func(ctx context.Context, job *models.Job) (int, string, error)) (*models.Job, error) {

	lockKey := fmt.Sprintf("recon:job:%s:%s", jobType, platform)
	var lock *redislock.Lock
	if r.locker != nil {
		obtained, err := r.locker.Obtain(ctx, lockKey, 30*time.Second, nil)
		if err == redislock.ErrNotObtained {
			existing, ferr := r.FindRunning(ctx, jobType, platform)
			if ferr == nil && existing != nil {
				return existing, utils.ErrorJobAlreadyRunning
			}
			return nil, utils.ErrorJobAlreadyRunning
		} else if err != nil {
			config.LogError(r.logger, "workflow", "Start", "Error obtaining job lock", lockKey, err)
		} else {
			lock = obtained
		}
	}

	existing, err := r.FindRunning(ctx, jobType, platform)
	if err != nil {
		if lock != nil {
			_ = lock.Release(ctx)
		}
		return nil, err
	}
	if existing != nil {
		if lock != nil {
			_ = lock.Release(ctx)
		}
		return existing, utils.ErrorJobAlreadyRunning
	}

	job, err := r.Create(ctx, jobType, platform, accountLabel, from, to)
	if err != nil {
		if lock != nil {
			_ = lock.Release(ctx)
		}
		return nil, err
	}

	// Detach from the request context (the job outlives the request)
	// but keep its span so the run parents under the originating trace.
	runCtx := trace.ContextWithSpan(context.Background(), trace.SpanFromContext(ctx))
	go r.run(runCtx, job, lock, fn)
	return job, nil
}

func (r *JobRegistry) run(ctx context.Context, job *models.Job, lock *redislock.Lock,
	fn func(ctx context.Context, job *models.Job) (int, string, error)) {

	ctx = utils.SetRunIdInContext(ctx, job.RunId)
	ctx, span := otel.Tracer("recon.workflow").Start(ctx, "job."+string(job.JobType))
	defer span.End()
	defer func() {
		if lock != nil {
			_ = lock.Release(ctx)
		}
		if rec := recover(); rec != nil {
			config.LogError(r.logger, "workflow", "run", "Job panicked", job.RunId, fmt.Errorf("panic: %v", rec))
			_ = r.MarkFailed(ctx, job.RunId, fmt.Errorf("panic: %v", rec))
		}
	}()

	if err := r.MarkRunning(ctx, job.RunId); err != nil {
		config.LogError(r.logger, "workflow", "run", "Error marking job running", job.RunId, err)
		return
	}

	count, description, err := fn(ctx, job)
	if err != nil {
		config.LogError(r.logger, "workflow", "run", "Job failed", job.RunId, err)
		_ = r.MarkFailed(ctx, job.RunId, err)
		return
	}
	if err := r.MarkCompleted(ctx, job.RunId, count, description); err != nil {
		config.LogError(r.logger, "workflow", "run", "Error marking job completed", job.RunId, err)
	}
}
