// Package usecase contains application business logic services.
package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/video-gen-api/internal/adapter/store/memstore"
	"github.com/fairyhunter13/video-gen-api/internal/domain"
	"github.com/fairyhunter13/video-gen-api/internal/service/scheduler"
)

// GenerationRequest carries the validated parameters of a generation call.
type GenerationRequest struct {
	Prompt      string
	Duration    int
	Resolution  domain.Resolution
	Style       domain.VideoStyle
	AspectRatio domain.AspectRatio
	Model       string
	WebhookURL  string
	Metadata    map[string]any
}

// JobService owns the job lifecycle: admission, creation, queueing,
// retrieval and cancellation.
type JobService struct {
	Store     *memstore.Store
	Scheduler *scheduler.Scheduler
	Log       *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewJobService constructs a JobService with its dependencies.
func NewJobService(store *memstore.Store, sched *scheduler.Scheduler, log *slog.Logger) *JobService {
	return &JobService{
		Store:     store,
		Scheduler: sched,
		Log:       log,
		now:       time.Now,
		newID: func() string {
			return "job_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		},
	}
}

// Create admits and creates a generation job. Admission checks run in a
// fixed order: generation permission, duration cap, daily quota,
// concurrency. The job is stored as pending, enqueued, then promoted to
// queued with its position and wait estimate.
func (s *JobService) Create(ctx context.Context, req GenerationRequest, user domain.User) (domain.Job, error) {
	cfg := domain.ConfigForTier(user.Tier)

	if !cfg.CanGenerate {
		return domain.Job{}, domain.ErrInsufficientTier(user.Tier, domain.TierDeveloper, nil)
	}

	if req.Duration > cfg.MaxVideoDuration {
		required := domain.TierEnterprise
		if req.Duration <= 120 {
			required = domain.TierPro
		}
		return domain.Job{}, domain.ErrInsufficientTier(user.Tier, required, map[string]any{
			"requested_duration": req.Duration,
			"max_duration":       cfg.MaxVideoDuration,
		})
	}

	now := s.now().UTC()
	dailyUsed := s.Store.Usage.DailyCount(user.ID, now)
	if cfg.DailyQuota > 0 && dailyUsed >= cfg.DailyQuota {
		return domain.Job{}, domain.ErrQuotaExceeded("daily", cfg.DailyQuota, dailyUsed)
	}

	active := s.Store.ActiveJobCount(user.ID)
	if active >= cfg.MaxConcurrentJobs {
		return domain.Job{}, domain.ErrQuotaExceeded("concurrent_jobs", cfg.MaxConcurrentJobs, active)
	}

	job := domain.Job{
		ID:          s.newID(),
		UserID:      user.ID,
		Status:      domain.JobPending,
		Priority:    domain.PriorityForTier(user.Tier),
		Prompt:      req.Prompt,
		Duration:    req.Duration,
		Resolution:  req.Resolution,
		Style:       req.Style,
		AspectRatio: req.AspectRatio,
		Model:       req.Model,
		WebhookURL:  req.WebhookURL,
		Metadata:    req.Metadata,
		CreatedAt:   now,
		MaxRetries:  3,
	}
	s.Store.Jobs.Create(job.ID, job)

	pos, err := s.Scheduler.EnqueueJob(ctx, job)
	if err != nil {
		s.Store.Jobs.Delete(job.ID)
		return domain.Job{}, err
	}

	// The transition re-validates under the store lock; a job cancelled
	// between create and this write stays cancelled.
	queuedAt := s.now().UTC()
	job, _ = s.Store.TransitionJob(job.ID, domain.JobQueued, func(j domain.Job) domain.Job {
		j.QueuedAt = &queuedAt
		j.QueuePosition = &pos.Position
		j.EstimatedWaitSeconds = &pos.EstimatedWaitSeconds
		return j
	})

	s.Log.Info("job created",
		slog.String("job_id", job.ID),
		slog.String("user_id", user.ID),
		slog.String("priority", string(job.Priority)),
		slog.Int("position", pos.Position))
	return job, nil
}

// Get returns a job after an ownership check.
func (s *JobService) Get(jobID string, user domain.User) (domain.Job, error) {
	job, ok := s.Store.Jobs.Get(jobID)
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound(jobID)
	}
	if job.UserID != user.ID {
		return domain.Job{}, domain.ErrPermissionDenied(
			"You don't have permission to access this job",
			map[string]any{"job_id": jobID},
		)
	}
	return job, nil
}

// List returns one page of the user's jobs, newest first, optionally
// filtered by status.
func (s *JobService) List(user domain.User, page, perPage int, status domain.JobStatus) ([]domain.Job, int) {
	filter := func(j domain.Job) bool {
		if j.UserID != user.ID {
			return false
		}
		if status != "" && j.Status != status {
			return false
		}
		return true
	}
	newestFirst := func(a, b domain.Job) bool { return a.CreatedAt.After(b.CreatedAt) }
	return s.Store.Jobs.List(filter, newestFirst, (page-1)*perPage, perPage)
}

// Cancel cancels a job that has not started processing. Queued jobs are
// also removed from their priority queue, best effort; the worker
// re-checks the status after dequeue anyway.
func (s *JobService) Cancel(ctx context.Context, jobID string, user domain.User) (domain.Job, error) {
	job, err := s.Get(jobID, user)
	if err != nil {
		return domain.Job{}, err
	}

	if !domain.CanTransition(job.Status, domain.JobCancelled) {
		return domain.Job{}, domain.ErrJobCancelled(
			"Job cannot be cancelled (current status: "+string(job.Status)+")",
			map[string]any{"job_id": jobID, "current_status": string(job.Status)},
		)
	}

	if job.Status == domain.JobQueued {
		if _, err := s.Scheduler.CancelJob(ctx, job); err != nil {
			s.Log.Warn("queue removal failed during cancel",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()))
		}
	}

	// Re-validated under the store lock: the worker may have moved the job
	// to processing since the check above.
	completedAt := s.now().UTC()
	job, ok := s.Store.TransitionJob(jobID, domain.JobCancelled, func(j domain.Job) domain.Job {
		j.CompletedAt = &completedAt
		return j
	})
	if !ok {
		return domain.Job{}, domain.ErrJobCancelled(
			"Job cannot be cancelled (current status: "+string(job.Status)+")",
			map[string]any{"job_id": jobID, "current_status": string(job.Status)},
		)
	}

	s.Log.Info("job cancelled", slog.String("job_id", jobID))
	return job, nil
}

// Position returns the live queue position for a queued job, refreshing
// the stored snapshot.
func (s *JobService) Position(ctx context.Context, jobID string, user domain.User) (domain.Job, error) {
	job, err := s.Get(jobID, user)
	if err != nil {
		return domain.Job{}, err
	}
	if job.Status != domain.JobQueued {
		return job, nil
	}

	pos, err := s.Scheduler.JobPosition(ctx, job)
	if err != nil {
		return job, nil // stale snapshot is still usable
	}
	if pos.Position == 0 {
		return job, nil
	}
	job, _ = s.Store.Jobs.Update(jobID, func(j domain.Job) domain.Job {
		j.QueuePosition = &pos.Position
		j.EstimatedWaitSeconds = &pos.EstimatedWaitSeconds
		return j
	})
	return job, nil
}
