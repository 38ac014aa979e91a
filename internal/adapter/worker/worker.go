// Package worker runs the background loop that drains the priority queues
// and turns queued jobs into videos.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/video-gen-api/internal/adapter/observability"
	"github.com/fairyhunter13/video-gen-api/internal/adapter/store/memstore"
	"github.com/fairyhunter13/video-gen-api/internal/domain"
	"github.com/fairyhunter13/video-gen-api/internal/service/scheduler"
)

// Worker polls the scheduler for jobs and processes them one at a time.
type Worker struct {
	store     *memstore.Store
	scheduler *scheduler.Scheduler
	atomic    domain.AtomicStore
	generator domain.Generator
	log       *slog.Logger

	pollInterval time.Duration
	now          func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs a Worker. atomic may be nil when no shared counter store
// is available; usage then only accumulates in process memory.
func New(store *memstore.Store, sched *scheduler.Scheduler, atomic domain.AtomicStore, gen domain.Generator, pollInterval time.Duration, log *slog.Logger) *Worker {
	return &Worker{
		store:        store,
		scheduler:    sched,
		atomic:       atomic,
		generator:    gen,
		log:          log,
		pollInterval: pollInterval,
		now:          time.Now,
	}
}

// Start launches the worker loop. It is a no-op when already running.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx)
	w.log.Info("job worker started")
}

// Stop shuts the worker down. A job that is mid-generation finishes before
// the loop exits; only the polling is interrupted.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done
	w.log.Info("job worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	// Transient dequeue failures back off exponentially instead of
	// hammering a store that is already down.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0

	for {
		if ctx.Err() != nil {
			return
		}

		jobID, err := w.scheduler.DequeueNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := bo.NextBackOff()
			w.log.Error("dequeue failed", slog.String("error", err.Error()), slog.Duration("retry_in", wait))
			if !sleepCtx(ctx, wait) {
				return
			}
			continue
		}
		bo.Reset()

		if jobID == "" {
			if !sleepCtx(ctx, w.pollInterval) {
				return
			}
			continue
		}

		// Generation runs on its own context so Stop lets the current
		// job finish instead of abandoning it half done.
		w.processJob(context.Background(), jobID)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// ProcessOne processes a single job immediately, outside the loop.
func (w *Worker) ProcessOne(ctx context.Context, jobID string) {
	w.processJob(ctx, jobID)
}

func (w *Worker) processJob(ctx context.Context, jobID string) {
	if _, ok := w.store.Jobs.Get(jobID); !ok {
		w.log.Warn("dequeued job not in storage", slog.String("job_id", jobID))
		return
	}

	// The transition validates under the store lock, so a job cancelled
	// after enqueue (even concurrently with this claim) is skipped.
	startedAt := w.now().UTC()
	job, ok := w.store.TransitionJob(jobID, domain.JobProcessing, func(j domain.Job) domain.Job {
		j.StartedAt = &startedAt
		return j
	})
	if !ok {
		w.log.Warn("skipping job in non-processable state",
			slog.String("job_id", jobID),
			slog.String("status", string(job.Status)))
		return
	}
	observability.StartProcessingJob()

	video, err := w.generator.Generate(ctx, job)
	if err != nil {
		w.failJob(job, err)
		return
	}

	w.store.Videos.Create(video.ID, video)

	completedAt := w.now().UTC()
	progress := 1.0
	if _, ok := w.store.TransitionJob(jobID, domain.JobCompleted, func(j domain.Job) domain.Job {
		j.CompletedAt = &completedAt
		j.VideoID = video.ID
		j.Progress = &progress
		return j
	}); !ok {
		w.log.Warn("job left processing before completion write", slog.String("job_id", jobID))
		return
	}
	observability.CompleteJob(string(job.Priority), completedAt.Sub(startedAt))

	w.recordUsage(ctx, job.UserID, video.Duration, completedAt)

	w.log.Info("job completed",
		slog.String("job_id", jobID),
		slog.String("video_id", video.ID))
}

func (w *Worker) failJob(job domain.Job, err error) {
	message := fmt.Sprintf("Unexpected error: %v", err)
	var genErr *domain.GenerationError
	if errors.As(err, &genErr) {
		message = genErr.Message
	}

	completedAt := w.now().UTC()
	if _, ok := w.store.TransitionJob(job.ID, domain.JobFailed, func(j domain.Job) domain.Job {
		j.Error = message
		j.CompletedAt = &completedAt
		return j
	}); !ok {
		w.log.Warn("job left processing before failure write", slog.String("job_id", job.ID))
		return
	}
	observability.FailJob(string(job.Priority))

	w.log.Warn("job failed",
		slog.String("job_id", job.ID),
		slog.String("error", message))
}

func (w *Worker) recordUsage(ctx context.Context, userID string, duration float64, at time.Time) {
	w.store.Usage.RecordUsage(userID, duration, at)

	if w.atomic == nil {
		return
	}
	day := at.UTC().Format("2006-01-02")
	month := at.UTC().Format("2006-01")
	if _, _, err := w.atomic.UsageIncr(ctx, "usage:"+userID+":"+day, "usage:"+userID+":"+month, 1); err != nil {
		w.log.Warn("shared usage counter update failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}
}
