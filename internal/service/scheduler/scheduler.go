// Package scheduler sits between the job lifecycle and the priority queue.
// It assigns each job its tier-derived priority, tracks queue depth gauges
// and exposes the queue operations in job terms.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/fairyhunter13/video-gen-api/internal/adapter/observability"
	"github.com/fairyhunter13/video-gen-api/internal/domain"
	"github.com/fairyhunter13/video-gen-api/internal/service/queue"
)

// Scheduler binds jobs to the weighted fair priority queue.
type Scheduler struct {
	queue *queue.Queue
	log   *slog.Logger
}

// New constructs a Scheduler.
func New(q *queue.Queue, log *slog.Logger) *Scheduler {
	return &Scheduler{queue: q, log: log}
}

// EnqueueJob places a job in its priority queue and returns its position.
func (s *Scheduler) EnqueueJob(ctx context.Context, job domain.Job) (domain.QueuePosition, error) {
	pos, err := s.queue.Enqueue(ctx, job.ID, job.Priority)
	if err != nil {
		return domain.QueuePosition{}, err
	}
	observability.EnqueueJob(string(job.Priority))
	s.publishDepths(ctx)

	s.log.Info("job enqueued",
		slog.String("job_id", job.ID),
		slog.String("priority", string(job.Priority)),
		slog.Int("position", pos.Position),
		slog.Int("estimated_wait_seconds", pos.EstimatedWaitSeconds))
	return pos, nil
}

// CancelJob removes a queued job from its priority queue. It reports
// whether the job was still queued; a job already picked up by the worker
// is not removable.
func (s *Scheduler) CancelJob(ctx context.Context, job domain.Job) (bool, error) {
	removed, err := s.queue.Remove(ctx, job.ID, job.Priority)
	if err != nil {
		return false, err
	}
	if removed {
		s.publishDepths(ctx)
	}
	return removed, nil
}

// DequeueNext returns the next job ID under weighted fair selection, or ""
// when every queue is empty.
func (s *Scheduler) DequeueNext(ctx context.Context) (string, error) {
	jobID, err := s.queue.Dequeue(ctx)
	if err != nil {
		return "", err
	}
	if jobID != "" {
		s.publishDepths(ctx)
	}
	return jobID, nil
}

// JobPosition returns the job's current queue position, or a zero value
// when the job is no longer queued.
func (s *Scheduler) JobPosition(ctx context.Context, job domain.Job) (domain.QueuePosition, error) {
	return s.queue.Position(ctx, job.ID, job.Priority)
}

// Stats reports the per-priority queue depths and the total.
func (s *Scheduler) Stats(ctx context.Context) (map[domain.QueuePriority]int, int, error) {
	lengths, err := s.queue.Lengths(ctx)
	if err != nil {
		return nil, 0, err
	}
	total := 0
	for p, n := range lengths {
		observability.SetQueueDepth(string(p), n)
		total += n
	}
	return lengths, total, nil
}

// QueueJobs returns up to limit entries of one priority queue.
func (s *Scheduler) QueueJobs(ctx context.Context, priority domain.QueuePriority, limit int) ([]domain.QueueEntry, error) {
	return s.queue.Jobs(ctx, priority, limit)
}

func (s *Scheduler) publishDepths(ctx context.Context) {
	lengths, err := s.queue.Lengths(ctx)
	if err != nil {
		return
	}
	for p, n := range lengths {
		observability.SetQueueDepth(string(p), n)
	}
}
