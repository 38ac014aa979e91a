// Package queue implements the three-level weighted fair priority queue.
// Each priority is a sorted set scored by enqueue time; dequeue draws a
// weighted random priority (critical 10, high 5, normal 1) and falls back
// through the remaining priorities in order, so a loaded critical queue
// cannot starve normal jobs completely.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/fairyhunter13/video-gen-api/internal/domain"
)

// EstimatedProcessingSeconds is the per-job processing time used for wait
// estimates.
const EstimatedProcessingSeconds = 30

var weights = map[domain.QueuePriority]int{
	domain.PriorityCritical: 10,
	domain.PriorityHigh:     5,
	domain.PriorityNormal:   1,
}

const totalWeight = 16

// Key returns the sorted set key for a priority.
func Key(p domain.QueuePriority) string {
	return "queue:" + string(p)
}

// Queue coordinates the priority queues over an atomic store. When a
// fallback store is configured, any primary store failure degrades to it
// for that call, so the API keeps accepting jobs through a Redis outage.
type Queue struct {
	store    domain.AtomicStore
	fallback domain.AtomicStore
	capacity int // 0 means unbounded
	log      *slog.Logger

	now     func() time.Time
	randInt func(n int) int // [0, n)
}

// New constructs a Queue. fallback may be nil when the primary store is
// already in-process.
func New(store, fallback domain.AtomicStore, capacity int, log *slog.Logger) *Queue {
	return &Queue{
		store:    store,
		fallback: fallback,
		capacity: capacity,
		log:      log,
		now:      time.Now,
		randInt:  rand.IntN,
	}
}

func (q *Queue) failover(op string, err error) domain.AtomicStore {
	if err == nil || q.fallback == nil {
		return nil
	}
	q.log.Warn("queue store failed, using in-process fallback",
		slog.String("op", op),
		slog.String("error", err.Error()))
	return q.fallback
}

// Enqueue adds a job to its priority queue and returns its position and
// wait estimate. It returns QUEUE_FULL when a capacity is configured and
// the queues are at it.
func (q *Queue) Enqueue(ctx context.Context, jobID string, priority domain.QueuePriority) (domain.QueuePosition, error) {
	if q.capacity > 0 {
		total, err := q.TotalLength(ctx)
		if err != nil {
			return domain.QueuePosition{}, err
		}
		if total >= q.capacity {
			return domain.QueuePosition{}, domain.ErrQueueFull()
		}
	}

	score := float64(q.now().UnixNano()) / 1e9
	pos, err := q.store.QueueEnqueue(ctx, Key(priority), jobID, score)
	if fb := q.failover("enqueue", err); fb != nil {
		pos, err = fb.QueueEnqueue(ctx, Key(priority), jobID, score)
	}
	if err != nil {
		return domain.QueuePosition{}, fmt.Errorf("op=queue.Enqueue job=%s: %w", jobID, err)
	}

	wait, err := q.estimateWait(ctx, pos, priority)
	if err != nil {
		return domain.QueuePosition{}, err
	}
	return domain.QueuePosition{Position: pos, Priority: priority, EstimatedWaitSeconds: wait}, nil
}

// Dequeue removes and returns the next job ID under weighted fair
// selection, or "" when every queue is empty.
func (q *Queue) Dequeue(ctx context.Context) (string, error) {
	choice := q.randInt(totalWeight) + 1

	cumulative := 0
	for _, p := range domain.Priorities {
		cumulative += weights[p]
		if choice <= cumulative {
			jobID, err := q.pop(ctx, p)
			if err != nil {
				return "", err
			}
			if jobID != "" {
				return jobID, nil
			}
			break
		}
	}

	// The drawn queue was empty; scan all queues in priority order.
	for _, p := range domain.Priorities {
		jobID, err := q.pop(ctx, p)
		if err != nil {
			return "", err
		}
		if jobID != "" {
			return jobID, nil
		}
	}
	return "", nil
}

func (q *Queue) pop(ctx context.Context, p domain.QueuePriority) (string, error) {
	jobID, err := q.store.QueueDequeue(ctx, Key(p))
	if fb := q.failover("dequeue", err); fb != nil {
		jobID, err = fb.QueueDequeue(ctx, Key(p))
	}
	if err != nil {
		return "", fmt.Errorf("op=queue.pop priority=%s: %w", p, err)
	}
	return jobID, nil
}

// Remove deletes a job from its priority queue and reports whether it was
// still queued.
func (q *Queue) Remove(ctx context.Context, jobID string, priority domain.QueuePriority) (bool, error) {
	removed, err := q.store.QueueRemove(ctx, Key(priority), jobID)
	if fb := q.failover("remove", err); fb != nil {
		removed, err = fb.QueueRemove(ctx, Key(priority), jobID)
	}
	if err != nil {
		return false, fmt.Errorf("op=queue.Remove job=%s: %w", jobID, err)
	}
	return removed, nil
}

// Position returns the job's current position and wait estimate, or a zero
// Position when the job is no longer queued.
func (q *Queue) Position(ctx context.Context, jobID string, priority domain.QueuePriority) (domain.QueuePosition, error) {
	pos, err := q.store.QueueRank(ctx, Key(priority), jobID)
	if fb := q.failover("rank", err); fb != nil {
		pos, err = fb.QueueRank(ctx, Key(priority), jobID)
	}
	if err != nil {
		return domain.QueuePosition{}, fmt.Errorf("op=queue.Position job=%s: %w", jobID, err)
	}
	if pos == 0 {
		return domain.QueuePosition{}, nil
	}

	wait, err := q.estimateWait(ctx, pos, priority)
	if err != nil {
		return domain.QueuePosition{}, err
	}
	return domain.QueuePosition{Position: pos, Priority: priority, EstimatedWaitSeconds: wait}, nil
}

// Lengths returns the depth of every priority queue.
func (q *Queue) Lengths(ctx context.Context) (map[domain.QueuePriority]int, error) {
	lengths := make(map[domain.QueuePriority]int, len(domain.Priorities))
	for _, p := range domain.Priorities {
		n, err := q.store.QueueLen(ctx, Key(p))
		if fb := q.failover("len", err); fb != nil {
			n, err = fb.QueueLen(ctx, Key(p))
		}
		if err != nil {
			return nil, fmt.Errorf("op=queue.Lengths priority=%s: %w", p, err)
		}
		lengths[p] = n
	}
	return lengths, nil
}

// TotalLength returns the number of jobs across all priority queues.
func (q *Queue) TotalLength(ctx context.Context) (int, error) {
	lengths, err := q.Lengths(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, n := range lengths {
		total += n
	}
	return total, nil
}

// Jobs returns up to limit entries of one priority queue in dequeue order.
func (q *Queue) Jobs(ctx context.Context, priority domain.QueuePriority, limit int) ([]domain.QueueEntry, error) {
	entries, err := q.store.QueueEntries(ctx, Key(priority), limit)
	if fb := q.failover("entries", err); fb != nil {
		entries, err = fb.QueueEntries(ctx, Key(priority), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("op=queue.Jobs priority=%s: %w", priority, err)
	}
	return entries, nil
}

// Weight returns the dequeue share of a priority.
func Weight(p domain.QueuePriority) int {
	return weights[p]
}

// estimateWait converts a queue position into seconds, counting a share of
// the higher priority queues that will be served first.
func (q *Queue) estimateWait(ctx context.Context, position int, priority domain.QueuePriority) (int, error) {
	lengths, err := q.Lengths(ctx)
	if err != nil {
		return 0, err
	}

	jobsAhead := position - 1
	switch priority {
	case domain.PriorityNormal:
		jobsAhead += int(float64(lengths[domain.PriorityCritical]) * 0.3)
		jobsAhead += int(float64(lengths[domain.PriorityHigh]) * 0.15)
	case domain.PriorityHigh:
		jobsAhead += int(float64(lengths[domain.PriorityCritical]) * 0.5)
	}
	return jobsAhead * EstimatedProcessingSeconds, nil
}
