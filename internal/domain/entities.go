// Package domain holds the core entities, state machines and ports of the
// video generation control plane. It has no dependencies on adapters.
package domain

import (
	"context"
	"time"
)

// JobStatus enumerates the lifecycle states of a generation job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
	JobExpired    JobStatus = "expired"
)

// QueuePriority enumerates the scheduler's priority levels.
type QueuePriority string

const (
	PriorityCritical QueuePriority = "critical" // enterprise
	PriorityHigh     QueuePriority = "high"     // pro
	PriorityNormal   QueuePriority = "normal"   // developer
)

// Priorities lists all queue priorities in fixed dequeue-walk order.
var Priorities = []QueuePriority{PriorityCritical, PriorityHigh, PriorityNormal}

// jobTransitions is the only legal set of status edges. Terminal states
// (completed, failed, cancelled, expired) have no outgoing edges.
var jobTransitions = map[JobStatus]map[JobStatus]bool{
	JobPending:    {JobQueued: true, JobCancelled: true},
	JobQueued:     {JobProcessing: true, JobCancelled: true, JobExpired: true},
	JobProcessing: {JobCompleted: true, JobFailed: true},
}

// CanTransition reports whether a job status edge is legal.
func CanTransition(from, to JobStatus) bool {
	return jobTransitions[from][to]
}

// IsTerminal reports whether a status admits no further transitions.
func (s JobStatus) IsTerminal() bool {
	return len(jobTransitions[s]) == 0
}

// Job is a video generation job. Priority is fixed at admission; Status only
// changes through CanTransition-validated edges.
type Job struct {
	ID       string        `json:"id"`
	UserID   string        `json:"user_id"`
	Status   JobStatus     `json:"status"`
	Priority QueuePriority `json:"priority"`

	Prompt      string         `json:"prompt"`
	Duration    int            `json:"duration"`
	Resolution  Resolution     `json:"resolution"`
	Style       VideoStyle     `json:"style,omitempty"`
	AspectRatio AspectRatio    `json:"aspect_ratio"`
	Model       string         `json:"model"`
	WebhookURL  string         `json:"webhook_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`

	QueuePosition        *int `json:"queue_position,omitempty"`
	EstimatedWaitSeconds *int `json:"estimated_wait_seconds,omitempty"`

	Progress *float64 `json:"progress,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	QueuedAt    *time.Time `json:"queued_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	VideoID string `json:"video_id,omitempty"`
	Error   string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// VideoStatus enumerates video processing states.
type VideoStatus string

const (
	VideoPending    VideoStatus = "pending"
	VideoProcessing VideoStatus = "processing"
	VideoReady      VideoStatus = "ready"
	VideoFailed     VideoStatus = "failed"
)

// Resolution enumerates output resolutions.
type Resolution string

const (
	Res480p  Resolution = "480p"
	Res720p  Resolution = "720p"
	Res1080p Resolution = "1080p"
	Res4K    Resolution = "4k"
)

// AspectRatio enumerates output aspect ratios.
type AspectRatio string

const (
	Aspect16x9 AspectRatio = "16:9"
	Aspect9x16 AspectRatio = "9:16"
	Aspect1x1  AspectRatio = "1:1"
	Aspect4x3  AspectRatio = "4:3"
)

// VideoStyle enumerates style presets.
type VideoStyle string

const (
	StyleCinematic   VideoStyle = "cinematic"
	StyleAnime       VideoStyle = "anime"
	StyleRealistic   VideoStyle = "realistic"
	StyleArtistic    VideoStyle = "artistic"
	StyleDocumentary VideoStyle = "documentary"
)

// Video is a generated video resource. Videos are created only by the worker
// on successful generation and deleted only on owner request.
type Video struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	Duration     float64     `json:"duration"`
	Resolution   Resolution  `json:"resolution"`
	AspectRatio  AspectRatio `json:"aspect_ratio"`
	Style        VideoStyle  `json:"style,omitempty"`
	Status       VideoStatus `json:"status"`
	URL          string      `json:"url,omitempty"`
	ThumbnailURL string      `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	OwnerID      string      `json:"owner_id"`
	JobID        string      `json:"job_id,omitempty"`
}

// User is an API consumer. Immutable after creation; keys are static.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Tier      Tier      `json:"tier"`
	APIKey    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"is_active"`
}

// QueueEntry is one (job id, enqueue timestamp) pair in a priority queue.
type QueueEntry struct {
	JobID      string  `json:"job_id"`
	EnqueuedAt float64 `json:"enqueued_at"`
}

// QueuePosition describes a job's place in its priority queue.
type QueuePosition struct {
	Position             int
	Priority             QueuePriority
	EstimatedWaitSeconds int
}

// UsageDetail is the per-day usage detail record for a user.
type UsageDetail struct {
	VideosGenerated      int     `json:"videos_generated"`
	TotalDurationSeconds float64 `json:"total_duration_seconds"`
}

// Generator produces a video for a job. Implementations may block for the
// duration of generation and must honour ctx cancellation.
type Generator interface {
	Generate(ctx context.Context, job Job) (Video, error)
}

// AtomicStore exposes the atomic sorted-set and counter primitives shared by
// the rate limiter, the priority queue and usage accounting. The Redis
// implementation runs each primitive as a single Lua script; the in-process
// implementation must preserve the same observable semantics.
type AtomicStore interface {
	// RateLimitCheck garbage-collects entries older than the window, then
	// inserts (requestID, now) if fewer than limit entries remain. It returns
	// allowed, the remaining budget and the Unix time the window resets.
	RateLimitCheck(ctx context.Context, key string, window time.Duration, limit int, now float64, requestID string) (allowed bool, remaining int, resetAt int64, err error)

	// WindowCount garbage-collects entries older than the window and returns
	// how many remain, without inserting anything.
	WindowCount(ctx context.Context, key string, window time.Duration, now float64) (int, error)

	// QueueEnqueue inserts (jobID, score) and returns the 1-indexed rank.
	QueueEnqueue(ctx context.Context, key, jobID string, score float64) (int, error)
	// QueueDequeue removes and returns the lowest-score entry, or "" when the
	// queue is empty.
	QueueDequeue(ctx context.Context, key string) (string, error)
	// QueueRank returns the 1-indexed rank of jobID, or 0 when absent.
	QueueRank(ctx context.Context, key, jobID string) (int, error)
	// QueueRemove deletes jobID and reports whether a removal occurred.
	QueueRemove(ctx context.Context, key, jobID string) (bool, error)
	// QueueLen returns the number of entries in the queue.
	QueueLen(ctx context.Context, key string) (int, error)
	// QueueEntries returns up to limit entries in ascending score order.
	QueueEntries(ctx context.Context, key string, limit int) ([]QueueEntry, error)

	// UsageIncr increments both counters and refreshes their expiries
	// (~25 h daily, ~32 d monthly). Returns the new values.
	UsageIncr(ctx context.Context, dailyKey, monthlyKey string, amount int64) (daily, monthly int64, err error)
}
