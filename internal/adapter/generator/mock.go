// Package generator provides the video generation backends. The only
// backend is a mock that simulates generation timing and failures; a real
// model integration would implement domain.Generator the same way.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/video-gen-api/internal/domain"
)

const (
	// failureRate is the simulated generation failure probability.
	failureRate = 0.05
	// secondsPerVideoSecond is the simulated processing speed.
	secondsPerVideoSecond = 0.5
	// chunks splits the simulated work so cancellation is responsive.
	chunks = 10

	storageBase = "https://mock-storage.lumalabs.ai"
)

// Mock simulates video generation with realistic timing: half a second of
// work per second of video, +/-20% variance and a 5% failure rate.
type Mock struct {
	log *slog.Logger

	randFloat func() float64 // [0, 1)
	sleep     func(ctx context.Context, d time.Duration) error
	newID     func() string
	now       func() time.Time
}

// NewMock constructs a Mock generator.
func NewMock(log *slog.Logger) *Mock {
	return &Mock{
		log:       log,
		randFloat: rand.Float64,
		sleep:     sleepCtx,
		newID: func() string {
			return "vid_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		},
		now: time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Generate simulates producing a video for the job. It blocks for the
// simulated processing time and honours ctx cancellation between chunks.
func (m *Mock) Generate(ctx context.Context, job domain.Job) (domain.Video, error) {
	base := float64(job.Duration) * secondsPerVideoSecond
	variance := 0.8 + m.randFloat()*0.4
	processing := time.Duration(base * variance * float64(time.Second))

	m.log.Info("starting generation",
		slog.String("job_id", job.ID),
		slog.Float64("estimated_seconds", processing.Seconds()))

	chunk := processing / chunks
	for i := 0; i < chunks; i++ {
		if err := m.sleep(ctx, chunk); err != nil {
			return domain.Video{}, fmt.Errorf("op=generator.Generate job=%s: %w", job.ID, err)
		}
	}

	if m.randFloat() < failureRate {
		return domain.Video{}, &domain.GenerationError{
			Message: "Simulated generation failure",
			Details: map[string]any{"reason": "random_failure", "job_id": job.ID},
		}
	}

	videoID := m.newID()
	title := job.Prompt
	if len(title) > 50 {
		title = title[:50]
	}
	if title == "" {
		title = "Generated Video"
	}

	return domain.Video{
		ID:           videoID,
		Title:        title,
		Description:  job.Prompt,
		Duration:     float64(job.Duration),
		Resolution:   job.Resolution,
		AspectRatio:  job.AspectRatio,
		Style:        job.Style,
		Status:       domain.VideoReady,
		URL:          fmt.Sprintf("%s/videos/%s.mp4", storageBase, videoID),
		ThumbnailURL: fmt.Sprintf("%s/thumbs/%s.jpg", storageBase, videoID),
		CreatedAt:    m.now().UTC(),
		OwnerID:      job.UserID,
		JobID:        job.ID,
	}, nil
}
