package generator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/fairyhunter13/video-gen-api/internal/domain"
)

func newTestMock() *Mock {
	m := NewMock(slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.sleep = func(context.Context, time.Duration) error { return nil }
	return m
}

func testJob() domain.Job {
	return domain.Job{
		ID:          "job_abc",
		UserID:      "user_dev_001",
		Prompt:      "a quiet beach at dusk",
		Duration:    10,
		Resolution:  domain.Res1080p,
		AspectRatio: domain.Aspect16x9,
	}
}

func TestGenerate_Success(t *testing.T) {
	m := newTestMock()
	m.randFloat = func() float64 { return 0.5 } // never below failure rate

	video, err := m.Generate(context.Background(), testJob())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(video.ID, "vid_") || len(video.ID) != len("vid_")+12 {
		t.Fatalf("video id format = %q", video.ID)
	}
	if video.Status != domain.VideoReady {
		t.Fatalf("status = %s, want ready", video.Status)
	}
	if video.Duration != 10 {
		t.Fatalf("duration = %v, want 10", video.Duration)
	}
	if video.OwnerID != "user_dev_001" || video.JobID != "job_abc" {
		t.Fatalf("ownership = %s/%s", video.OwnerID, video.JobID)
	}
	if !strings.HasPrefix(video.URL, "https://mock-storage.lumalabs.ai/videos/") {
		t.Fatalf("url = %q", video.URL)
	}
	if !strings.HasPrefix(video.ThumbnailURL, "https://mock-storage.lumalabs.ai/thumbs/") {
		t.Fatalf("thumbnail = %q", video.ThumbnailURL)
	}
	if video.Title != "a quiet beach at dusk" {
		t.Fatalf("title = %q", video.Title)
	}
}

func TestGenerate_TruncatesLongTitles(t *testing.T) {
	m := newTestMock()
	m.randFloat = func() float64 { return 0.5 }

	job := testJob()
	job.Prompt = strings.Repeat("x", 120)
	video, err := m.Generate(context.Background(), job)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(video.Title) != 50 {
		t.Fatalf("title length = %d, want 50", len(video.Title))
	}
	if video.Description != job.Prompt {
		t.Fatalf("description should keep the full prompt")
	}
}

func TestGenerate_SimulatedFailure(t *testing.T) {
	m := newTestMock()
	m.randFloat = func() float64 { return 0.01 } // below failure rate

	_, err := m.Generate(context.Background(), testJob())
	var genErr *domain.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if genErr.Message != "Simulated generation failure" {
		t.Fatalf("message = %q", genErr.Message)
	}
}

func TestGenerate_HonoursCancellation(t *testing.T) {
	m := newTestMock()
	m.sleep = sleepCtx
	m.randFloat = func() float64 { return 0.5 }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Generate(ctx, testJob())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
