package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/fairyhunter13/video-gen-api/internal/adapter/store/localstore"
	"github.com/fairyhunter13/video-gen-api/internal/adapter/store/memstore"
	"github.com/fairyhunter13/video-gen-api/internal/domain"
	"github.com/fairyhunter13/video-gen-api/internal/service/ratelimiter"
)

func newTestAccountService() (*AccountService, *memstore.Store, *ratelimiter.Limiter) {
	store := memstore.New()
	limiter := ratelimiter.New(localstore.New(), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewAccountService(store, limiter), store, limiter
}

func TestGetUsage_Periods(t *testing.T) {
	svc, store, _ := newTestAccountService()
	user, _ := store.UserByAPIKey("dev_test_key")

	now := time.Now().UTC()
	store.Usage.RecordUsage(user.ID, 10, now)
	store.Usage.RecordUsage(user.ID, 5, now)

	daily := svc.GetUsage(user, "daily")
	if daily.RequestsMade != 2 || daily.VideosGenerated != 2 || daily.TotalDurationSeconds != 15 {
		t.Fatalf("daily usage = %+v", daily)
	}
	if daily.PeriodEnd.Sub(daily.PeriodStart) != 24*time.Hour {
		t.Fatalf("daily period = %v..%v", daily.PeriodStart, daily.PeriodEnd)
	}

	monthly := svc.GetUsage(user, "monthly")
	if monthly.RequestsMade != 2 {
		t.Fatalf("monthly requests = %d, want 2", monthly.RequestsMade)
	}
	if monthly.PeriodStart.Day() != 1 {
		t.Fatalf("monthly period should start on day 1, got %v", monthly.PeriodStart)
	}
	if monthly.PeriodEnd != monthly.PeriodStart.AddDate(0, 1, 0) {
		t.Fatalf("monthly period end = %v", monthly.PeriodEnd)
	}

	// Unknown periods fall back to daily.
	fallback := svc.GetUsage(user, "weekly")
	if fallback.Period != "daily" {
		t.Fatalf("period = %q, want daily", fallback.Period)
	}
}

func TestGetQuota(t *testing.T) {
	ctx := context.Background()
	svc, store, limiter := newTestAccountService()
	user, _ := store.UserByAPIKey("dev_test_key")

	now := time.Now().UTC()
	store.Usage.RecordUsage(user.ID, 10, now)
	store.Jobs.Create("j1", domain.Job{ID: "j1", UserID: user.ID, Status: domain.JobQueued})
	for i := 0; i < 3; i++ {
		limiter.Check(ctx, user, ratelimiter.DefaultEndpoint)
	}

	quota := svc.GetQuota(ctx, user)
	if quota.RateLimit.Limit != 30 || quota.RateLimit.Remaining != 27 {
		t.Fatalf("rate limit = %+v", quota.RateLimit)
	}
	if quota.DailyLimit != 500 || quota.DailyUsed != 1 || quota.DailyRemaining != 499 {
		t.Fatalf("daily quota = limit %d used %d remaining %d", quota.DailyLimit, quota.DailyUsed, quota.DailyRemaining)
	}
	if quota.ConcurrentLimit != 3 || quota.ConcurrentActive != 1 {
		t.Fatalf("concurrency = %d/%d", quota.ConcurrentActive, quota.ConcurrentLimit)
	}
	if !quota.CanGenerate || quota.CanBatchGenerate {
		t.Fatalf("feature gates = generate %v batch %v", quota.CanGenerate, quota.CanBatchGenerate)
	}
}

func TestGetQuota_UnlimitedDaily(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestAccountService()
	user, _ := store.UserByAPIKey("enterprise_test_key")

	quota := svc.GetQuota(ctx, user)
	if quota.DailyLimit != -1 || quota.DailyRemaining != -1 {
		t.Fatalf("enterprise daily quota should be unlimited, got limit %d remaining %d", quota.DailyLimit, quota.DailyRemaining)
	}
}

type unavailableStore struct {
	domain.AtomicStore
}

func (unavailableStore) WindowCount(context.Context, string, time.Duration, float64) (int, error) {
	return 0, errors.New("connection refused")
}

func TestGetQuota_SurvivesStoreOutage(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	limiter := ratelimiter.New(unavailableStore{}, localstore.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc := NewAccountService(store, limiter)
	user, _ := store.UserByAPIKey("dev_test_key")

	quota := svc.GetQuota(ctx, user)
	if quota.RateLimit.Limit != 30 || quota.RateLimit.Remaining != 30 {
		t.Fatalf("rate limit over a down store = %+v, want untouched budget", quota.RateLimit)
	}
}
