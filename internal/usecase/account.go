package usecase

import (
	"context"
	"time"

	"github.com/fairyhunter13/video-gen-api/internal/adapter/store/memstore"
	"github.com/fairyhunter13/video-gen-api/internal/domain"
	"github.com/fairyhunter13/video-gen-api/internal/service/ratelimiter"
)

// Usage summarises a user's consumption over one period.
type Usage struct {
	UserID               string
	Tier                 domain.Tier
	Period               string // "daily" or "monthly"
	RequestsMade         int
	VideosGenerated      int
	TotalDurationSeconds float64
	PeriodStart          time.Time
	PeriodEnd            time.Time
}

// QuotaWindow is the rate limit slice of a quota report.
type QuotaWindow struct {
	Limit         int
	Remaining     int
	ResetAt       int64
	WindowSeconds int
}

// Quota is the full quota report of a user.
type Quota struct {
	UserID           string
	Tier             domain.Tier
	RateLimit        QuotaWindow
	DailyLimit       int // -1 means unlimited
	DailyUsed        int
	DailyRemaining   int // -1 means unlimited
	ConcurrentLimit  int
	ConcurrentActive int
	MaxVideoDuration int
	CanGenerate      bool
	CanBatchGenerate bool
}

// AccountService reports account, usage and quota state.
type AccountService struct {
	Store   *memstore.Store
	Limiter *ratelimiter.Limiter

	now func() time.Time
}

// NewAccountService constructs an AccountService.
func NewAccountService(store *memstore.Store, limiter *ratelimiter.Limiter) *AccountService {
	return &AccountService{Store: store, Limiter: limiter, now: time.Now}
}

// GetUsage returns the user's usage for the daily or monthly period.
func (s *AccountService) GetUsage(user domain.User, period string) Usage {
	now := s.now().UTC()

	var requests int
	var start, end time.Time
	switch period {
	case "monthly":
		requests = s.Store.Usage.MonthlyCount(user.ID, now)
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	default:
		period = "daily"
		requests = s.Store.Usage.DailyCount(user.ID, now)
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 0, 1)
	}

	videos := 0
	duration := 0.0
	for _, d := range s.Store.Usage.Details(user.ID, start, now) {
		videos += d.VideosGenerated
		duration += d.TotalDurationSeconds
	}

	return Usage{
		UserID:               user.ID,
		Tier:                 user.Tier,
		Period:               period,
		RequestsMade:         requests,
		VideosGenerated:      videos,
		TotalDurationSeconds: duration,
		PeriodStart:          start,
		PeriodEnd:            end,
	}
}

// GetQuota returns the user's live limits: rate limit window, daily quota
// and concurrency.
func (s *AccountService) GetQuota(ctx context.Context, user domain.User) Quota {
	cfg := domain.ConfigForTier(user.Tier)

	window := s.Limiter.Usage(ctx, user, ratelimiter.DefaultEndpoint)

	now := s.now().UTC()
	dailyUsed := s.Store.Usage.DailyCount(user.ID, now)
	dailyRemaining := -1
	if cfg.DailyQuota > 0 {
		dailyRemaining = cfg.DailyQuota - dailyUsed
		if dailyRemaining < 0 {
			dailyRemaining = 0
		}
	}

	return Quota{
		UserID: user.ID,
		Tier:   user.Tier,
		RateLimit: QuotaWindow{
			Limit:         window.Limit,
			Remaining:     window.Remaining,
			ResetAt:       window.ResetAt,
			WindowSeconds: window.WindowSeconds,
		},
		DailyLimit:       cfg.DailyQuota,
		DailyUsed:        dailyUsed,
		DailyRemaining:   dailyRemaining,
		ConcurrentLimit:  cfg.MaxConcurrentJobs,
		ConcurrentActive: s.Store.ActiveJobCount(user.ID),
		MaxVideoDuration: cfg.MaxVideoDuration,
		CanGenerate:      cfg.CanGenerate,
		CanBatchGenerate: cfg.CanBatchGenerate,
	}
}
