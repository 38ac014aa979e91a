package memstore

import (
	"sync"
	"time"

	"github.com/fairyhunter13/video-gen-api/internal/domain"
)

// UsageCounter accumulates per-user generation usage. Counts are kept under
// date-scoped keys (user:2026-08-25 daily, user:2026-08 monthly) alongside a
// per-day detail record, so daily and monthly reads never need aggregation.
type UsageCounter struct {
	mu      sync.Mutex
	counts  map[string]int
	details map[string]map[string]domain.UsageDetail // user -> day -> detail
}

// NewUsageCounter constructs an empty UsageCounter.
func NewUsageCounter() *UsageCounter {
	return &UsageCounter{
		counts:  make(map[string]int),
		details: make(map[string]map[string]domain.UsageDetail),
	}
}

func dailyKey(userID string, t time.Time) string {
	return userID + ":" + t.UTC().Format("2006-01-02")
}

func monthlyKey(userID string, t time.Time) string {
	return userID + ":" + t.UTC().Format("2006-01")
}

// RecordUsage counts one generated video of the given duration against the
// user. Both counters and the day's detail record update under one lock.
func (u *UsageCounter) RecordUsage(userID string, durationSeconds float64, at time.Time) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.counts[dailyKey(userID, at)]++
	u.counts[monthlyKey(userID, at)]++

	day := at.UTC().Format("2006-01-02")
	byDay := u.details[userID]
	if byDay == nil {
		byDay = make(map[string]domain.UsageDetail)
		u.details[userID] = byDay
	}
	d := byDay[day]
	d.VideosGenerated++
	d.TotalDurationSeconds += durationSeconds
	byDay[day] = d
}

// DailyCount returns the user's video count for the given day.
func (u *UsageCounter) DailyCount(userID string, at time.Time) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.counts[dailyKey(userID, at)]
}

// MonthlyCount returns the user's video count for the given month.
func (u *UsageCounter) MonthlyCount(userID string, at time.Time) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.counts[monthlyKey(userID, at)]
}

// Details returns the per-day detail records for days within [from, to],
// keyed by YYYY-MM-DD.
func (u *UsageCounter) Details(userID string, from, to time.Time) map[string]domain.UsageDetail {
	u.mu.Lock()
	defer u.mu.Unlock()

	out := make(map[string]domain.UsageDetail)
	for day, d := range u.details[userID] {
		t, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}
		if t.Before(from.UTC().Truncate(24*time.Hour)) || t.After(to.UTC()) {
			continue
		}
		out[day] = d
	}
	return out
}
