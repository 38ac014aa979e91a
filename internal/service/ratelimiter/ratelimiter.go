// Package ratelimiter enforces per-user sliding-window-log rate limits.
// Every user keeps one window per endpoint class; the limit comes from the
// user's tier. The window lives in the atomic store so all API instances
// sharing a Redis observe the same log.
package ratelimiter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/video-gen-api/internal/domain"
)

// Window is the sliding window length for every tier.
const Window = time.Minute

// DefaultEndpoint is the endpoint class used when no finer classification
// applies.
const DefaultEndpoint = "default"

// Result is the outcome of one rate limit decision.
type Result struct {
	Allowed       bool
	Limit         int
	Remaining     int
	ResetAt       int64 // unix seconds
	WindowSeconds int
}

// RetryAfter returns the whole seconds a denied caller should wait, never
// negative.
func (r Result) RetryAfter(now time.Time) int {
	d := r.ResetAt - now.Unix()
	if d < 0 {
		return 0
	}
	return int(d)
}

// Limiter makes rate limit decisions against an atomic store.
type Limiter struct {
	store    domain.AtomicStore
	fallback domain.AtomicStore
	log      *slog.Logger
	now      func() time.Time
}

// New constructs a Limiter. fallback, normally the in-process store, takes
// over per call when the primary store is unreachable; nil disables the
// failover.
func New(store, fallback domain.AtomicStore, log *slog.Logger) *Limiter {
	return &Limiter{store: store, fallback: fallback, log: log, now: time.Now}
}

func limitKey(userID, endpoint string) string {
	return fmt.Sprintf("rate_limit:%s:%s", userID, endpoint)
}

// Check records one request attempt and reports whether it is admitted.
// Store failures fail open: an unreachable backend degrades enforcement,
// never availability.
func (l *Limiter) Check(ctx context.Context, user domain.User, endpoint string) Result {
	cfg := domain.ConfigForTier(user.Tier)
	now := l.now()

	key := limitKey(user.ID, endpoint)
	nowSec := float64(now.UnixNano()) / 1e9
	member := uuid.NewString()

	allowed, remaining, resetAt, err := l.store.RateLimitCheck(ctx, key, Window, cfg.RateLimitPerMinute, nowSec, member)
	if err != nil && l.fallback != nil {
		l.log.Warn("rate limit store unavailable, using fallback",
			slog.String("user_id", user.ID),
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		allowed, remaining, resetAt, err = l.fallback.RateLimitCheck(ctx, key, Window, cfg.RateLimitPerMinute, nowSec, member)
	}
	if err != nil {
		l.log.Warn("rate limit check failed, allowing request",
			slog.String("user_id", user.ID),
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		// The admitted request counts against the budget it reports.
		return Result{
			Allowed:       true,
			Limit:         cfg.RateLimitPerMinute,
			Remaining:     cfg.RateLimitPerMinute - 1,
			ResetAt:       now.Add(Window).Unix(),
			WindowSeconds: int(Window.Seconds()),
		}
	}

	return Result{
		Allowed:       allowed,
		Limit:         cfg.RateLimitPerMinute,
		Remaining:     remaining,
		ResetAt:       resetAt,
		WindowSeconds: int(Window.Seconds()),
	}
}

// Usage reports the user's current window consumption without recording a
// request. An unreachable store degrades to the fallback count, then to an
// untouched budget; reads never fail.
func (l *Limiter) Usage(ctx context.Context, user domain.User, endpoint string) Result {
	cfg := domain.ConfigForTier(user.Tier)
	now := l.now()

	key := limitKey(user.ID, endpoint)
	nowSec := float64(now.UnixNano()) / 1e9

	count, err := l.store.WindowCount(ctx, key, Window, nowSec)
	if err != nil && l.fallback != nil {
		count, err = l.fallback.WindowCount(ctx, key, Window, nowSec)
	}
	if err != nil {
		l.log.Warn("rate limit usage read failed, reporting full budget",
			slog.String("user_id", user.ID),
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		count = 0
	}

	remaining := cfg.RateLimitPerMinute - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:       count < cfg.RateLimitPerMinute,
		Limit:         cfg.RateLimitPerMinute,
		Remaining:     remaining,
		ResetAt:       now.Add(Window).Unix(),
		WindowSeconds: int(Window.Seconds()),
	}
}
