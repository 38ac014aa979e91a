package redisstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/video-gen-api/internal/adapter/store/localstore"
	"github.com/fairyhunter13/video-gen-api/internal/domain"
)

func newTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cleanup := func() {
		_ = rdb.Close()
		mr.Close()
	}
	return New(rdb), cleanup
}

func TestRateLimitCheck_AllowsUpToLimit(t *testing.T) {
	ctx := context.Background()
	st, cleanup := newTestStore(t)
	defer cleanup()

	now := float64(time.Now().Unix())
	for i := 0; i < 3; i++ {
		allowed, remaining, _, err := st.RateLimitCheck(ctx, "rate_limit:u1:default", time.Minute, 3, now+float64(i), fmt.Sprintf("req-%d", i))
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("check %d should be allowed", i)
		}
		if want := 3 - i - 1; remaining != want {
			t.Fatalf("check %d remaining = %d, want %d", i, remaining, want)
		}
	}

	allowed, remaining, resetAt, err := st.RateLimitCheck(ctx, "rate_limit:u1:default", time.Minute, 3, now+3, "req-over")
	if err != nil {
		t.Fatalf("over-limit check: %v", err)
	}
	if allowed {
		t.Fatalf("4th request within the window should be denied")
	}
	if remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}
	// Reset comes from the oldest entry, not from now.
	if want := int64(now) + 60; resetAt != want {
		t.Fatalf("resetAt = %d, want %d", resetAt, want)
	}
}

func TestRateLimitCheck_DeniedCallInsertsNothing(t *testing.T) {
	ctx := context.Background()
	st, cleanup := newTestStore(t)
	defer cleanup()

	now := float64(time.Now().Unix())
	if _, _, _, err := st.RateLimitCheck(ctx, "rate_limit:u2:default", time.Minute, 1, now, "a"); err != nil {
		t.Fatalf("first check: %v", err)
	}
	for i := 0; i < 5; i++ {
		allowed, _, _, err := st.RateLimitCheck(ctx, "rate_limit:u2:default", time.Minute, 1, now+1, fmt.Sprintf("b%d", i))
		if err != nil {
			t.Fatalf("denied check: %v", err)
		}
		if allowed {
			t.Fatalf("check %d should be denied", i)
		}
	}
	// Only the one admitted entry may exist.
	n, err := st.QueueLen(ctx, "rate_limit:u2:default")
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 1 {
		t.Fatalf("denied checks must not insert entries, got %d", n)
	}
}

func TestRateLimitCheck_WindowSlides(t *testing.T) {
	ctx := context.Background()
	st, cleanup := newTestStore(t)
	defer cleanup()

	now := float64(1_700_000_000)
	if _, _, _, err := st.RateLimitCheck(ctx, "rate_limit:u3:default", time.Minute, 1, now, "old"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// 61 seconds later the old entry is gone.
	allowed, _, _, err := st.RateLimitCheck(ctx, "rate_limit:u3:default", time.Minute, 1, now+61, "fresh")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !allowed {
		t.Fatalf("request after the window slid should be allowed")
	}
}

func TestQueue_EnqueueDequeueFIFO(t *testing.T) {
	ctx := context.Background()
	st, cleanup := newTestStore(t)
	defer cleanup()

	for i, id := range []string{"j1", "j2", "j3"} {
		pos, err := st.QueueEnqueue(ctx, "queue:normal", id, float64(100+i))
		if err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
		if pos != i+1 {
			t.Fatalf("enqueue %s position = %d, want %d", id, pos, i+1)
		}
	}

	rank, err := st.QueueRank(ctx, "queue:normal", "j2")
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if rank != 2 {
		t.Fatalf("rank(j2) = %d, want 2", rank)
	}

	for _, want := range []string{"j1", "j2", "j3"} {
		got, err := st.QueueDequeue(ctx, "queue:normal")
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if got != want {
			t.Fatalf("dequeue = %q, want %q", got, want)
		}
	}

	got, err := st.QueueDequeue(ctx, "queue:normal")
	if err != nil {
		t.Fatalf("dequeue empty: %v", err)
	}
	if got != "" {
		t.Fatalf("dequeue of empty queue = %q, want empty", got)
	}
}

func TestQueue_RemoveAndRankAbsent(t *testing.T) {
	ctx := context.Background()
	st, cleanup := newTestStore(t)
	defer cleanup()

	if _, err := st.QueueEnqueue(ctx, "queue:high", "j1", 1); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	removed, err := st.QueueRemove(ctx, "queue:high", "j1")
	if err != nil || !removed {
		t.Fatalf("remove = (%v, %v), want (true, nil)", removed, err)
	}
	removed, err = st.QueueRemove(ctx, "queue:high", "j1")
	if err != nil || removed {
		t.Fatalf("second remove = (%v, %v), want (false, nil)", removed, err)
	}
	rank, err := st.QueueRank(ctx, "queue:high", "j1")
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if rank != 0 {
		t.Fatalf("rank of absent job = %d, want 0", rank)
	}
}

func TestUsageIncr(t *testing.T) {
	ctx := context.Background()
	st, cleanup := newTestStore(t)
	defer cleanup()

	daily, monthly, err := st.UsageIncr(ctx, "usage:u1:2026-08-25", "usage:u1:2026-08", 1)
	if err != nil {
		t.Fatalf("incr: %v", err)
	}
	if daily != 1 || monthly != 1 {
		t.Fatalf("counters = (%d, %d), want (1, 1)", daily, monthly)
	}
	daily, monthly, err = st.UsageIncr(ctx, "usage:u1:2026-08-25", "usage:u1:2026-08", 2)
	if err != nil {
		t.Fatalf("incr: %v", err)
	}
	if daily != 3 || monthly != 3 {
		t.Fatalf("counters = (%d, %d), want (3, 3)", daily, monthly)
	}
}

// The in-process fallback must be observationally identical to the Redis
// implementation for the primitives the limiter and queue rely on.
func TestBackendEquivalence(t *testing.T) {
	ctx := context.Background()
	rs, cleanup := newTestStore(t)
	defer cleanup()
	ls := localstore.New()

	backends := []domain.AtomicStore{rs, ls}
	now := float64(1_700_000_000)

	for i := 0; i < 5; i++ {
		var results [2]struct {
			allowed bool
			remain  int
			reset   int64
		}
		for b, st := range backends {
			allowed, remain, reset, err := st.RateLimitCheck(ctx, "rate_limit:eq:default", time.Minute, 3, now+float64(i), fmt.Sprintf("r%d", i))
			if err != nil {
				t.Fatalf("backend %d check %d: %v", b, i, err)
			}
			results[b].allowed = allowed
			results[b].remain = remain
			results[b].reset = reset
		}
		if results[0] != results[1] {
			t.Fatalf("check %d diverged: redis=%+v local=%+v", i, results[0], results[1])
		}
	}

	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("job-%d", i)
		var pos [2]int
		for b, st := range backends {
			p, err := st.QueueEnqueue(ctx, "queue:eq", id, now+float64(i))
			if err != nil {
				t.Fatalf("backend %d enqueue: %v", b, err)
			}
			pos[b] = p
		}
		if pos[0] != pos[1] {
			t.Fatalf("enqueue %s positions diverged: %d vs %d", id, pos[0], pos[1])
		}
	}
	for b, st := range backends {
		if removed, _ := st.QueueRemove(ctx, "queue:eq", "job-1"); !removed {
			t.Fatalf("backend %d remove failed", b)
		}
	}
	for {
		var ids [2]string
		for b, st := range backends {
			id, err := st.QueueDequeue(ctx, "queue:eq")
			if err != nil {
				t.Fatalf("backend %d dequeue: %v", b, err)
			}
			ids[b] = id
		}
		if ids[0] != ids[1] {
			t.Fatalf("dequeue diverged: %q vs %q", ids[0], ids[1])
		}
		if ids[0] == "" {
			break
		}
	}
}

func TestQueueEntries_NonPositiveLimit(t *testing.T) {
	ctx := context.Background()
	rs, cleanup := newTestStore(t)
	defer cleanup()
	ls := localstore.New()

	for b, st := range []domain.AtomicStore{rs, ls} {
		for i, id := range []string{"j1", "j2", "j3"} {
			if _, err := st.QueueEnqueue(ctx, "queue:lim", id, float64(100+i)); err != nil {
				t.Fatalf("backend %d enqueue %s: %v", b, id, err)
			}
		}
		for _, limit := range []int{0, -1} {
			entries, err := st.QueueEntries(ctx, "queue:lim", limit)
			if err != nil {
				t.Fatalf("backend %d entries(%d): %v", b, limit, err)
			}
			if len(entries) != 0 {
				t.Fatalf("backend %d entries(%d) = %d entries, want none", b, limit, len(entries))
			}
		}
		entries, err := st.QueueEntries(ctx, "queue:lim", 2)
		if err != nil {
			t.Fatalf("backend %d entries(2): %v", b, err)
		}
		if len(entries) != 2 || entries[0].JobID != "j1" || entries[1].JobID != "j2" {
			t.Fatalf("backend %d entries(2) = %+v", b, entries)
		}
	}
}
