// Package localstore is the in-process fallback for the atomic store
// primitives. It mirrors the Redis implementation's observable behaviour
// over mutex-guarded ordered slices and counters; only durability and
// cross-process visibility differ.
package localstore

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/fairyhunter13/video-gen-api/internal/domain"
)

type entry struct {
	member string
	score  float64
}

// Store keeps every sorted set and counter in process memory.
type Store struct {
	mu       sync.Mutex
	sets     map[string][]entry // ascending by score, stable for ties
	counters map[string]int64
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		sets:     make(map[string][]entry),
		counters: make(map[string]int64),
	}
}

// insert keeps the slice sorted ascending by score; equal scores keep
// insertion order, matching Redis rank behaviour closely enough for queues
// scored by wall clock.
func (s *Store) insert(key, member string, score float64) int {
	set := s.sets[key]
	// Replace an existing member first, as ZADD would.
	for i, e := range set {
		if e.member == member {
			set = append(set[:i], set[i+1:]...)
			break
		}
	}
	idx := sort.Search(len(set), func(i int) bool { return set[i].score > score })
	set = append(set, entry{})
	copy(set[idx+1:], set[idx:])
	set[idx] = entry{member: member, score: score}
	s.sets[key] = set
	for i, e := range set {
		if e.member == member {
			return i + 1
		}
	}
	return len(set)
}

func (s *Store) RateLimitCheck(_ context.Context, key string, window time.Duration, limit int, now float64, requestID string) (bool, int, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := window.Seconds()
	cutoff := now - w
	set := s.sets[key]
	kept := set[:0]
	for _, e := range set {
		if e.score > cutoff {
			kept = append(kept, e)
		}
	}
	s.sets[key] = kept

	count := len(kept)
	if count < limit {
		s.insert(key, requestID, now)
		return true, limit - count - 1, int64(math.Floor(now + w)), nil
	}

	resetAt := now + w
	if len(kept) > 0 {
		resetAt = kept[0].score + w
	}
	return false, 0, int64(math.Floor(resetAt)), nil
}

func (s *Store) WindowCount(_ context.Context, key string, window time.Duration, now float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now - window.Seconds()
	set := s.sets[key]
	kept := set[:0]
	for _, e := range set {
		if e.score > cutoff {
			kept = append(kept, e)
		}
	}
	s.sets[key] = kept
	return len(kept), nil
}

func (s *Store) QueueEnqueue(_ context.Context, key, jobID string, score float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(key, jobID, score), nil
}

func (s *Store) QueueDequeue(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.sets[key]
	if len(set) == 0 {
		return "", nil
	}
	jobID := set[0].member
	s.sets[key] = set[1:]
	return jobID, nil
}

func (s *Store) QueueRank(_ context.Context, key, jobID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.sets[key] {
		if e.member == jobID {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (s *Store) QueueRemove(_ context.Context, key, jobID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.sets[key]
	for i, e := range set {
		if e.member == jobID {
			s.sets[key] = append(set[:i], set[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) QueueLen(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sets[key]), nil
}

func (s *Store) QueueEntries(_ context.Context, key string, limit int) ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.sets[key]
	if limit <= 0 {
		return []domain.QueueEntry{}, nil
	}
	if limit > len(set) {
		limit = len(set)
	}
	entries := make([]domain.QueueEntry, 0, limit)
	for _, e := range set[:limit] {
		entries = append(entries, domain.QueueEntry{JobID: e.member, EnqueuedAt: e.score})
	}
	return entries, nil
}

func (s *Store) UsageIncr(_ context.Context, dailyKey, monthlyKey string, amount int64) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[dailyKey] += amount
	s.counters[monthlyKey] += amount
	// Expiry is irrelevant in process memory: keys are date-scoped so stale
	// ones are simply never read again.
	return s.counters[dailyKey], s.counters[monthlyKey], nil
}
