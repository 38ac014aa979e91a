package memstore

import (
	"time"

	"github.com/fairyhunter13/video-gen-api/internal/domain"
)

// Store aggregates the in-memory collections and the usage counter. It is
// seeded with the static test users so the service is usable without any
// provisioning step.
type Store struct {
	Users  *Collection[domain.User]
	Jobs   *Collection[domain.Job]
	Videos *Collection[domain.Video]
	Usage  *UsageCounter

	byAPIKey map[string]string // api key -> user id, immutable after seed
}

// New constructs a Store seeded with the four static test users, one per
// tier.
func New() *Store {
	s := &Store{
		Users:    NewCollection[domain.User](),
		Jobs:     NewCollection[domain.Job](),
		Videos:   NewCollection[domain.Video](),
		Usage:    NewUsageCounter(),
		byAPIKey: make(map[string]string),
	}
	seeded := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, u := range []domain.User{
		{ID: "user_free_001", Email: "free@test.com", Tier: domain.TierFree, APIKey: "free_test_key", CreatedAt: seeded, IsActive: true},
		{ID: "user_dev_001", Email: "developer@test.com", Tier: domain.TierDeveloper, APIKey: "dev_test_key", CreatedAt: seeded, IsActive: true},
		{ID: "user_pro_001", Email: "pro@test.com", Tier: domain.TierPro, APIKey: "pro_test_key", CreatedAt: seeded, IsActive: true},
		{ID: "user_ent_001", Email: "enterprise@test.com", Tier: domain.TierEnterprise, APIKey: "enterprise_test_key", CreatedAt: seeded, IsActive: true},
	} {
		s.Users.Create(u.ID, u)
		s.byAPIKey[u.APIKey] = u.ID
	}
	return s
}

// UserByAPIKey resolves an API key to its user. It returns false for unknown
// keys and for inactive users.
func (s *Store) UserByAPIKey(key string) (domain.User, bool) {
	id, ok := s.byAPIKey[key]
	if !ok {
		return domain.User{}, false
	}
	u, ok := s.Users.Get(id)
	if !ok || !u.IsActive {
		return domain.User{}, false
	}
	return u, true
}

// TransitionJob moves a job to the target status, re-validating the edge
// under the collection lock so a concurrent writer cannot slip a status
// change between the caller's check and the write. mutate runs only when
// the edge is legal. It returns the job as stored and whether the
// transition happened; a missing job returns (zero, false).
func (s *Store) TransitionJob(id string, to domain.JobStatus, mutate func(domain.Job) domain.Job) (domain.Job, bool) {
	transitioned := false
	job, found := s.Jobs.Update(id, func(j domain.Job) domain.Job {
		if !domain.CanTransition(j.Status, to) {
			return j
		}
		transitioned = true
		j.Status = to
		return mutate(j)
	})
	if !found {
		return domain.Job{}, false
	}
	return job, transitioned
}

// ActiveJobCount returns how many of the user's jobs are in a non-terminal
// state. Used for concurrency admission.
func (s *Store) ActiveJobCount(userID string) int {
	return s.Jobs.Count(func(j domain.Job) bool {
		return j.UserID == userID && !j.Status.IsTerminal()
	})
}
