package memstore

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fairyhunter13/video-gen-api/internal/domain"
)

func TestStore_SeedsStaticUsers(t *testing.T) {
	s := New()

	cases := []struct {
		key  string
		id   string
		tier domain.Tier
	}{
		{"free_test_key", "user_free_001", domain.TierFree},
		{"dev_test_key", "user_dev_001", domain.TierDeveloper},
		{"pro_test_key", "user_pro_001", domain.TierPro},
		{"enterprise_test_key", "user_ent_001", domain.TierEnterprise},
	}
	for _, tc := range cases {
		u, ok := s.UserByAPIKey(tc.key)
		if !ok {
			t.Fatalf("key %q should resolve", tc.key)
		}
		if u.ID != tc.id || u.Tier != tc.tier {
			t.Fatalf("key %q resolved to (%s, %s), want (%s, %s)", tc.key, u.ID, u.Tier, tc.id, tc.tier)
		}
	}

	if _, ok := s.UserByAPIKey("bogus"); ok {
		t.Fatalf("unknown key should not resolve")
	}
}

func TestStore_InactiveUserDoesNotResolve(t *testing.T) {
	s := New()
	s.Users.Update("user_pro_001", func(u domain.User) domain.User {
		u.IsActive = false
		return u
	})
	if _, ok := s.UserByAPIKey("pro_test_key"); ok {
		t.Fatalf("inactive user should not resolve")
	}
}

func TestCollection_CRUD(t *testing.T) {
	c := NewCollection[domain.Job]()

	if !c.Create("j1", domain.Job{ID: "j1", Status: domain.JobPending}) {
		t.Fatalf("create should succeed")
	}
	if c.Create("j1", domain.Job{ID: "j1"}) {
		t.Fatalf("duplicate create should fail")
	}

	job, ok := c.Get("j1")
	if !ok || job.Status != domain.JobPending {
		t.Fatalf("get = (%+v, %v)", job, ok)
	}

	updated, ok := c.Update("j1", func(j domain.Job) domain.Job {
		j.Status = domain.JobQueued
		return j
	})
	if !ok || updated.Status != domain.JobQueued {
		t.Fatalf("update = (%+v, %v)", updated, ok)
	}
	if _, ok := c.Update("missing", func(j domain.Job) domain.Job { return j }); ok {
		t.Fatalf("update of missing id should fail")
	}

	if !c.Delete("j1") {
		t.Fatalf("delete should succeed")
	}
	if c.Delete("j1") {
		t.Fatalf("second delete should fail")
	}
}

func TestCollection_ListFilterSortPaginate(t *testing.T) {
	c := NewCollection[domain.Job]()
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		status := domain.JobQueued
		if i%2 == 0 {
			status = domain.JobCompleted
		}
		id := fmt.Sprintf("j%d", i)
		c.Create(id, domain.Job{ID: id, UserID: "u1", Status: status, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}

	newestFirst := func(a, b domain.Job) bool { return a.CreatedAt.After(b.CreatedAt) }
	queued := func(j domain.Job) bool { return j.Status == domain.JobQueued }

	page, total := c.List(queued, newestFirst, 0, 3)
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(page) != 3 {
		t.Fatalf("page size = %d, want 3", len(page))
	}
	if page[0].ID != "j9" || page[1].ID != "j7" || page[2].ID != "j5" {
		t.Fatalf("unexpected page order: %s %s %s", page[0].ID, page[1].ID, page[2].ID)
	}

	page, total = c.List(queued, newestFirst, 3, 3)
	if total != 5 || len(page) != 2 {
		t.Fatalf("second page = (%d items, total %d), want (2, 5)", len(page), total)
	}

	page, total = c.List(queued, newestFirst, 99, 3)
	if total != 5 || len(page) != 0 {
		t.Fatalf("out-of-range page = (%d items, total %d), want (0, 5)", len(page), total)
	}
}

func TestActiveJobCount(t *testing.T) {
	s := New()
	add := func(id string, userID string, status domain.JobStatus) {
		s.Jobs.Create(id, domain.Job{ID: id, UserID: userID, Status: status})
	}
	add("j1", "u1", domain.JobQueued)
	add("j2", "u1", domain.JobProcessing)
	add("j3", "u1", domain.JobPending)
	add("j4", "u1", domain.JobCompleted)
	add("j5", "u1", domain.JobCancelled)
	add("j6", "u2", domain.JobQueued)

	if got := s.ActiveJobCount("u1"); got != 3 {
		t.Fatalf("active count = %d, want 3", got)
	}
	if got := s.ActiveJobCount("u3"); got != 0 {
		t.Fatalf("active count for unknown user = %d, want 0", got)
	}
}

func TestUsageCounter_RecordAndRead(t *testing.T) {
	u := NewUsageCounter()
	day := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	u.RecordUsage("u1", 5, day)
	u.RecordUsage("u1", 10, day)
	u.RecordUsage("u1", 7, day.AddDate(0, 0, 1))

	if got := u.DailyCount("u1", day); got != 2 {
		t.Fatalf("daily = %d, want 2", got)
	}
	if got := u.MonthlyCount("u1", day); got != 3 {
		t.Fatalf("monthly = %d, want 3", got)
	}
	if got := u.DailyCount("u2", day); got != 0 {
		t.Fatalf("other user daily = %d, want 0", got)
	}

	details := u.Details("u1", day, day)
	d, ok := details["2026-08-25"]
	if !ok {
		t.Fatalf("missing detail for 2026-08-25: %v", details)
	}
	if d.VideosGenerated != 2 || d.TotalDurationSeconds != 15 {
		t.Fatalf("detail = %+v", d)
	}
	if _, ok := details["2026-08-26"]; ok {
		t.Fatalf("detail outside range should be excluded")
	}
}

func TestUsageCounter_ConcurrentRecords(t *testing.T) {
	u := NewUsageCounter()
	day := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u.RecordUsage("u1", 1, day)
		}()
	}
	wg.Wait()

	if got := u.DailyCount("u1", day); got != 50 {
		t.Fatalf("daily = %d, want 50", got)
	}
	if d := u.Details("u1", day, day)["2026-08-25"]; d.VideosGenerated != 50 || d.TotalDurationSeconds != 50 {
		t.Fatalf("detail = %+v", d)
	}
}
