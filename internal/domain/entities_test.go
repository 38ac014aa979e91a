package domain

import "testing"

func TestCanTransition_Table(t *testing.T) {
	all := []JobStatus{JobPending, JobQueued, JobProcessing, JobCompleted, JobFailed, JobCancelled, JobExpired}
	allowed := map[[2]JobStatus]bool{
		{JobPending, JobQueued}:        true,
		{JobPending, JobCancelled}:     true,
		{JobQueued, JobProcessing}:     true,
		{JobQueued, JobCancelled}:      true,
		{JobQueued, JobExpired}:        true,
		{JobProcessing, JobCompleted}:  true,
		{JobProcessing, JobFailed}:     true,
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]JobStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []JobStatus{JobCompleted, JobFailed, JobCancelled, JobExpired} {
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []JobStatus{JobPending, JobQueued, JobProcessing} {
		if s.IsTerminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestPriorityForTier(t *testing.T) {
	cases := map[Tier]QueuePriority{
		TierEnterprise: PriorityCritical,
		TierPro:        PriorityHigh,
		TierDeveloper:  PriorityNormal,
		TierFree:       PriorityNormal,
	}
	for tier, want := range cases {
		if got := PriorityForTier(tier); got != want {
			t.Fatalf("PriorityForTier(%s) = %s, want %s", tier, got, want)
		}
	}
}

func TestTierAtLeast(t *testing.T) {
	if !TierEnterprise.AtLeast(TierDeveloper) {
		t.Fatalf("enterprise should satisfy developer floor")
	}
	if TierFree.AtLeast(TierDeveloper) {
		t.Fatalf("free should not satisfy developer floor")
	}
	if !TierPro.AtLeast(TierPro) {
		t.Fatalf("tier should satisfy its own floor")
	}
}

func TestConfigForTier(t *testing.T) {
	free := ConfigForTier(TierFree)
	if free.CanGenerate {
		t.Fatalf("free tier must not generate")
	}
	ent := ConfigForTier(TierEnterprise)
	if ent.DailyQuota != -1 {
		t.Fatalf("enterprise daily quota should be unlimited, got %d", ent.DailyQuota)
	}
	if ent.MaxVideoDuration != 300 {
		t.Fatalf("enterprise duration cap should be 300, got %d", ent.MaxVideoDuration)
	}
	if got := ConfigForTier(Tier("bogus")); got.CanGenerate {
		t.Fatalf("unknown tier should fall back to free config")
	}
}
