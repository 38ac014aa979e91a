package domain

// Tier is a subscription level. It parameterises rate limit, daily quota,
// concurrency, duration cap, queue weight and feature gates.
type Tier string

const (
	TierFree       Tier = "free"
	TierDeveloper  Tier = "developer"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// TierConfig is the static configuration of one tier.
type TierConfig struct {
	RateLimitPerMinute  int
	DailyQuota          int // -1 means unlimited
	MaxConcurrentJobs   int
	MaxVideoDuration    int // seconds
	QueuePriorityWeight int
	CanGenerate         bool
	CanBatchGenerate    bool
}

var tierConfigs = map[Tier]TierConfig{
	TierFree: {
		RateLimitPerMinute:  10,
		DailyQuota:          100,
		MaxConcurrentJobs:   0,
		MaxVideoDuration:    0,
		QueuePriorityWeight: 0,
		CanGenerate:         false,
		CanBatchGenerate:    false,
	},
	TierDeveloper: {
		RateLimitPerMinute:  30,
		DailyQuota:          500,
		MaxConcurrentJobs:   3,
		MaxVideoDuration:    30,
		QueuePriorityWeight: 1,
		CanGenerate:         true,
		CanBatchGenerate:    false,
	},
	TierPro: {
		RateLimitPerMinute:  100,
		DailyQuota:          5000,
		MaxConcurrentJobs:   10,
		MaxVideoDuration:    120,
		QueuePriorityWeight: 5,
		CanGenerate:         true,
		CanBatchGenerate:    true,
	},
	TierEnterprise: {
		RateLimitPerMinute:  1000,
		DailyQuota:          -1,
		MaxConcurrentJobs:   100,
		MaxVideoDuration:    300,
		QueuePriorityWeight: 10,
		CanGenerate:         true,
		CanBatchGenerate:    true,
	},
}

// ConfigForTier returns the static configuration of a tier. Unknown tiers
// get the free configuration.
func ConfigForTier(t Tier) TierConfig {
	if cfg, ok := tierConfigs[t]; ok {
		return cfg
	}
	return tierConfigs[TierFree]
}

var tierRank = map[Tier]int{
	TierFree:       0,
	TierDeveloper:  1,
	TierPro:        2,
	TierEnterprise: 3,
}

// AtLeast reports whether t ranks at or above min.
func (t Tier) AtLeast(min Tier) bool {
	return tierRank[t] >= tierRank[min]
}

// PriorityForTier maps a tier to its queue priority. Tiers without a queue
// share (free) map to normal; they are rejected before enqueue anyway.
func PriorityForTier(t Tier) QueuePriority {
	switch t {
	case TierEnterprise:
		return PriorityCritical
	case TierPro:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}
