package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fairyhunter13/video-gen-api/internal/adapter/store/memstore"
	"github.com/fairyhunter13/video-gen-api/internal/domain"
	"github.com/fairyhunter13/video-gen-api/internal/service/queue"
	"github.com/fairyhunter13/video-gen-api/internal/service/ratelimiter"
	"github.com/fairyhunter13/video-gen-api/internal/service/scheduler"
)

const (
	recentRequestsMax = 100
	activeJobsMax     = 50
	dashboardInterval = time.Second
)

// DashboardHub assembles the realtime operator view: queue depths, per-user
// rate limit state, active jobs and a ring of recent requests. Each
// websocket client gets a snapshot every second.
type DashboardHub struct {
	store     *memstore.Store
	scheduler *scheduler.Scheduler
	limiter   *ratelimiter.Limiter
	log       *slog.Logger

	upgrader websocket.Upgrader

	mu     sync.Mutex
	recent []requestRecord
}

type requestRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Status    int       `json:"status"`
	UserID    string    `json:"user_id"`
	Tier      string    `json:"tier"`
	RequestID string    `json:"request_id"`
}

type queueView struct {
	Length int                 `json:"length"`
	Weight int                 `json:"weight"`
	Jobs   []domain.QueueEntry `json:"jobs"`
}

type rateLimitView struct {
	UserID        string `json:"user_id"`
	Tier          string `json:"tier"`
	Limit         int    `json:"limit"`
	Remaining     int    `json:"remaining"`
	ResetAt       int64  `json:"reset_at"`
	IsRateLimited bool   `json:"is_rate_limited"`
}

type activeJobView struct {
	JobID     string    `json:"job_id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	Priority  string    `json:"priority"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
}

type dashboardSnapshot struct {
	Queues         map[string]queueView     `json:"queues"`
	TotalQueued    int                      `json:"total_queued"`
	RateLimits     map[string]rateLimitView `json:"rate_limits"`
	ActiveJobs     []activeJobView          `json:"active_jobs"`
	RecentRequests []requestRecord          `json:"recent_requests"`
}

type wsFrame struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewDashboardHub constructs a DashboardHub.
func NewDashboardHub(store *memstore.Store, sched *scheduler.Scheduler, limiter *ratelimiter.Limiter, log *slog.Logger) *DashboardHub {
	return &DashboardHub{
		store:     store,
		scheduler: sched,
		limiter:   limiter,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The dashboard is an internal operator surface.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		recent: make([]requestRecord, 0, recentRequestsMax),
	}
}

// RecordRequest pushes one completed request onto the recent-requests ring,
// newest first.
func (h *DashboardHub) RecordRequest(r *http.Request, status int, user domain.User) {
	rec := requestRecord{
		Timestamp: time.Now().UTC(),
		Method:    r.Method,
		Path:      r.URL.Path,
		Status:    status,
		UserID:    user.ID,
		Tier:      string(user.Tier),
		RequestID: r.Header.Get("X-Request-ID"),
	}

	h.mu.Lock()
	h.recent = append([]requestRecord{rec}, h.recent...)
	if len(h.recent) > recentRequestsMax {
		h.recent = h.recent[:recentRequestsMax]
	}
	h.mu.Unlock()
}

func (h *DashboardHub) recentRequests() []requestRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]requestRecord, len(h.recent))
	copy(out, h.recent)
	return out
}

// Snapshot assembles the full dashboard state.
func (h *DashboardHub) Snapshot(ctx context.Context) dashboardSnapshot {
	snap := dashboardSnapshot{
		Queues:         make(map[string]queueView, len(domain.Priorities)),
		RateLimits:     make(map[string]rateLimitView),
		RecentRequests: h.recentRequests(),
	}

	for _, p := range domain.Priorities {
		jobs, err := h.scheduler.QueueJobs(ctx, p, activeJobsMax)
		if err != nil {
			h.log.Warn("dashboard queue read failed",
				slog.String("priority", string(p)),
				slog.String("error", err.Error()))
			jobs = nil
		}
		if jobs == nil {
			jobs = []domain.QueueEntry{}
		}
		snap.Queues[string(p)] = queueView{
			Length: len(jobs),
			Weight: queue.Weight(p),
			Jobs:   jobs,
		}
	}
	if lengths, total, err := h.scheduler.Stats(ctx); err == nil {
		snap.TotalQueued = total
		for p, n := range lengths {
			qv := snap.Queues[string(p)]
			qv.Length = n
			snap.Queues[string(p)] = qv
		}
	}

	users, _ := h.store.Users.List(nil, func(a, b domain.User) bool { return a.ID < b.ID }, 0, 0)
	for _, u := range users {
		usage := h.limiter.Usage(ctx, u, ratelimiter.DefaultEndpoint)
		snap.RateLimits[u.ID] = rateLimitView{
			UserID:        u.ID,
			Tier:          string(u.Tier),
			Limit:         usage.Limit,
			Remaining:     usage.Remaining,
			ResetAt:       usage.ResetAt,
			IsRateLimited: usage.Remaining == 0,
		}
	}

	active, _ := h.store.Jobs.List(
		func(j domain.Job) bool { return j.Status == domain.JobQueued || j.Status == domain.JobProcessing },
		func(a, b domain.Job) bool { return a.CreatedAt.After(b.CreatedAt) },
		0, activeJobsMax,
	)
	snap.ActiveJobs = make([]activeJobView, 0, len(active))
	for _, j := range active {
		prompt := j.Prompt
		if len(prompt) > 50 {
			prompt = prompt[:50] + "..."
		}
		snap.ActiveJobs = append(snap.ActiveJobs, activeJobView{
			JobID:     j.ID,
			UserID:    j.UserID,
			Status:    string(j.Status),
			Priority:  string(j.Priority),
			Prompt:    prompt,
			CreatedAt: j.CreatedAt,
		})
	}

	return snap
}

// ServeWS upgrades the connection and streams dashboard snapshots until the
// client goes away or a write fails.
func (h *DashboardHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("dashboard upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer func() { _ = conn.Close() }()

	// Drain client frames so pings and close messages are processed.
	go func() {
		for {
			if _, _, rerr := conn.ReadMessage(); rerr != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(wsFrame{Type: "connected", Timestamp: time.Now().UTC()}); err != nil {
		return
	}
	if err := h.sendUpdate(r.Context(), conn); err != nil {
		return
	}

	ticker := time.NewTicker(dashboardInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := h.sendUpdate(r.Context(), conn); err != nil {
				return
			}
		}
	}
}

func (h *DashboardHub) sendUpdate(ctx context.Context, conn *websocket.Conn) error {
	return conn.WriteJSON(wsFrame{
		Type:      "update",
		Data:      h.Snapshot(ctx),
		Timestamp: time.Now().UTC(),
	})
}
