package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/video-gen-api/internal/adapter/store/memstore"
	"github.com/fairyhunter13/video-gen-api/internal/config"
	"github.com/fairyhunter13/video-gen-api/internal/domain"
	"github.com/fairyhunter13/video-gen-api/internal/service/ratelimiter"
	"github.com/fairyhunter13/video-gen-api/internal/usecase"
)

// Version is the API version reported by the root and health endpoints.
const Version = "1.0.0"

// Server carries the handler dependencies.
type Server struct {
	Cfg     config.Config
	Store   *memstore.Store
	Jobs    *usecase.JobService
	Videos  *usecase.VideoService
	Account *usecase.AccountService
	Limiter *ratelimiter.Limiter
	Hub     *DashboardHub

	// RedisPing reports whether the shared Redis backend is reachable.
	// Nil when the service runs on the in-process store only.
	RedisPing func(ctx context.Context) error
}

// NewServer constructs a Server.
func NewServer(cfg config.Config, store *memstore.Store, jobs *usecase.JobService, videos *usecase.VideoService, account *usecase.AccountService, limiter *ratelimiter.Limiter, hub *DashboardHub) *Server {
	return &Server{
		Cfg:     cfg,
		Store:   store,
		Jobs:    jobs,
		Videos:  videos,
		Account: account,
		Limiter: limiter,
		Hub:     hub,
	}
}

func pageParams(r *http.Request) (page, perPage int) {
	page, perPage = 1, 20
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v >= 1 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && v >= 1 && v <= 100 {
		perPage = v
	}
	return page, perPage
}

// Generate handles POST /generate.
func (s *Server) Generate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFrom(r.Context())

		var req generationRequest
		if apiErr := decodeJSON(r, &req); apiErr != nil {
			writeError(w, r, apiErr)
			return
		}
		if apiErr := validateGeneration(req); apiErr != nil {
			writeError(w, r, apiErr)
			return
		}

		job, err := s.Jobs.Create(r.Context(), req.toUsecase(), user)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, toJobResponse(job))
	}
}

// BatchGenerate handles POST /generate/batch. Every request in the batch is
// validated before any job is created, so a bad entry rejects the whole
// batch.
func (s *Server) BatchGenerate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFrom(r.Context())

		var batch batchGenerationRequest
		if apiErr := decodeJSON(r, &batch); apiErr != nil {
			writeError(w, r, apiErr)
			return
		}
		if err := getValidator().Struct(batch); err != nil {
			writeError(w, r, domain.ErrValidation("Batch must contain between 1 and 10 requests", map[string]any{
				"count": len(batch.Requests),
			}))
			return
		}
		for i, req := range batch.Requests {
			if apiErr := validateGeneration(req); apiErr != nil {
				apiErr.Details = map[string]any{"index": i, "cause": apiErr.Details}
				writeError(w, r, apiErr)
				return
			}
		}

		jobIDs := make([]string, 0, len(batch.Requests))
		for _, req := range batch.Requests {
			job, err := s.Jobs.Create(r.Context(), req.toUsecase(), user)
			if err != nil {
				writeError(w, r, err)
				return
			}
			jobIDs = append(jobIDs, job.ID)
		}

		writeJSON(w, http.StatusAccepted, map[string]any{
			"job_ids":      jobIDs,
			"total_queued": len(jobIDs),
		})
	}
}

type modelInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	MaxDuration int      `json:"max_duration"`
	Resolutions []string `json:"resolutions"`
	Styles      []string `json:"styles"`
	Default     bool     `json:"default"`
}

// Models handles GET /generate/models with the static model catalogue.
func (s *Server) Models() http.HandlerFunc {
	models := []modelInfo{
		{
			ID:          "dream-machine-1.5",
			Name:        "Dream Machine 1.5",
			Description: "Latest generation model with improved quality and motion",
			MaxDuration: 300,
			Resolutions: []string{"480p", "720p", "1080p", "4k"},
			Styles:      []string{"cinematic", "anime", "realistic", "artistic", "documentary"},
			Default:     true,
		},
		{
			ID:          "dream-machine-1.0",
			Name:        "Dream Machine 1.0",
			Description: "Previous generation model",
			MaxDuration: 120,
			Resolutions: []string{"480p", "720p", "1080p"},
			Styles:      []string{"cinematic", "realistic"},
		},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"models": models})
	}
}

// ListJobs handles GET /jobs.
func (s *Server) ListJobs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFrom(r.Context())
		page, perPage := pageParams(r)
		status := domain.JobStatus(r.URL.Query().Get("status"))

		jobs, total := s.Jobs.List(user, page, perPage, status)
		writeJSON(w, http.StatusOK, paginate(toJobResponses(jobs), total, page, perPage))
	}
}

// GetJob handles GET /jobs/{jobID}, refreshing the queue position for
// queued jobs.
func (s *Server) GetJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFrom(r.Context())
		job, err := s.Jobs.Position(r.Context(), chi.URLParam(r, "jobID"), user)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toJobResponse(job))
	}
}

// CancelJob handles DELETE /jobs/{jobID}.
func (s *Server) CancelJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFrom(r.Context())
		job, err := s.Jobs.Cancel(r.Context(), chi.URLParam(r, "jobID"), user)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toJobResponse(job))
	}
}

// ListVideos handles GET /videos.
func (s *Server) ListVideos() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFrom(r.Context())
		page, perPage := pageParams(r)
		status := domain.VideoStatus(r.URL.Query().Get("status"))

		videos, total := s.Videos.List(user, page, perPage, status)
		writeJSON(w, http.StatusOK, paginate(videos, total, page, perPage))
	}
}

// GetVideo handles GET /videos/{videoID}.
func (s *Server) GetVideo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFrom(r.Context())
		video, err := s.Videos.Get(chi.URLParam(r, "videoID"), user)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, video)
	}
}

// StreamVideo handles GET /videos/{videoID}/stream.
func (s *Server) StreamVideo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFrom(r.Context())
		videoID := chi.URLParam(r, "videoID")
		url, err := s.Videos.StreamURL(videoID, user)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"video_id":   videoID,
			"stream_url": url,
			"expires_in": usecase.StreamURLTTLSeconds,
		})
	}
}

// DeleteVideo handles DELETE /videos/{videoID}.
func (s *Server) DeleteVideo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFrom(r.Context())
		if err := s.Videos.Delete(chi.URLParam(r, "videoID"), user); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// AccountInfo handles GET /account.
func (s *Server) AccountInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFrom(r.Context())
		cfg := domain.ConfigForTier(user.Tier)
		writeJSON(w, http.StatusOK, map[string]any{
			"user_id":    user.ID,
			"email":      user.Email,
			"tier":       user.Tier,
			"created_at": user.CreatedAt,
			"is_active":  user.IsActive,
			"limits": map[string]any{
				"rate_limit_per_minute": cfg.RateLimitPerMinute,
				"daily_quota":           quotaValue(cfg.DailyQuota),
				"max_video_duration":    cfg.MaxVideoDuration,
				"max_concurrent_jobs":   cfg.MaxConcurrentJobs,
				"can_generate":          cfg.CanGenerate,
				"can_batch_generate":    cfg.CanBatchGenerate,
			},
		})
	}
}

// AccountUsage handles GET /account/usage.
func (s *Server) AccountUsage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFrom(r.Context())
		period := r.URL.Query().Get("period")
		if period != "" && period != "daily" && period != "monthly" {
			writeError(w, r, domain.ErrValidation("period must be 'daily' or 'monthly'", map[string]any{
				"period": period,
			}))
			return
		}

		usage := s.Account.GetUsage(user, period)
		writeJSON(w, http.StatusOK, map[string]any{
			"user_id":                usage.UserID,
			"tier":                   usage.Tier,
			"period":                 usage.Period,
			"requests_made":          usage.RequestsMade,
			"videos_generated":       usage.VideosGenerated,
			"total_duration_seconds": usage.TotalDurationSeconds,
			"period_start":           usage.PeriodStart,
			"period_end":             usage.PeriodEnd,
		})
	}
}

// AccountQuota handles GET /account/quota.
func (s *Server) AccountQuota() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFrom(r.Context())
		quota := s.Account.GetQuota(r.Context(), user)
		writeJSON(w, http.StatusOK, map[string]any{
			"user_id": quota.UserID,
			"tier":    quota.Tier,
			"rate_limit": map[string]any{
				"limit":          quota.RateLimit.Limit,
				"remaining":      quota.RateLimit.Remaining,
				"reset_at":       quota.RateLimit.ResetAt,
				"window_seconds": quota.RateLimit.WindowSeconds,
			},
			"daily_quota": map[string]any{
				"limit":     quotaValue(quota.DailyLimit),
				"used":      quota.DailyUsed,
				"remaining": quotaValue(quota.DailyRemaining),
			},
			"concurrent_jobs": map[string]any{
				"limit":     quota.ConcurrentLimit,
				"active":    quota.ConcurrentActive,
				"available": quota.ConcurrentLimit - quota.ConcurrentActive,
			},
			"max_video_duration": quota.MaxVideoDuration,
			"can_generate":       quota.CanGenerate,
			"can_batch_generate": quota.CanBatchGenerate,
		})
	}
}

// quotaValue renders a negative limit as the "unlimited" marker the public
// API documents.
func quotaValue(v int) any {
	if v < 0 {
		return "unlimited"
	}
	return v
}

// Health handles GET /health. Redis being down degrades the service rather
// than failing the probe outright.
func (s *Server) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]string{
			"api":      "up",
			"database": "up",
			"redis":    "up",
		}
		status := "healthy"

		if s.RedisPing == nil {
			components["redis"] = "disconnected"
			status = "degraded"
		} else {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := s.RedisPing(ctx); err != nil {
				components["redis"] = "disconnected"
				status = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":     status,
			"version":    Version,
			"components": components,
			"timestamp":  time.Now().UTC(),
		})
	}
}

// Root handles GET / with basic service discovery info.
func (s *Server) Root() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"name":          "Luma Labs Enterprise API",
			"version":       Version,
			"documentation": "/docs",
			"health":        "/health",
		})
	}
}
