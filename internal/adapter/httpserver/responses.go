// Package httpserver contains HTTP handlers and middleware.
//
// It exposes the REST API for video generation: job submission and
// lifecycle, video resources, account and quota reporting, plus the
// realtime dashboard websocket. HTTP concerns stay here; business rules
// live in the usecase services.
package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fairyhunter13/video-gen-api/internal/domain"
)

const docsBaseURL = "https://docs.lumalabs.ai/errors"

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code             string      `json:"code"`
	Message          string      `json:"message"`
	Details          interface{} `json:"details,omitempty"`
	RequestID        string      `json:"request_id,omitempty"`
	Timestamp        time.Time   `json:"timestamp"`
	DocumentationURL string      `json:"documentation_url"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps any error to the error envelope. Services speak
// *domain.APIError; everything else is hidden behind INTERNAL_ERROR.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		LoggerFrom(r).Error("unhandled error", "error", err.Error())
		apiErr = domain.ErrInternal()
	}
	writeJSON(w, apiErr.Status, errorEnvelope{Error: apiError{
		Code:             apiErr.Code,
		Message:          apiErr.Message,
		Details:          apiErr.Details,
		RequestID:        r.Header.Get("X-Request-ID"),
		Timestamp:        time.Now().UTC(),
		DocumentationURL: fmt.Sprintf("%s/%s", docsBaseURL, apiErr.Code),
	}})
}

type paginationMeta struct {
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

type paginatedResponse struct {
	Items interface{}    `json:"items"`
	Meta  paginationMeta `json:"meta"`
}

func paginate(items interface{}, total, page, perPage int) paginatedResponse {
	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return paginatedResponse{
		Items: items,
		Meta: paginationMeta{
			Total:      total,
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}
}

// jobResponse is the public shape of a job.
type jobResponse struct {
	JobID         string     `json:"job_id"`
	Status        string     `json:"status"`
	QueuePosition *int       `json:"queue_position,omitempty"`
	EstimatedWait *string    `json:"estimated_wait,omitempty"` // ISO 8601 duration
	Progress      *float64   `json:"progress,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	VideoID       string     `json:"video_id,omitempty"`
	Error         string     `json:"error,omitempty"`
}

func toJobResponse(job domain.Job) jobResponse {
	var estimate *string
	if job.EstimatedWaitSeconds != nil {
		s := isoDuration(*job.EstimatedWaitSeconds)
		estimate = &s
	}
	return jobResponse{
		JobID:         job.ID,
		Status:        string(job.Status),
		QueuePosition: job.QueuePosition,
		EstimatedWait: estimate,
		Progress:      job.Progress,
		CreatedAt:     job.CreatedAt,
		StartedAt:     job.StartedAt,
		CompletedAt:   job.CompletedAt,
		VideoID:       job.VideoID,
		Error:         job.Error,
	}
}

// isoDuration renders seconds as an ISO 8601 duration, PT2M30S style.
func isoDuration(seconds int) string {
	return fmt.Sprintf("PT%dM%dS", seconds/60, seconds%60)
}

func toJobResponses(jobs []domain.Job) []jobResponse {
	out := make([]jobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJobResponse(j))
	}
	return out
}
