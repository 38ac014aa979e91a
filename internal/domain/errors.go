package domain

import (
	"fmt"
	"net/http"
)

// UpgradeURL is attached to tier and quota errors so clients know where to go.
const UpgradeURL = "https://lumalabs.ai/pricing"

// APIError is the single error type carried from the services back to the
// HTTP boundary, where it is mapped once to a status code and the error
// envelope. Code values follow the public error taxonomy.
type APIError struct {
	Code    string
	Status  int
	Message string
	Details map[string]any
}

func (e *APIError) Error() string { return e.Message }

// Error codes.
const (
	CodeMissingCredentials     = "AUTH_MISSING_CREDENTIALS"
	CodeInvalidKey             = "AUTH_INVALID_KEY"
	CodeInsufficientTier       = "AUTH_INSUFFICIENT_TIER"
	CodePermissionDenied       = "AUTH_PERMISSION_DENIED"
	CodeQuotaExceeded          = "QUOTA_EXCEEDED"
	CodeRateLimitExceeded      = "RATE_LIMIT_EXCEEDED"
	CodeValidationError        = "VALIDATION_ERROR"
	CodeInvalidPrompt          = "INVALID_PROMPT"
	CodeJobNotFound            = "JOB_NOT_FOUND"
	CodeJobCancelled           = "JOB_CANCELLED"
	CodeVideoNotFound          = "VIDEO_NOT_FOUND"
	CodeQueueFull              = "QUEUE_FULL"
	CodeModelUnavailable       = "MODEL_UNAVAILABLE"
	CodeContentPolicyViolation = "CONTENT_POLICY_VIOLATION"
	CodeGenerationTimeout      = "GENERATION_TIMEOUT"
	CodeInternalError          = "INTERNAL_ERROR"
)

// ErrMissingCredentials is returned when no API key accompanies a request.
func ErrMissingCredentials() *APIError {
	return &APIError{
		Code:    CodeMissingCredentials,
		Status:  http.StatusUnauthorized,
		Message: "No authentication credentials provided",
	}
}

// ErrInvalidKey is returned for unknown or deactivated API keys.
func ErrInvalidKey() *APIError {
	return &APIError{
		Code:    CodeInvalidKey,
		Status:  http.StatusUnauthorized,
		Message: "Invalid API key provided",
	}
}

// ErrInsufficientTier is returned when an operation needs a higher tier.
// extra merges additional details such as requested/max duration.
func ErrInsufficientTier(current, required Tier, extra map[string]any) *APIError {
	details := map[string]any{
		"current_tier":  string(current),
		"required_tier": string(required),
		"upgrade_url":   UpgradeURL,
	}
	for k, v := range extra {
		details[k] = v
	}
	return &APIError{
		Code:    CodeInsufficientTier,
		Status:  http.StatusForbidden,
		Message: fmt.Sprintf("This operation requires %s tier or higher", required),
		Details: details,
	}
}

// ErrPermissionDenied is returned when a caller does not own a resource.
func ErrPermissionDenied(message string, details map[string]any) *APIError {
	if message == "" {
		message = "You don't have permission to access this resource"
	}
	return &APIError{
		Code:    CodePermissionDenied,
		Status:  http.StatusForbidden,
		Message: message,
		Details: details,
	}
}

// ErrQuotaExceeded is returned when a daily or concurrency quota is hit.
func ErrQuotaExceeded(quotaType string, limit, used int) *APIError {
	return &APIError{
		Code:    CodeQuotaExceeded,
		Status:  http.StatusTooManyRequests,
		Message: fmt.Sprintf("%s quota exceeded (%d/%d)", quotaType, used, limit),
		Details: map[string]any{
			"quota_type":  quotaType,
			"limit":       limit,
			"used":        used,
			"upgrade_url": UpgradeURL,
		},
	}
}

// ErrRateLimited is returned when the sliding-window limit is exhausted.
func ErrRateLimited(limit, windowSeconds, retryAfter int, tier Tier) *APIError {
	return &APIError{
		Code:    CodeRateLimitExceeded,
		Status:  http.StatusTooManyRequests,
		Message: fmt.Sprintf("Rate limit exceeded: %d requests per %ds", limit, windowSeconds),
		Details: map[string]any{
			"limit":       limit,
			"window":      fmt.Sprintf("%ds", windowSeconds),
			"retry_after": retryAfter,
			"tier":        string(tier),
			"upgrade_url": UpgradeURL,
		},
	}
}

// ErrValidation is returned for malformed request bodies or parameters.
func ErrValidation(message string, details map[string]any) *APIError {
	if message == "" {
		message = "Validation failed"
	}
	return &APIError{
		Code:    CodeValidationError,
		Status:  http.StatusBadRequest,
		Message: message,
		Details: details,
	}
}

// ErrInvalidPrompt is returned when a prompt violates the content rules.
func ErrInvalidPrompt(message string) *APIError {
	if message == "" {
		message = "The prompt is invalid"
	}
	return &APIError{
		Code:    CodeInvalidPrompt,
		Status:  http.StatusBadRequest,
		Message: message,
	}
}

// ErrJobNotFound is returned when a job id does not exist.
func ErrJobNotFound(jobID string) *APIError {
	return &APIError{
		Code:    CodeJobNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("Job '%s' not found", jobID),
		Details: map[string]any{"job_id": jobID},
	}
}

// ErrJobCancelled is returned when a job cannot be cancelled from its state.
func ErrJobCancelled(message string, details map[string]any) *APIError {
	if message == "" {
		message = "Job has been cancelled"
	}
	return &APIError{
		Code:    CodeJobCancelled,
		Status:  http.StatusConflict,
		Message: message,
		Details: details,
	}
}

// ErrVideoNotFound is returned when a video id does not exist or is not ready.
func ErrVideoNotFound(videoID string) *APIError {
	return &APIError{
		Code:    CodeVideoNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("Video '%s' not found", videoID),
		Details: map[string]any{"video_id": videoID},
	}
}

// ErrQueueFull is returned when the configured queue capacity is reached.
func ErrQueueFull() *APIError {
	return &APIError{
		Code:    CodeQueueFull,
		Status:  http.StatusServiceUnavailable,
		Message: "The processing queue is full, please try again later",
	}
}

// ErrInternal hides internals behind a generic message.
func ErrInternal() *APIError {
	return &APIError{
		Code:    CodeInternalError,
		Status:  http.StatusInternalServerError,
		Message: "An internal error occurred",
	}
}

// GenerationError is raised by generators for generation-specific failures.
// The worker records its message on the failed job.
type GenerationError struct {
	Message string
	Details map[string]any
}

func (e *GenerationError) Error() string { return e.Message }
