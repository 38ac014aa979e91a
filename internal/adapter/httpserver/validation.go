package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/video-gen-api/internal/domain"
	"github.com/fairyhunter13/video-gen-api/internal/usecase"
)

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// prohibitedTerms stands in for a real content policy check.
var prohibitedTerms = []string{"explicit", "violence", "harmful"}

// generationRequest is the wire shape of a generation call.
type generationRequest struct {
	Prompt      string         `json:"prompt" validate:"required,min=1,max=2000"`
	Duration    int            `json:"duration" validate:"omitempty,min=1,max=300"`
	Resolution  string         `json:"resolution" validate:"omitempty,oneof=480p 720p 1080p 4k"`
	Style       string         `json:"style" validate:"omitempty,oneof=cinematic anime realistic artistic documentary"`
	AspectRatio string         `json:"aspect_ratio" validate:"omitempty,oneof=16:9 9:16 1:1 4:3"`
	Model       string         `json:"model"`
	WebhookURL  string         `json:"webhook_url" validate:"omitempty,url"`
	Metadata    map[string]any `json:"metadata"`
}

type batchGenerationRequest struct {
	Requests []generationRequest `json:"requests" validate:"required,min=1,max=10"`
}

// toUsecase applies defaults and converts to the usecase request.
func (g generationRequest) toUsecase() usecase.GenerationRequest {
	if g.Duration == 0 {
		g.Duration = 10
	}
	if g.Resolution == "" {
		g.Resolution = string(domain.Res1080p)
	}
	if g.AspectRatio == "" {
		g.AspectRatio = string(domain.Aspect16x9)
	}
	if g.Model == "" {
		g.Model = "dream-machine-1.5"
	}
	return usecase.GenerationRequest{
		Prompt:      g.Prompt,
		Duration:    g.Duration,
		Resolution:  domain.Resolution(g.Resolution),
		Style:       domain.VideoStyle(g.Style),
		AspectRatio: domain.AspectRatio(g.AspectRatio),
		Model:       g.Model,
		WebhookURL:  g.WebhookURL,
		Metadata:    g.Metadata,
	}
}

func decodeJSON(r *http.Request, v interface{}) *domain.APIError {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.ErrValidation("Invalid request body", map[string]any{"error": err.Error()})
	}
	return nil
}

// validateGeneration runs structural validation and the content policy
// check on one generation request.
func validateGeneration(req generationRequest) *domain.APIError {
	if err := getValidator().Struct(req); err != nil {
		details := map[string]any{}
		if verrs, ok := err.(validator.ValidationErrors); ok {
			fields := make([]map[string]any, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, map[string]any{
					"field": strings.ToLower(fe.Field()),
					"rule":  fe.Tag(),
				})
			}
			details["fields"] = fields
		}
		return domain.ErrValidation("Validation failed", details)
	}

	lower := strings.ToLower(req.Prompt)
	for _, term := range prohibitedTerms {
		if strings.Contains(lower, term) {
			return domain.ErrInvalidPrompt(fmt.Sprintf("Prompt contains prohibited content: %s", term))
		}
	}
	return nil
}
