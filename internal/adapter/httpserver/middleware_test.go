package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/fairyhunter13/video-gen-api/internal/domain"
)

func TestRateLimit_HeadersCountDown(t *testing.T) {
	h := testRouter(newTestServer(t))

	for i := 0; i < 3; i++ {
		rec := doJSON(t, h, http.MethodGet, "/v1/generate/models", "dev_test_key", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "30" {
			t.Fatalf("limit header = %q", got)
		}
		want := strconv.Itoa(30 - 1 - i)
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != want {
			t.Fatalf("remaining after request %d = %q, want %q", i, got, want)
		}
		if got := rec.Header().Get("X-RateLimit-Policy"); got != "sliding-window" {
			t.Fatalf("policy header = %q", got)
		}
		if got := rec.Header().Get("X-RateLimit-Window"); got != "60" {
			t.Fatalf("window header = %q", got)
		}
	}
}

func TestRateLimit_DeniesOverLimit(t *testing.T) {
	h := testRouter(newTestServer(t))

	// The free tier gets 10 requests per minute.
	var rec *httptest.ResponseRecorder
	for i := 0; i < 11; i++ {
		rec = doJSON(t, h, http.MethodGet, "/v1/generate/models", "free_test_key", nil)
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if code := errorCode(t, rec); code != domain.CodeRateLimitExceeded {
		t.Fatalf("code = %q", code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("remaining = %q, want 0", got)
	}
}

func TestRateLimit_PassThroughWithoutKey(t *testing.T) {
	h := testRouter(newTestServer(t))

	// No key: the limiter steps aside and auth produces the 401.
	rec := doJSON(t, h, http.MethodGet, "/v1/jobs", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "" {
		t.Fatalf("rate limit headers must not be set without a key")
	}

	// Unknown key: same.
	rec = doJSON(t, h, http.MethodGet, "/v1/jobs", "bogus", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "" {
		t.Fatalf("rate limit headers must not be set for unknown keys")
	}
}

func TestRateLimit_ExcludedPaths(t *testing.T) {
	h := testRouter(newTestServer(t))

	for i := 0; i < 15; i++ {
		rec := doJSON(t, h, http.MethodGet, "/health", "free_test_key", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("health request %d status = %d", i, rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "" {
			t.Fatalf("health must bypass the limiter")
		}
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	srv := newTestServer(t)
	srv.Cfg.RateLimitEnabled = false
	h := testRouter(srv)

	for i := 0; i < 15; i++ {
		rec := doJSON(t, h, http.MethodGet, "/v1/generate/models", "free_test_key", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
}

func TestRequestID_GeneratedAndEchoed(t *testing.T) {
	h := testRouter(newTestServer(t))

	rec := doJSON(t, h, http.MethodGet, "/health", "", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing generated X-Request-ID")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-fixed-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "req-fixed-123" {
		t.Fatalf("X-Request-ID = %q, want echo of caller value", got)
	}
}
