// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	APIHost   string `env:"API_HOST" envDefault:"0.0.0.0"`
	APIPort   int    `env:"API_PORT" envDefault:"8000"`
	APIEnv    string `env:"API_ENV" envDefault:"development"`
	APIPrefix string `env:"API_PREFIX" envDefault:"/v1"`

	RedisURL            string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisMaxConnections int    `env:"REDIS_MAX_CONNECTIONS" envDefault:"100"`

	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`

	WorkerEnabled bool `env:"WORKER_ENABLED" envDefault:"true"`
	// Poll interval in seconds, fractional values allowed ("0.5", "2").
	WorkerPollSeconds float64 `env:"WORKER_POLL_INTERVAL" envDefault:"0.5"`

	// QueueCapacity bounds the total number of queued jobs across all
	// priorities. Zero means unbounded; a full queue maps to QUEUE_FULL.
	QueueCapacity int `env:"QUEUE_CAPACITY" envDefault:"0"`

	DashboardRatePerMin int `env:"DASHBOARD_RATE_PER_MIN" envDefault:"60"`

	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`

	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"video-gen-api"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	cfg.APIPrefix = normalizePrefix(cfg.APIPrefix)
	return cfg, nil
}

func normalizePrefix(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return "/v1"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(p, "/")
}

// Addr returns the host:port pair the HTTP server binds to.
func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort) }

// WorkerPollInterval returns the worker poll interval as a duration.
func (c Config) WorkerPollInterval() time.Duration {
	return time.Duration(c.WorkerPollSeconds * float64(time.Second))
}

// IsDevelopment reports whether the app is running in development mode.
func (c Config) IsDevelopment() bool { return strings.ToLower(c.APIEnv) == "development" }

// IsProduction reports whether the app is running in production mode.
func (c Config) IsProduction() bool { return strings.ToLower(c.APIEnv) == "production" }

// IsStaging reports whether the app is running in staging mode.
func (c Config) IsStaging() bool { return strings.ToLower(c.APIEnv) == "staging" }
