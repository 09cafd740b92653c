package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all environment backed configuration for leafwise-server.
type Config struct {
	// Service settings
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"leafwise-server"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8190"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"console"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Vision / LLM provider
	VisionAPIKey      string        `env:"VISION_API_KEY,notEmpty"`
	VisionBaseURL     string        `env:"VISION_BASE_URL"`
	VisionModel       string        `env:"VISION_MODEL" envDefault:"gpt-4o-mini"`
	VisionTimeout     time.Duration `env:"VISION_TIMEOUT" envDefault:"60s"`
	VisionDailyQuota  int           `env:"VISION_DAILY_QUOTA" envDefault:"1500"`
	VisionMinInterval time.Duration `env:"VISION_MIN_INTERVAL" envDefault:"1s"`

	// Species identification
	ConfidenceThreshold float64 `env:"CONFIDENCE_THRESHOLD" envDefault:"0.3"`

	// Catalog providers
	PerenualAPIKey      string        `env:"PERENUAL_API_KEY"`
	PerenualBaseURL     string        `env:"PERENUAL_BASE_URL" envDefault:"https://perenual.com/api"`
	TrefleAPIKey        string        `env:"TREFLE_API_KEY"`
	TrefleBaseURL       string        `env:"TREFLE_BASE_URL" envDefault:"https://trefle.io/api/v1"`
	CatalogDailyQuota   int           `env:"CATALOG_DAILY_QUOTA" envDefault:"90"`
	CatalogMinInterval  time.Duration `env:"CATALOG_MIN_INTERVAL" envDefault:"700ms"`
	CatalogCacheTTL     time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"24h"`
	CatalogCallTimeout  time.Duration `env:"CATALOG_CALL_TIMEOUT" envDefault:"15s"`

	// Response cache backend; empty means in-memory
	CacheRedisURL string `env:"CACHE_REDIS_URL"`

	// Free tier
	FreeTierAllowance  int `env:"FREE_TIER_ALLOWANCE" envDefault:"3"`
	FreeTierWindowDays int `env:"FREE_TIER_WINDOW_DAYS" envDefault:"30"`

	// Billing collaborator; empty means every caller is treated as free tier
	BillingURL        string        `env:"BILLING_URL"`
	BillingServiceKey string        `env:"BILLING_SERVICE_KEY"`
	BillingTimeout    time.Duration `env:"BILLING_TIMEOUT" envDefault:"5s"`

	// HTTP boundary
	RateLimitPerMinute float64 `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	MaxImageBytes      int64   `env:"MAX_IMAGE_BYTES" envDefault:"102400"`
}

// Load parses environment variables into Config and performs minimal validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("CONFIDENCE_THRESHOLD must be within [0,1], got %v", cfg.ConfidenceThreshold)
	}
	if cfg.FreeTierAllowance < 1 {
		return nil, fmt.Errorf("FREE_TIER_ALLOWANCE must be at least 1")
	}
	if cfg.FreeTierWindowDays < 1 {
		return nil, fmt.Errorf("FREE_TIER_WINDOW_DAYS must be at least 1")
	}
	if strings.TrimSpace(cfg.PerenualAPIKey) == "" && strings.TrimSpace(cfg.TrefleAPIKey) == "" {
		// Catalog enrichment degrades to placeholder records without keys,
		// which is valid for development but worth flagging early.
		fmt.Println("warning: no catalog provider API keys configured; lookups will return basic records")
	}

	return cfg, nil
}

// Addr returns the HTTP server address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
