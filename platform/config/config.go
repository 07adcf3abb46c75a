// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// RedisConfig provides the Redis connection used by the reply dedup cache.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// SchedulerConfig provides settings for the asynq client and worker.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// WhatsAppConfig provides settings for the Evolution API sender.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppInstance() string
}

// WebhookConfig provides settings for the inbound Evolution webhook.
type WebhookConfig interface {
	GetWhatsAppInstance() string
	GetWebhookKey() string
	GetWebhookTimeout() time.Duration
}

// ConfirmationConfig provides tuning for the reply correlation pipeline.
type ConfirmationConfig interface {
	GetMinConfidence() float64
	GetReplyDedupWindow() time.Duration
	GetWatchReconcileInterval() time.Duration
	GetWatchLookback() time.Duration
	GetWatchLookahead() time.Duration
	GetConfirmationTemplate() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                    string
	HTTPAddr               string
	DatabaseURL            string
	RedisURL               string
	RedisTLSInsecure       bool
	AsynqQueueName         string
	AsynqConcurrency       int
	JWTAccessSecret        string
	CORSAllowAll           bool
	CORSOrigins            []string
	WhatsAppURL            string
	WhatsAppKey            string
	WhatsAppInstance       string
	WebhookKey             string
	WebhookTimeout         time.Duration
	MinConfidence          float64
	ReplyDedupWindow       time.Duration
	WatchReconcileInterval time.Duration
	WatchLookback          time.Duration
	WatchLookahead         time.Duration
	ConfirmationTemplate   string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// RedisConfig / SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// WhatsAppConfig / WebhookConfig implementation
func (c *Config) GetWhatsAppURL() string           { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string           { return c.WhatsAppKey }
func (c *Config) GetWhatsAppInstance() string      { return c.WhatsAppInstance }
func (c *Config) GetWebhookKey() string            { return c.WebhookKey }
func (c *Config) GetWebhookTimeout() time.Duration { return c.WebhookTimeout }
func (c *Config) IsWhatsAppEnabled() bool          { return c.WhatsAppURL != "" }

// ConfirmationConfig implementation
func (c *Config) GetMinConfidence() float64                { return c.MinConfidence }
func (c *Config) GetReplyDedupWindow() time.Duration       { return c.ReplyDedupWindow }
func (c *Config) GetWatchReconcileInterval() time.Duration { return c.WatchReconcileInterval }
func (c *Config) GetWatchLookback() time.Duration          { return c.WatchLookback }
func (c *Config) GetWatchLookahead() time.Duration         { return c.WatchLookahead }
func (c *Config) GetConfirmationTemplate() string          { return c.ConfirmationTemplate }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	for _, origin := range corsOrigins {
		if origin == "*" {
			corsAllowAll = true
		}
	}

	cfg := &Config{
		Env:                    getEnv("APP_ENV", "development"),
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		RedisURL:               getEnv("REDIS_URL", ""),
		RedisTLSInsecure:       strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:         getEnv("ASYNQ_QUEUE", "confirmations"),
		AsynqConcurrency:       mustInt(getEnv("ASYNQ_CONCURRENCY", "5")),
		JWTAccessSecret:        getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:           corsAllowAll,
		CORSOrigins:            corsOrigins,
		WhatsAppURL:            getEnv("EVOLUTION_API_URL", ""),
		WhatsAppKey:            getEnv("EVOLUTION_API_KEY", ""),
		WhatsAppInstance:       getEnv("EVOLUTION_INSTANCE", ""),
		WebhookKey:             getEnv("EVOLUTION_WEBHOOK_KEY", ""),
		WebhookTimeout:         mustDuration(getEnv("WEBHOOK_TIMEOUT", "10s")),
		MinConfidence:          mustFloat(getEnv("CONFIRMATION_MIN_CONFIDENCE", "0.15")),
		ReplyDedupWindow:       mustDuration(getEnv("REPLY_DEDUP_WINDOW", "5m")),
		WatchReconcileInterval: mustDuration(getEnv("WATCH_RECONCILE_INTERVAL", "10m")),
		WatchLookback:          mustDuration(getEnv("WATCH_LOOKBACK", "168h")),
		WatchLookahead:         mustDuration(getEnv("WATCH_LOOKAHEAD", "720h")),
		ConfirmationTemplate:   getEnv("CONFIRMATION_TEMPLATE", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.ReplyDedupWindow <= 0 {
		return nil, fmt.Errorf("REPLY_DEDUP_WINDOW must be a positive duration")
	}
	if cfg.MinConfidence < 0 || cfg.MinConfidence > 1 {
		return nil, fmt.Errorf("CONFIRMATION_MIN_CONFIDENCE must be within [0, 1]")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return -1
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}
