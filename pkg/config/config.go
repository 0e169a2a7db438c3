package config

import (
	"time"

	"github.com/Proton-105/storefront-bot/pkg/redis"
)

// Config holds runtime configuration for the storefront bot.
type Config struct {
	AppEnv    string          `mapstructure:"app_env"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Bot       BotConfig       `mapstructure:"bot"`
	Server    ServerConfig    `mapstructure:"server"`
	Redis     redis.Config    `mapstructure:"redis"`
	Commerce  CommerceConfig  `mapstructure:"commerce"`
	Session   SessionConfig   `mapstructure:"session"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// LoggerConfig controls slog output.
type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=text json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// SentryConfig enables error forwarding to Sentry.
type SentryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn" validate:"required_if=Enabled true"`
}

// BotConfig configures the Telegram transport.
type BotConfig struct {
	Token         string        `mapstructure:"token" validate:"required"`
	Mode          string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	Timeout       time.Duration `mapstructure:"timeout"`
	WebhookListen string        `mapstructure:"webhook_listen" validate:"required_if=Mode webhook"`
	WebhookURL    string        `mapstructure:"webhook_url" validate:"required_if=Mode webhook"`
}

// ServerConfig configures the ops HTTP endpoint (metrics and probes).
type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CommerceConfig configures the Elastic Path (Moltin) API client.
type CommerceConfig struct {
	BaseURL  string        `mapstructure:"base_url" validate:"required,url"`
	ClientID string        `mapstructure:"client_id" validate:"required"`
	Timeout  time.Duration `mapstructure:"timeout"`
	TokenKey string        `mapstructure:"token_key" validate:"required"`
}

// SessionConfig controls per-chat serialization of updates.
type SessionConfig struct {
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
	LockWait time.Duration `mapstructure:"lock_wait"`
}

// RateLimitRule is a single "limit per window" rule; Window uses time.ParseDuration syntax.
type RateLimitRule struct {
	Limit  int    `mapstructure:"limit" validate:"gte=0"`
	Window string `mapstructure:"window"`
}

// RateLimitConfig configures per-chat throttling of incoming updates.
type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	PerUser   RateLimitRule `mapstructure:"per_user"`
	Whitelist []int64       `mapstructure:"whitelist"`
}
