// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package config

import (
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in values for every setting
//  2. Config File: Optional YAML file (config.yaml or CONFIG_PATH)
//  3. Environment Variables: Override any mapped setting
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	server := http.Server{Addr: cfg.Server.Addr()}
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Security   SecurityConfig   `koanf:"security"`
	Store      StoreConfig      `koanf:"store"`
	SOS        SOSConfig        `koanf:"sos"`
	Credential CredentialConfig `koanf:"credential"`
	Notify     NotifyConfig     `koanf:"notify"`
	Events     EventsConfig     `koanf:"events"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`

	// FilePath enables rotated file output in addition to stderr.
	FilePath   string `koanf:"file_path"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// SecurityConfig holds authentication and request limiting settings
type SecurityConfig struct {
	// AuthMode is jwt or none. none trusts the X-User-ID header and is for
	// local development only.
	AuthMode  string        `koanf:"auth_mode"`
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	// VerifyRateLimitReqs limits password verification per client per window.
	VerifyRateLimitReqs int      `koanf:"verify_rate_limit_reqs"`
	CORSOrigins         []string `koanf:"cors_origins"`
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Backend  string `koanf:"backend"` // memory or badger
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// SOSConfig holds alert lifecycle settings
type SOSConfig struct {
	EscalationTimeout   time.Duration `koanf:"escalation_timeout"`
	VerifyLatencyFloor  time.Duration `koanf:"verify_latency_floor"`
	DefaultThreshold    float64       `koanf:"default_threshold"`
	MinThreshold        float64       `koanf:"min_threshold"`
	MaxThreshold        float64       `koanf:"max_threshold"`
	MaxPasswordAttempts int           `koanf:"max_password_attempts"`
	RetentionSchedule   string        `koanf:"retention_schedule"`
	RetentionAge        time.Duration `koanf:"retention_age"`
}

// CredentialConfig holds argon2id work factors
type CredentialConfig struct {
	Time       uint32 `koanf:"time"`
	MemoryKiB  uint32 `koanf:"memory_kib"`
	Threads    uint8  `koanf:"threads"`
	KeyLength  uint32 `koanf:"key_length"`
	SaltLength uint32 `koanf:"salt_length"`
}

// NotifyConfig holds notification fan-out settings
type NotifyConfig struct {
	MaxConcurrency   int           `koanf:"max_concurrency"`
	ChannelTimeout   time.Duration `koanf:"channel_timeout"`
	ContactDelay     time.Duration `koanf:"contact_delay"`
	FuzzRadiusMeters float64       `koanf:"fuzz_radius_meters"`

	SMS         GatewayConfig `koanf:"sms"`
	Email       EmailConfig   `koanf:"email"`
	Push        GatewayConfig `koanf:"push"`
	Authorities GatewayConfig `koanf:"authorities"`
	Breaker     BreakerConfig `koanf:"breaker"`
}

// GatewayConfig configures an HTTP-backed channel.
//
// Provider values:
//   - sms: log, http
//   - push: log, http, websocket
//   - authorities: log, webhook
type GatewayConfig struct {
	Provider string `koanf:"provider"`
	URL      string `koanf:"url"`
	APIKey   string `koanf:"api_key"`
	Sender   string `koanf:"sender"`
}

// EmailConfig configures the email channel. Provider is log or smtp.
type EmailConfig struct {
	Provider string `koanf:"provider"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	FromName string `koanf:"from_name"`
	UseTLS   bool   `koanf:"use_tls"`
}

// BreakerConfig tunes the per-channel circuit breakers
type BreakerConfig struct {
	MaxRequests  uint32        `koanf:"max_requests"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	FailureRatio float64       `koanf:"failure_ratio"`
	MinRequests  uint32        `koanf:"min_requests"`
}

// EventsConfig tunes the in-process event bus
type EventsConfig struct {
	BufferSize int64 `koanf:"buffer_size"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
