// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/traveal/config.yaml",
	"/etc/traveal/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Caller:     false,
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Security: SecurityConfig{
			AuthMode:            "jwt",
			TokenTTL:            24 * time.Hour,
			RateLimitReqs:       100,
			RateLimitWindow:     time.Minute,
			VerifyRateLimitReqs: 10,
			CORSOrigins:         []string{},
		},
		Store: StoreConfig{
			Backend: "badger",
			Path:    "/data/traveal",
		},
		SOS: SOSConfig{
			EscalationTimeout:   60 * time.Second,
			VerifyLatencyFloor:  300 * time.Millisecond,
			DefaultThreshold:    500,
			MinThreshold:        100,
			MaxThreshold:        5000,
			MaxPasswordAttempts: 3,
			RetentionSchedule:   "@every 1h",
			RetentionAge:        30 * 24 * time.Hour,
		},
		Credential: CredentialConfig{
			Time:       3,
			MemoryKiB:  64 * 1024,
			Threads:    2,
			KeyLength:  32,
			SaltLength: 16,
		},
		Notify: NotifyConfig{
			MaxConcurrency:   4,
			ChannelTimeout:   5 * time.Second,
			ContactDelay:     250 * time.Millisecond,
			FuzzRadiusMeters: 0,
			SMS:              GatewayConfig{Provider: "log"},
			Email:            EmailConfig{Provider: "log", Port: 587, UseTLS: true, FromName: "Traveal Safety"},
			Push:             GatewayConfig{Provider: "websocket"},
			Authorities:      GatewayConfig{Provider: "log"},
			Breaker: BreakerConfig{
				MaxRequests:  2,
				Interval:     time.Minute,
				Timeout:      30 * time.Second,
				FailureRatio: 0.6,
				MinRequests:  5,
			},
		},
		Events: EventsConfig{
			BufferSize: 256,
		},
	}
}

// Load reads configuration using Koanf with layered sources.
//
// Loading order:
//  1. Defaults from defaultConfig()
//  2. Config file (if found)
//  3. Environment variables
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// HTTP_PORT -> server.port
	// SOS_ESCALATION_TIMEOUT -> sos.escalation_timeout
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns CONFIG_PATH when it exists, otherwise the first
// existing entry of DefaultConfigPaths, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated env strings into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	// Logging
	"log_level":        "logging.level",
	"log_format":       "logging.format",
	"log_caller":       "logging.caller",
	"log_file":         "logging.file_path",
	"log_max_size_mb":  "logging.max_size_mb",
	"log_max_backups":  "logging.max_backups",
	"log_max_age_days": "logging.max_age_days",
	"log_compress":     "logging.compress",

	// Security
	"auth_mode":              "security.auth_mode",
	"jwt_secret":             "security.jwt_secret",
	"jwt_token_ttl":          "security.token_ttl",
	"rate_limit_requests":    "security.rate_limit_reqs",
	"rate_limit_window":      "security.rate_limit_window",
	"disable_rate_limit":     "security.rate_limit_disabled",
	"verify_rate_limit_reqs": "security.verify_rate_limit_reqs",
	"cors_origins":           "security.cors_origins",

	// Store
	"store_backend":   "store.backend",
	"store_path":      "store.path",
	"store_in_memory": "store.in_memory",

	// SOS
	"sos_escalation_timeout":    "sos.escalation_timeout",
	"sos_verify_latency_floor":  "sos.verify_latency_floor",
	"sos_default_threshold":     "sos.default_threshold",
	"sos_min_threshold":         "sos.min_threshold",
	"sos_max_threshold":         "sos.max_threshold",
	"sos_max_password_attempts": "sos.max_password_attempts",
	"sos_retention_schedule":    "sos.retention_schedule",
	"sos_retention_age":         "sos.retention_age",

	// Credential hashing
	"argon2_time":        "credential.time",
	"argon2_memory_kib":  "credential.memory_kib",
	"argon2_threads":     "credential.threads",
	"argon2_key_length":  "credential.key_length",
	"argon2_salt_length": "credential.salt_length",

	// Notification fan-out
	"notify_max_concurrency":  "notify.max_concurrency",
	"notify_channel_timeout":  "notify.channel_timeout",
	"notify_contact_delay":    "notify.contact_delay",
	"notify_fuzz_radius":      "notify.fuzz_radius_meters",
	"sms_provider":            "notify.sms.provider",
	"sms_url":                 "notify.sms.url",
	"sms_api_key":             "notify.sms.api_key",
	"sms_sender":              "notify.sms.sender",
	"smtp_provider":           "notify.email.provider",
	"smtp_host":               "notify.email.host",
	"smtp_port":               "notify.email.port",
	"smtp_username":           "notify.email.username",
	"smtp_password":           "notify.email.password",
	"smtp_from":               "notify.email.from",
	"smtp_from_name":          "notify.email.from_name",
	"smtp_use_tls":            "notify.email.use_tls",
	"push_provider":           "notify.push.provider",
	"push_url":                "notify.push.url",
	"push_api_key":            "notify.push.api_key",
	"authorities_provider":    "notify.authorities.provider",
	"authorities_webhook_url": "notify.authorities.url",
	"authorities_api_key":     "notify.authorities.api_key",
	"breaker_max_requests":    "notify.breaker.max_requests",
	"breaker_interval":        "notify.breaker.interval",
	"breaker_timeout":         "notify.breaker.timeout",
	"breaker_failure_ratio":   "notify.breaker.failure_ratio",
	"breaker_min_requests":    "notify.breaker.min_requests",

	// Events
	"events_buffer_size": "events.buffer_size",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Only explicitly mapped variables are loaded; everything else is skipped so
// unrelated environment variables cannot pollute the configuration.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - JWT_SECRET -> security.jwt_secret
//   - SMS_PROVIDER -> notify.sms.provider
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
