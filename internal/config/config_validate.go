// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Validate checks configuration for required fields and valid values
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateLogging(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	if err := c.validateSOS(); err != nil {
		return err
	}

	if err := c.validateCredential(); err != nil {
		return err
	}

	return c.validateNotify()
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
	return nil
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// validateSecurity validates security configuration
func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case "jwt":
		if err := c.validateJWTSecret(); err != nil {
			return err
		}
	case "none":
		// Refuse to start without authentication in production.
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE=none is not allowed when ENVIRONMENT=production")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be one of: jwt, none")
	}

	if c.Security.AuthMode != "none" && c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production with authentication enabled")
	}

	return c.validateRateLimits()
}

// validateJWTSecret validates the JWT secret configuration
func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_MODE is jwt")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters for security")
	}
	if c.Security.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TOKEN_TTL must be positive")
	}
	return nil
}

// hasWildcardCORS checks if CORS is configured with wildcard origins
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// validateRateLimits validates rate limiting configuration bounds.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.VerifyRateLimitReqs < minRateLimitRequests || c.Security.VerifyRateLimitReqs > c.Security.RateLimitReqs {
		return fmt.Errorf("VERIFY_RATE_LIMIT_REQS must be between %d and RATE_LIMIT_REQUESTS", minRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case "memory":
		return nil
	case "badger":
		if c.Store.Path == "" && !c.Store.InMemory {
			return fmt.Errorf("STORE_PATH is required for the badger backend")
		}
		return nil
	default:
		return fmt.Errorf("STORE_BACKEND must be memory or badger")
	}
}

// validateSOS validates alert lifecycle and route monitoring settings
func (c *Config) validateSOS() error {
	s := c.SOS
	if s.EscalationTimeout <= 0 {
		return fmt.Errorf("SOS_ESCALATION_TIMEOUT must be positive")
	}
	if s.VerifyLatencyFloor < 0 {
		return fmt.Errorf("SOS_VERIFY_LATENCY_FLOOR must not be negative")
	}
	if s.MinThreshold <= 0 || s.MinThreshold > s.MaxThreshold {
		return fmt.Errorf("SOS_MIN_THRESHOLD must be positive and not exceed SOS_MAX_THRESHOLD")
	}
	if s.DefaultThreshold < s.MinThreshold || s.DefaultThreshold > s.MaxThreshold {
		return fmt.Errorf("SOS_DEFAULT_THRESHOLD must be between %.0f and %.0f", s.MinThreshold, s.MaxThreshold)
	}
	if s.MaxPasswordAttempts < 1 {
		return fmt.Errorf("SOS_MAX_PASSWORD_ATTEMPTS must be at least 1")
	}
	if _, err := cron.ParseStandard(s.RetentionSchedule); err != nil {
		return fmt.Errorf("SOS_RETENTION_SCHEDULE is invalid: %w", err)
	}
	if s.RetentionAge <= 0 {
		return fmt.Errorf("SOS_RETENTION_AGE must be positive")
	}
	return nil
}

func (c *Config) validateCredential() error {
	p := c.Credential
	if p.Time < 1 || p.Threads < 1 {
		return fmt.Errorf("ARGON2_TIME and ARGON2_THREADS must be at least 1")
	}
	if p.MemoryKiB < 8*uint32(p.Threads) {
		return fmt.Errorf("ARGON2_MEMORY_KIB must be at least 8 * ARGON2_THREADS")
	}
	if p.KeyLength < 16 || p.SaltLength < 8 {
		return fmt.Errorf("ARGON2_KEY_LENGTH must be >= 16 and ARGON2_SALT_LENGTH >= 8")
	}
	return nil
}

// validateNotify validates fan-out tuning and channel providers
func (c *Config) validateNotify() error {
	n := c.Notify
	if n.MaxConcurrency < 1 {
		return fmt.Errorf("NOTIFY_MAX_CONCURRENCY must be at least 1")
	}
	if n.ChannelTimeout <= 0 {
		return fmt.Errorf("NOTIFY_CHANNEL_TIMEOUT must be positive")
	}
	if n.ContactDelay < 0 || n.FuzzRadiusMeters < 0 {
		return fmt.Errorf("NOTIFY_CONTACT_DELAY and NOTIFY_FUZZ_RADIUS must not be negative")
	}
	if n.Breaker.FailureRatio <= 0 || n.Breaker.FailureRatio > 1 {
		return fmt.Errorf("BREAKER_FAILURE_RATIO must be in (0, 1]")
	}

	if err := validateGateway("SMS", n.SMS, "log", "http"); err != nil {
		return err
	}
	if err := validateGateway("PUSH", n.Push, "log", "http", "websocket"); err != nil {
		return err
	}
	if err := validateGateway("AUTHORITIES", n.Authorities, "log", "webhook"); err != nil {
		return err
	}
	return c.validateEmail()
}

func validateGateway(name string, g GatewayConfig, providers ...string) error {
	known := false
	for _, p := range providers {
		if g.Provider == p {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%s_PROVIDER must be one of: %s", name, strings.Join(providers, ", "))
	}
	if g.Provider == "http" || g.Provider == "webhook" {
		return validateHTTPURL(g.URL, name+"_URL")
	}
	return nil
}

func (c *Config) validateEmail() error {
	e := c.Notify.Email
	switch e.Provider {
	case "log":
		return nil
	case "smtp":
		if e.Host == "" || e.From == "" {
			return fmt.Errorf("SMTP_HOST and SMTP_FROM are required for the smtp provider")
		}
		if e.Port < 1 || e.Port > 65535 {
			return fmt.Errorf("SMTP_PORT must be between 1 and 65535")
		}
		return nil
	default:
		return fmt.Errorf("SMTP_PROVIDER must be log or smtp")
	}
}
