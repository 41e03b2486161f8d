// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/traveal/internal/config"
)

func testJWTConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		JWTSecret: "test-secret-key-that-is-at-least-32-characters-long",
		TokenTTL:  time.Hour,
	}
}

func TestNewJWTManager(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *config.SecurityConfig
		wantErr bool
	}{
		{"valid secret", testJWTConfig(), false},
		{"empty secret", &config.SecurityConfig{TokenTTL: time.Hour}, true},
		{"default ttl", &config.SecurityConfig{JWTSecret: "test-secret-key-that-is-at-least-32-characters-long"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			manager, err := NewJWTManager(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("NewJWTManager() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewJWTManager() unexpected error = %v", err)
			}
			if manager.timeout <= 0 {
				t.Errorf("timeout = %v", manager.timeout)
			}
		})
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	t.Parallel()

	manager, err := NewJWTManager(testJWTConfig())
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}

	token, err := manager.GenerateToken("user-42")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID() != "user-42" {
		t.Errorf("UserID() = %q, want user-42", claims.UserID())
	}
	if claims.Issuer != tokenIssuer {
		t.Errorf("Issuer = %q", claims.Issuer)
	}

	if _, err := manager.GenerateToken(""); err == nil {
		t.Error("GenerateToken(\"\") expected error")
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	t.Parallel()

	manager, _ := NewJWTManager(testJWTConfig())
	other, _ := NewJWTManager(&config.SecurityConfig{JWTSecret: "another-secret-key-that-is-at-least-32-chars", TokenTTL: time.Hour})
	expired := &JWTManager{secret: manager.secret, timeout: -time.Minute}

	foreign, _ := other.GenerateToken("user-1")
	stale, _ := expired.GenerateToken("user-1")

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(manager.secret)

	wrongAlg, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(manager.secret)

	tests := []struct {
		name  string
		token string
	}{
		{"malformed", "not.a.token"},
		{"empty", ""},
		{"wrong secret", foreign},
		{"expired", stale},
		{"no subject", noSubject},
		{"wrong algorithm", wrongAlg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := manager.ValidateToken(tt.token); err == nil {
				t.Error("ValidateToken() expected error")
			}
		})
	}
}
