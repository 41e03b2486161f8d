// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

// Package credential hashes and verifies the SOS full and partial (duress)
// passwords.
//
// Hashes are argon2id, encoded in the PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>
//
// The parameters are stored with each hash, so changing the configured
// cost does not invalidate existing hashes. Verification re-derives the key
// with the stored salt and parameters and compares in constant time.
package credential

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Unchanged is the sentinel a client sends in place of a password to keep
// the stored hash. It must never be hashed.
const Unchanged = "unchanged"

// IsUnchanged reports whether password is the keep-stored-hash sentinel.
// The empty string counts as unchanged for updates.
func IsUnchanged(password string) bool {
	return password == Unchanged || password == ""
}

// ErrInvalidHash is returned when a stored hash cannot be parsed.
var ErrInvalidHash = errors.New("credential: invalid encoded hash")

// ErrIncompatibleVersion is returned for hashes produced by another argon2 version.
var ErrIncompatibleVersion = errors.New("credential: incompatible argon2 version")

// Params are the argon2id cost parameters.
type Params struct {
	Time       uint32
	MemoryKiB  uint32
	Threads    uint8
	KeyLength  uint32
	SaltLength uint32
}

// DefaultParams returns the production cost parameters.
func DefaultParams() Params {
	return Params{
		Time:       3,
		MemoryKiB:  64 * 1024,
		Threads:    2,
		KeyLength:  32,
		SaltLength: 16,
	}
}

// Hasher hashes and verifies passwords.
type Hasher struct {
	params Params
}

// NewHasher creates a Hasher. Zero fields in params take their defaults.
func NewHasher(params Params) *Hasher {
	def := DefaultParams()
	if params.Time == 0 {
		params.Time = def.Time
	}
	if params.MemoryKiB == 0 {
		params.MemoryKiB = def.MemoryKiB
	}
	if params.Threads == 0 {
		params.Threads = def.Threads
	}
	if params.KeyLength == 0 {
		params.KeyLength = def.KeyLength
	}
	if params.SaltLength == 0 {
		params.SaltLength = def.SaltLength
	}
	return &Hasher{params: params}
}

// Hash derives a salted argon2id hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.MemoryKiB, h.params.Threads, h.params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKiB, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. The comparison is
// constant time. An error is returned only when encoded is malformed.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	p, salt, key, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	other := argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKiB, p.Threads, p.KeyLength)
	return subtle.ConstantTimeCompare(key, other) == 1, nil
}

func decodeHash(encoded string) (Params, []byte, []byte, error) {
	var p Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return p, nil, nil, ErrIncompatibleVersion
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	if p.Time == 0 || p.MemoryKiB == 0 || p.Threads == 0 {
		return p, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrInvalidHash
	}
	p.SaltLength = uint32(len(salt)) //nolint:gosec // bounded by stored hash
	p.KeyLength = uint32(len(key))   //nolint:gosec // bounded by stored hash

	return p, salt, key, nil
}
