// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package credential

import (
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/traveal/internal/models"
)

const (
	testFull    = "Sunrise2026"
	testPartial = "Moon42x"
)

// newTestHasher uses cheap parameters so the suite stays fast.
func newTestHasher() *Hasher {
	return NewHasher(Params{Time: 1, MemoryKiB: 1024, Threads: 1, KeyLength: 32, SaltLength: 16})
}

func TestHasher_HashAndVerify(t *testing.T) {
	t.Parallel()

	h := newTestHasher()
	encoded, err := h.Hash(testFull)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Errorf("unexpected encoding: %s", encoded)
	}
	if strings.Contains(encoded, testFull) {
		t.Fatal("encoded hash contains the plaintext password")
	}

	ok, err := h.Verify(testFull, encoded)
	if err != nil || !ok {
		t.Errorf("Verify(correct) = %v, %v; want true, nil", ok, err)
	}
	ok, err = h.Verify("Sunrise2027", encoded)
	if err != nil || ok {
		t.Errorf("Verify(wrong) = %v, %v; want false, nil", ok, err)
	}
}

func TestHasher_SaltIsRandom(t *testing.T) {
	t.Parallel()

	h := newTestHasher()
	a, err := h.Hash(testFull)
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.Hash(testFull)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two hashes of the same password are identical; salt is not random")
	}
}

func TestHasher_VerifyUsesStoredParams(t *testing.T) {
	t.Parallel()

	encoded, err := newTestHasher().Hash(testFull)
	if err != nil {
		t.Fatal(err)
	}

	// A hasher with different configured costs still verifies old hashes.
	other := NewHasher(Params{Time: 2, MemoryKiB: 2048, Threads: 1})
	ok, err := other.Verify(testFull, encoded)
	if err != nil || !ok {
		t.Errorf("Verify() with different params = %v, %v; want true, nil", ok, err)
	}
}

func TestHasher_VerifyMalformed(t *testing.T) {
	t.Parallel()

	h := newTestHasher()
	tests := []struct {
		name    string
		encoded string
		wantErr error
	}{
		{"empty", "", ErrInvalidHash},
		{"plaintext", testFull, ErrInvalidHash},
		{"bcrypt", "$2a$12$abcdefghijklmnopqrstuv", ErrInvalidHash},
		{"wrong version", "$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$a2V5", ErrIncompatibleVersion},
		{"bad params", "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5", ErrInvalidHash},
		{"zero time", "$argon2id$v=19$m=1024,t=0,p=1$c2FsdA$a2V5", ErrInvalidHash},
		{"bad salt", "$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5", ErrInvalidHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ok, err := h.Verify(testFull, tt.encoded)
			if ok {
				t.Error("Verify() = true for malformed hash")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsUnchanged(t *testing.T) {
	t.Parallel()

	for _, s := range []string{Unchanged, ""} {
		if !IsUnchanged(s) {
			t.Errorf("IsUnchanged(%q) = false", s)
		}
	}
	if IsUnchanged("Unchanged1") {
		t.Error("IsUnchanged matched a real password")
	}
}

func TestPasswordPolicies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		policy   PasswordPolicy
		password string
		wantOK   bool
		wantMsg  string
	}{
		{"full ok", FullPasswordPolicy(), testFull, true, ""},
		{"full too short", FullPasswordPolicy(), "Sun26ab", false, "at least 8"},
		{"full no upper", FullPasswordPolicy(), "sunrise2026", false, "uppercase"},
		{"full no lower", FullPasswordPolicy(), "SUNRISE2026", false, "lowercase"},
		{"full no digit", FullPasswordPolicy(), "SunriseSunset", false, "digit"},
		{"full common", FullPasswordPolicy(), "Password123", false, "common"},
		{"full repeats", FullPasswordPolicy(), "Saaaaa2026", false, "repeat"},
		{"partial ok", PartialPasswordPolicy(), testPartial, true, ""},
		{"partial too short", PartialPasswordPolicy(), "Mo42x", false, "at least 6"},
		{"partial no digit", PartialPasswordPolicy(), "Moonxyz", false, "digit"},
		{"partial counts runes", PartialPasswordPolicy(), "Ünö4ab", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			problems := tt.policy.Check(tt.password)
			if ok := len(problems) == 0; ok != tt.wantOK {
				t.Fatalf("Check(%q) problems = %v, wantOK %v", tt.password, problems, tt.wantOK)
			}
			if tt.wantMsg != "" && !strings.Contains(strings.Join(problems, "; "), tt.wantMsg) {
				t.Errorf("Check(%q) = %v, want message containing %q", tt.password, problems, tt.wantMsg)
			}
		})
	}
}

func TestDerive_Create(t *testing.T) {
	t.Parallel()

	h := newTestHasher()
	pair, err := h.Derive(testFull, testPartial, nil)
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	if pair.FullHash == pair.PartialHash {
		t.Fatal("full and partial hashes are identical")
	}
	if ok, _ := h.Verify(testFull, pair.FullHash); !ok {
		t.Error("full password does not verify against full hash")
	}
	if ok, _ := h.Verify(testPartial, pair.PartialHash); !ok {
		t.Error("partial password does not verify against partial hash")
	}
	if ok, _ := h.Verify(testPartial, pair.FullHash); ok {
		t.Error("partial password verifies against full hash")
	}
}

func TestDerive_Rejections(t *testing.T) {
	t.Parallel()

	h := newTestHasher()
	existing, err := h.Derive(testFull, testPartial, nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		full    string
		partial string
		current *Pair
		field   string
	}{
		{"create with unchanged full", Unchanged, testPartial, nil, "full_password"},
		{"create with unchanged partial", testFull, Unchanged, nil, "partial_password"},
		{"create with empty full", "", testPartial, nil, "full_password"},
		{"weak full", "weak", testPartial, nil, "full_password"},
		{"weak partial", testFull, "abc", nil, "partial_password"},
		{"identical new passwords", "Sunrise2026", "Sunrise2026", nil, "partial_password"},
		{"new partial equals stored full", Unchanged, testFull, &existing, "partial_password"},
		{"new full equals stored partial", "Moon42xYZ", Unchanged, &Pair{FullHash: existing.FullHash, PartialHash: mustHash(t, h, "Moon42xYZ")}, "partial_password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := h.Derive(tt.full, tt.partial, tt.current)
			var ve *models.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Derive() error = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestDerive_UnchangedKeepsStoredHash(t *testing.T) {
	t.Parallel()

	h := newTestHasher()
	existing, err := h.Derive(testFull, testPartial, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Settings-only update: neither hash may change.
	same, err := h.Derive(Unchanged, "", &existing)
	if err != nil {
		t.Fatalf("Derive(unchanged) error = %v", err)
	}
	if same != existing {
		t.Error("unchanged sentinel replaced a stored hash")
	}
	if ok, _ := h.Verify(Unchanged, same.FullHash); ok {
		t.Fatal("sentinel was hashed as a literal password")
	}

	// Partial-only rotation keeps the full hash.
	rotated, err := h.Derive(Unchanged, "Star77q", &existing)
	if err != nil {
		t.Fatalf("Derive(partial only) error = %v", err)
	}
	if rotated.FullHash != existing.FullHash {
		t.Error("full hash changed on a partial-only update")
	}
	if ok, _ := h.Verify("Star77q", rotated.PartialHash); !ok {
		t.Error("rotated partial password does not verify")
	}
}

func mustHash(t *testing.T, h *Hasher, password string) string {
	t.Helper()
	encoded, err := h.Hash(password)
	if err != nil {
		t.Fatal(err)
	}
	return encoded
}
