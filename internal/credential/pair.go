// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package credential

import (
	"strings"

	"github.com/tomtom215/traveal/internal/models"
)

// Pair holds the stored hashes of a profile's full and partial passwords.
type Pair struct {
	FullHash    string
	PartialHash string
}

// Derive produces the hash pair for a profile create or update.
//
// current is nil on create. On update, a password equal to Unchanged (or
// empty) keeps the matching hash from current and is never hashed. New
// passwords are checked against their policy, and the full and partial
// passwords must not match each other.
func (h *Hasher) Derive(full, partial string, current *Pair) (Pair, error) {
	if current == nil {
		if IsUnchanged(full) {
			return Pair{}, models.NewValidationError("full_password", "is required")
		}
		if IsUnchanged(partial) {
			return Pair{}, models.NewValidationError("partial_password", "is required")
		}
	}

	keepFull, keepPartial := IsUnchanged(full), IsUnchanged(partial)

	if !keepFull {
		if problems := FullPasswordPolicy().Check(full); len(problems) > 0 {
			return Pair{}, models.NewValidationError("full_password", strings.Join(problems, "; "))
		}
	}
	if !keepPartial {
		if problems := PartialPasswordPolicy().Check(partial); len(problems) > 0 {
			return Pair{}, models.NewValidationError("partial_password", strings.Join(problems, "; "))
		}
	}

	if err := h.checkDistinct(full, partial, keepFull, keepPartial, current); err != nil {
		return Pair{}, err
	}

	var out Pair
	if current != nil {
		out = *current
	}

	if !keepFull {
		hash, err := h.Hash(full)
		if err != nil {
			return Pair{}, models.NewInternalError("hash full password", err)
		}
		out.FullHash = hash
	}
	if !keepPartial {
		hash, err := h.Hash(partial)
		if err != nil {
			return Pair{}, models.NewInternalError("hash partial password", err)
		}
		out.PartialHash = hash
	}
	return out, nil
}

var errSamePasswords = models.NewValidationError("partial_password", "must differ from the full password")

func (h *Hasher) checkDistinct(full, partial string, keepFull, keepPartial bool, current *Pair) error {
	switch {
	case keepFull && keepPartial:
		return nil
	case !keepFull && !keepPartial:
		if full == partial {
			return errSamePasswords
		}
	case keepFull:
		if h.matches(partial, current.FullHash) {
			return errSamePasswords
		}
	case keepPartial:
		if h.matches(full, current.PartialHash) {
			return errSamePasswords
		}
	}
	return nil
}

// matches treats an unreadable stored hash as a non-match.
func (h *Hasher) matches(password, encoded string) bool {
	ok, err := h.Verify(password, encoded)
	return err == nil && ok
}
