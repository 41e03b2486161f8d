// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package credential

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// PasswordPolicy defines the strength requirements for an SOS password.
type PasswordPolicy struct {
	// MinLength is counted in characters, not bytes.
	MinLength int

	RequireUppercase bool
	RequireLowercase bool
	RequireDigit     bool

	// MaxConsecutiveRepeats is the maximum run of one repeated character (0 = disabled).
	MaxConsecutiveRepeats int

	// ForbidCommonPasswords rejects passwords from the breached list.
	ForbidCommonPasswords bool
}

// FullPasswordPolicy is the policy for the password that stands an alert down.
func FullPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:             8,
		RequireUppercase:      true,
		RequireLowercase:      true,
		RequireDigit:          true,
		MaxConsecutiveRepeats: 4,
		ForbidCommonPasswords: true,
	}
}

// PartialPasswordPolicy is the policy for the duress password. It is shorter
// so it can be typed quickly under pressure.
func PartialPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:             6,
		RequireUppercase:      true,
		RequireLowercase:      true,
		RequireDigit:          true,
		ForbidCommonPasswords: true,
	}
}

type charClasses struct {
	hasUpper bool
	hasLower bool
	hasDigit bool
}

func analyzeCharClasses(password string) charClasses {
	var cc charClasses
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			cc.hasUpper = true
		case unicode.IsLower(r):
			cc.hasLower = true
		case unicode.IsDigit(r):
			cc.hasDigit = true
		}
	}
	return cc
}

func maxConsecutiveRepeats(password string) int {
	longest, run := 0, 0
	var last rune
	for i, r := range password {
		if i > 0 && r == last {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		last = r
	}
	return longest
}

// Check returns every policy violation for password. An empty result means
// the password is acceptable.
func (p PasswordPolicy) Check(password string) []string {
	var problems []string

	if n := utf8.RuneCountInString(password); n < p.MinLength {
		problems = append(problems, fmt.Sprintf("must be at least %d characters", p.MinLength))
	}

	cc := analyzeCharClasses(password)
	if p.RequireUppercase && !cc.hasUpper {
		problems = append(problems, "must contain at least one uppercase letter")
	}
	if p.RequireLowercase && !cc.hasLower {
		problems = append(problems, "must contain at least one lowercase letter")
	}
	if p.RequireDigit && !cc.hasDigit {
		problems = append(problems, "must contain at least one digit")
	}

	if p.MaxConsecutiveRepeats > 0 && maxConsecutiveRepeats(password) > p.MaxConsecutiveRepeats {
		problems = append(problems,
			fmt.Sprintf("cannot repeat a character more than %d times in a row", p.MaxConsecutiveRepeats))
	}

	if p.ForbidCommonPasswords && isCommonPassword(password) {
		problems = append(problems, "is too common and easily guessable")
	}

	return problems
}

var commonPasswords = map[string]struct{}{
	"123456": {}, "password": {}, "12345678": {}, "123456789": {}, "1234567890": {},
	"qwerty": {}, "qwerty1": {}, "qwerty123": {}, "abc123": {}, "abcd1234": {},
	"password1": {}, "password123": {}, "passw0rd": {}, "p@ssw0rd": {}, "welcome1": {},
	"welcome123": {}, "letmein": {}, "letmein1": {}, "iloveyou": {}, "iloveyou1": {},
	"sunshine1": {}, "princess1": {}, "monkey1": {}, "dragon1": {}, "football1": {},
	"baseball1": {}, "superman1": {}, "trustno1": {}, "changeme1": {}, "admin123": {},
	"test123": {}, "secret1": {}, "india123": {}, "india@123": {}, "kerala123": {},
	"traveal": {}, "traveal1": {}, "traveal123": {}, "safety1": {}, "safe123": {},
	"help123": {}, "sos123": {}, "emergency1": {},
}

func isCommonPassword(password string) bool {
	_, ok := commonPasswords[strings.ToLower(password)]
	return ok
}
