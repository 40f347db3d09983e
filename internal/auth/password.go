package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// PasswordPolicy validates new account passwords before they are hashed.
type PasswordPolicy struct {
	MinLength int
}

// DefaultPasswordPolicy mirrors the usual minimum-length, not-all-numeric,
// not-too-common checks.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 8}
}

var commonPasswords = map[string]struct{}{
	"password":   {},
	"password1":  {},
	"12345678":   {},
	"123456789":  {},
	"qwerty123":  {},
	"iloveyou":   {},
	"admin123":   {},
	"letmein123": {},
}

func (p PasswordPolicy) Validate(password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("password must be at least %d characters", p.MinLength)
	}
	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		return errors.New("password is too common")
	}
	allDigits := true
	for _, r := range password {
		if !unicode.IsDigit(r) {
			allDigits = false
			break
		}
	}
	if allDigits {
		return errors.New("password cannot be entirely numeric")
	}
	return nil
}
