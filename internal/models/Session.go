package models

import (
	"time"

	"gorm.io/gorm"
)

// Session binds an issued bearer token to a user so logout can revoke it.
// The token's jti claim is the TokenID here; a token with no matching
// session row is rejected even if its signature is still valid.
type Session struct {
	gorm.Model
	UserID    uint      `json:"user_id" gorm:"index"`
	TokenID   string    `json:"token_id" gorm:"uniqueIndex"`
	ExpiresAt time.Time `json:"expires_at"`
}
