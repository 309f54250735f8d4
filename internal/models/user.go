package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	// CodeTTL is how long a confirmation code stays valid after sending.
	CodeTTL = 5 * time.Minute

	// ResendWindow is the minimum gap between two code requests.
	ResendWindow = time.Minute

	// MaxCodeAttempts is the number of wrong codes before the user has to
	// request a fresh one.
	MaxCodeAttempts = 5
)

// User is an account identified by a phone number. Accounts are created on
// the first code request and become verified after the first successful
// code confirmation.
type User struct {
	ID          uuid.UUID `json:"id" db:"id"`
	PhoneNumber string    `json:"phone_number" db:"phone_number"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	IsVerified  bool      `json:"is_verified" db:"is_verified"`

	ConfirmationCode string     `json:"-" db:"confirmation_code"`
	CodeSentAt       *time.Time `json:"-" db:"code_sent_at"`
	CodeAttempts     int        `json:"-" db:"code_attempts"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsCodeExpired reports whether the confirmation code is past its TTL.
// A user with no recorded send time has no valid code.
func (u *User) IsCodeExpired(now time.Time) bool {
	if u.CodeSentAt == nil {
		return true
	}
	return now.After(u.CodeSentAt.Add(CodeTTL))
}

// CanResend reports whether enough time has passed since the last code was
// sent for another one to be requested.
func (u *User) CanResend(now time.Time) bool {
	if u.CodeSentAt == nil {
		return true
	}
	return now.After(u.CodeSentAt.Add(ResendWindow))
}

// Session is an opaque bearer token issued after code verification. Only the
// SHA-256 of the token is stored.
type Session struct {
	ID        int64     `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	TokenHash string    `json:"-" db:"token_hash"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsExpired reports whether the session is past its expiry.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
