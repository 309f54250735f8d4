package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/pawtrack/pawtrack/internal/models"
)

// SessionTTL is how long an issued bearer token stays valid.
const SessionTTL = 30 * 24 * time.Hour

var (
	// ErrCodeRecentlySent means the resend window has not elapsed yet.
	ErrCodeRecentlySent = errors.New("confirmation code already sent, try again later")

	// ErrCodeExpired means the stored code is past its TTL.
	ErrCodeExpired = errors.New("confirmation code expired, request a new one")

	// ErrTooManyAttempts means the attempt budget for this code is spent.
	ErrTooManyAttempts = errors.New("too many attempts, request a new code")

	// ErrInvalidCode means the submitted code does not match.
	ErrInvalidCode = errors.New("invalid confirmation code")

	// ErrUserNotFound means no account exists for the phone number.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidToken means the bearer token is unknown or expired.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// SendCode generates a confirmation code for the phone number, stores it on
// the (possibly new) user record and hands it to the calling gateway. The
// code row is written before the outbound call, so a delivery failure only
// costs the user a resend, never a lost account state.
func (s *Service) SendCode(ctx context.Context, rawPhone string) (string, error) {
	phone, err := models.NormalizePhone(rawPhone)
	if err != nil {
		return "", err
	}

	now := s.clock()

	user, err := s.Users.GetByPhone(ctx, phone)
	if err != nil {
		return "", fmt.Errorf("failed to lookup user by phone: %w", err)
	}

	if user != nil && !user.CanResend(now) {
		return "", ErrCodeRecentlySent
	}

	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate confirmation code: %w", err)
	}

	if user == nil {
		user = &models.User{
			PhoneNumber:      phone,
			IsActive:         true,
			ConfirmationCode: code,
			CodeSentAt:       &now,
		}
		if user, err = s.Users.Create(ctx, user); err != nil {
			return "", fmt.Errorf("failed to create user for %s: %w", phone, err)
		}
		s.logger.Infof("Created unverified user for %s", phone)
	} else {
		user.ConfirmationCode = code
		user.CodeSentAt = &now
		user.CodeAttempts = 0
		if user, err = s.Users.Update(ctx, user); err != nil {
			return "", fmt.Errorf("failed to store confirmation code: %w", err)
		}
	}

	if err := s.codeSender.SendCode(ctx, phone, code); err != nil {
		// Queue-and-forget: the stored code is still valid and the user
		// can re-request after the resend window.
		s.logger.Errorf("Failed to deliver confirmation code to %s: %v", phone, err)
	}

	return phone, nil
}

// VerifyCode checks the submitted code, marks the user verified and issues a
// bearer token. The raw token is returned once; only its hash is stored.
func (s *Service) VerifyCode(ctx context.Context, rawPhone, code string) (*models.User, string, error) {
	phone, err := models.NormalizePhone(rawPhone)
	if err != nil {
		return nil, "", err
	}

	user, err := s.Users.GetByPhone(ctx, phone)
	if err != nil {
		return nil, "", fmt.Errorf("failed to lookup user by phone: %w", err)
	}
	if user == nil {
		return nil, "", ErrUserNotFound
	}

	now := s.clock()

	if user.IsCodeExpired(now) {
		return nil, "", ErrCodeExpired
	}
	if user.CodeAttempts >= models.MaxCodeAttempts {
		return nil, "", ErrTooManyAttempts
	}

	if user.ConfirmationCode == "" || user.ConfirmationCode != code {
		user.CodeAttempts++
		if _, err := s.Users.Update(ctx, user); err != nil {
			return nil, "", fmt.Errorf("failed to record failed attempt: %w", err)
		}
		return nil, "", ErrInvalidCode
	}

	user.CodeAttempts = 0
	user.ConfirmationCode = ""
	user.IsVerified = true
	user.LastLoginAt = &now
	if user, err = s.Users.Update(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to mark user verified: %w", err)
	}

	token, err := generateToken()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	session := &models.Session{
		UserID:    user.ID,
		TokenHash: hashToken(token),
		ExpiresAt: now.Add(SessionTTL),
	}
	if _, err := s.Sessions.Create(ctx, session); err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Infof("User %s verified and logged in", phone)
	return user, token, nil
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	session, err := s.Sessions.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		return nil, fmt.Errorf("failed to lookup session: %w", err)
	}
	if session == nil || session.IsExpired(s.clock()) {
		return nil, ErrInvalidToken
	}

	user, err := s.Users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup session user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, ErrInvalidToken
	}

	return user, nil
}

// Logout revokes the bearer token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.Sessions.DeleteByTokenHash(ctx, hashToken(token)); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// generateCode produces a 4-digit confirmation code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()+1000), nil
}

// generateToken produces a 256-bit random bearer token in hex.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
