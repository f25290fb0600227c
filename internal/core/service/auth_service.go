package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mailroom/inbox-system/internal/core/domain"
	"github.com/mailroom/inbox-system/internal/core/ports"
)

const (
	defaultLockoutThreshold = 5
	defaultLockoutWindow    = 15 * time.Minute
	defaultLockoutDuration  = 15 * time.Minute
)

// LockoutPolicy controls account lockout after repeated failures: Threshold
// failures within Window lock the account for Duration.
type LockoutPolicy struct {
	Threshold int
	Window    time.Duration
	Duration  time.Duration
}

// AuthService orchestrates the user directory, credential hasher and session
// lifecycle. Account-not-found and wrong-password are indistinguishable to
// callers: both surface as domain.ErrInvalidCredentials.
type AuthService struct {
	users    ports.UserRepository
	sessions ports.SessionLifecycle
	hasher   ports.CredentialHasher
	lockout  LockoutPolicy
	logger   zerolog.Logger
}

// NewAuthService builds an AuthService. Zero lockout policy fields fall back
// to defaults.
func NewAuthService(users ports.UserRepository, sessions ports.SessionLifecycle, hasher ports.CredentialHasher, lockout LockoutPolicy, logger zerolog.Logger) *AuthService {
	if lockout.Threshold <= 0 {
		lockout.Threshold = defaultLockoutThreshold
	}
	if lockout.Window <= 0 {
		lockout.Window = defaultLockoutWindow
	}
	if lockout.Duration <= 0 {
		lockout.Duration = defaultLockoutDuration
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		lockout:  lockout,
		logger:   logger,
	}
}

// NormalizeEmail case-folds and trims an identifier. All lookups and writes
// go through this, so "Alice@X.com " and "alice@x.com" are the same account.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new account. Returns domain.ErrUserExists when the
// normalized email is already taken.
func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (*domain.User, error) {
	email = NormalizeEmail(email)
	displayName = strings.TrimSpace(displayName)
	if email == "" || password == "" || displayName == "" {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", created.ID).Msg("user registered")
	return created, nil
}

// Login verifies credentials and, on success, mints a session whose TTL
// depends on the declared device class.
func (s *AuthService) Login(ctx context.Context, email, password string, device domain.DeviceClass) (*domain.Session, *domain.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Burn the same verification cost as the real-account path so
			// response timing does not reveal whether the account exists.
			s.hasher.Verify(password, s.hasher.DummyHash())
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	now := time.Now().UTC()
	if user.IsLocked(now) {
		return nil, nil, domain.ErrAccountLocked
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.recordFailure(ctx, user, now)
		return nil, nil, domain.ErrInvalidCredentials
	}

	if err := s.users.RecordSuccess(ctx, user.ID, now); err != nil {
		// Login still succeeds; the counter reset is best effort.
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record login success")
	}
	user.FailedAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now

	session, err := s.sessions.Create(ctx, user.ID, device)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("device_class", string(device)).
		Time("expires_at", session.ExpiresAt).
		Msg("login succeeded")
	return session, user, nil
}

// recordFailure advances the rolling-window failure counter. The counting
// and the lock decision happen inside the repository's single document
// write, so concurrent failed attempts cannot undercount each other.
func (s *AuthService) recordFailure(ctx context.Context, user *domain.User, now time.Time) {
	attempts, err := s.users.RecordFailure(ctx, user.ID, now, s.lockout.Window, s.lockout.Threshold, s.lockout.Duration)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record login failure")
		return
	}
	if attempts >= s.lockout.Threshold {
		s.logger.Warn().
			Str("user_id", user.ID).
			Int("failed_attempts", attempts).
			Time("locked_until", now.Add(s.lockout.Duration)).
			Msg("account locked")
	}
}

// Logout destroys the session. Idempotent.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Destroy(ctx, sessionID)
}

// ValidateSession resolves a session id to a live session.
func (s *AuthService) ValidateSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.sessions.Validate(ctx, sessionID)
}
