package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mailroom/inbox-system/internal/core/domain"
	"github.com/mailroom/inbox-system/internal/core/ports"
)

const (
	defaultUntrustedTTL = 30 * time.Minute
	defaultTrustedTTL   = 720 * time.Hour

	sessionIDBytes = 32
)

// TTLPolicy maps a device class to a session duration. The exact numbers are
// deployment policy; the structural requirement is that the trusted TTL is
// never shorter than the untrusted one.
type TTLPolicy struct {
	Trusted   time.Duration
	Untrusted time.Duration
}

// SessionLifecycle creates, validates and destroys sessions against a
// durable store. Expiry is lazy: an expired session is treated as absent on
// the next use, never resurrected.
type SessionLifecycle struct {
	store  ports.SessionStore
	policy TTLPolicy
	logger zerolog.Logger
}

// NewSessionLifecycle builds a SessionLifecycle. Non-positive TTLs fall back
// to defaults, and a trusted TTL below the untrusted one is raised to match
// it so the ordering invariant holds regardless of configuration.
func NewSessionLifecycle(store ports.SessionStore, policy TTLPolicy, logger zerolog.Logger) *SessionLifecycle {
	if policy.Untrusted <= 0 {
		policy.Untrusted = defaultUntrustedTTL
	}
	if policy.Trusted <= 0 {
		policy.Trusted = defaultTrustedTTL
	}
	if policy.Trusted < policy.Untrusted {
		logger.Warn().
			Dur("trusted_ttl", policy.Trusted).
			Dur("untrusted_ttl", policy.Untrusted).
			Msg("trusted session TTL below untrusted, raising to match")
		policy.Trusted = policy.Untrusted
	}
	return &SessionLifecycle{store: store, policy: policy, logger: logger}
}

// TTL returns the session duration for a device class.
func (l *SessionLifecycle) TTL(device domain.DeviceClass) time.Duration {
	if device == domain.DeviceTrusted {
		return l.policy.Trusted
	}
	return l.policy.Untrusted
}

// Create mints a new session for userID with a TTL chosen from the device class.
func (l *SessionLifecycle) Create(ctx context.Context, userID string, device domain.DeviceClass) (*domain.Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:          id,
		UserID:      userID,
		DeviceClass: device,
		CreatedAt:   now,
		ExpiresAt:   now.Add(l.TTL(device)),
	}

	if err := l.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

// Validate returns the session for id, or domain.ErrSessionNotFound when the
// id is unknown or the session has expired.
func (l *SessionLifecycle) Validate(ctx context.Context, id string) (*domain.Session, error) {
	session, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(time.Now().UTC()) {
		// Best effort cleanup; the store's own TTL will reap it anyway.
		if derr := l.store.Delete(ctx, id); derr != nil {
			l.logger.Warn().Err(derr).Msg("failed to delete expired session")
		}
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Destroy removes the session. Destroying an already-gone session is a no-op.
func (l *SessionLifecycle) Destroy(ctx context.Context, id string) error {
	return l.store.Delete(ctx, id)
}

// generateSessionID returns an opaque, unguessable identifier.
func generateSessionID() (string, error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
