package domain

import (
	"errors"
	"time"
)

// ErrSessionNotFound covers both unknown and expired sessions: an expired
// session must be indistinguishable from no session at all.
var ErrSessionNotFound = errors.New("session not found")

// DeviceClass is the caller-declared trust level of the client device.
// It drives session TTL policy.
type DeviceClass string

const (
	DeviceTrusted   DeviceClass = "trusted"
	DeviceUntrusted DeviceClass = "untrusted"
)

// ParseDeviceClass maps arbitrary client input to a DeviceClass.
// Anything that is not exactly "trusted" is treated as untrusted.
func ParseDeviceClass(s string) DeviceClass {
	if s == string(DeviceTrusted) {
		return DeviceTrusted
	}
	return DeviceUntrusted
}

// Session is a server-side authenticated session. ID is an opaque,
// unguessable identifier; it is the only thing the client ever holds.
type Session struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	DeviceClass DeviceClass `json:"device_class"`
	CreatedAt   time.Time   `json:"created_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// IsExpired reports whether the session has passed its deadline at now.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
