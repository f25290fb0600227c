package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher implements ports.CredentialHasher using bcrypt. The cost is
// fixed per deployment; the per-call salt is embedded in the hash output by
// bcrypt itself.
type BcryptHasher struct {
	cost  int
	dummy string
}

// NewBcryptHasher creates a BcryptHasher with the given cost. An out-of-range
// cost falls back to bcrypt.DefaultCost. A dummy hash is precomputed from
// random input so that verification against a nonexistent account costs the
// same as against a real one.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("hasher: generate dummy input: %w", err)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(base64.StdEncoding.EncodeToString(buf)), cost)
	if err != nil {
		return nil, fmt.Errorf("hasher: generate dummy hash: %w", err)
	}

	return &BcryptHasher{cost: cost, dummy: string(dummy)}, nil
}

// Hash produces a bcrypt hash of the plaintext.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hasher: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash. bcrypt compares in constant
// time; a malformed hash simply yields false.
func (h *BcryptHasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// DummyHash returns the precomputed hash that matches no real credential.
func (h *BcryptHasher) DummyHash() string {
	return h.dummy
}
