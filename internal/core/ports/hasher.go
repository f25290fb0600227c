package ports

// CredentialHasher provides one-way, salted password hashing and
// constant-time verification. The salt and cost are embedded in the hash
// output, so no separate salt storage is needed.
type CredentialHasher interface {
	// Hash produces an opaque hash of the plaintext.
	Hash(plaintext string) (string, error)

	// Verify reports whether plaintext matches the opaque hash.
	// A malformed hash yields false, never an error.
	Verify(plaintext, hash string) bool

	// DummyHash returns a fixed, well-formed hash that matches no password.
	// Used to keep verification latency uniform when an account is absent.
	DummyHash() string
}
