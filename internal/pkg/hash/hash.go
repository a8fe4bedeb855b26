package hash

// Hash is a one-way digest of a secret with verification support.
type Hash interface {
	// Hash returns the digest for the given plaintext.
	Hash(plaintext string) ([]byte, error)
	// Verify reports whether plaintext matches the hashed value.
	Verify(hashed, plaintext string) bool
}
