package auth

// Signer and Verifier are opaque cryptographic collaborators. The
// protocol core never implements these; hosts plug in whatever
// primitive their deployment uses.

// Signer produces a detached signature over a payload.
type Signer interface {
	Sign(payload []byte, key []byte) ([]byte, error)
}

// Verifier checks a detached signature over a payload.
type Verifier interface {
	Verify(payload []byte, signature []byte, key []byte) (bool, error)
}
