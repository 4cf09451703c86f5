package ports

import "github.com/zapgate/zapgate/core"

// SessionTokenizer mints and verifies the opaque session tokens carried in
// the session cookie. The server exclusively mints and verifies sessions;
// the client only carries the token.
type SessionTokenizer interface {
	// Issue mints a session token bound to the verified subject.
	Issue(subject, authMethod string) (string, error)

	// Verify validates the token's integrity and expiry. Any failure
	// (malformed, tampered, expired) returns an error so callers treat
	// "no session" uniformly.
	Verify(token string) (*core.Session, error)
}
