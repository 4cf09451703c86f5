package core

import "time"

// Challenge represents a server-issued authentication challenge. The client
// proves possession of its key by returning the challenge value inside a
// signed event.
type Challenge struct {
	Value     string    `json:"value"`      // Opaque, unguessable, prefixed with the service namespace
	IssuedAt  time.Time `json:"issued_at"`  // When the challenge was created
	ExpiresAt time.Time `json:"expires_at"` // When the challenge expires
}

// Expired reports whether the challenge is past its validity window.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Session represents an authenticated user session. Sessions are minted only
// after a signed event fully validates and are carried as an opaque token in
// an HTTP-only cookie.
type Session struct {
	Subject    string    // Hex-encoded public key of the authenticated user
	AuthMethod string    // How the user authenticated: extension, external or bunker
	IssuedAt   time.Time // When the session was created
	ExpiresAt  time.Time // When the session expires
}

// Authentication methods recorded in the session.
const (
	AuthMethodExtension = "extension" // in-process signer, inline path
	AuthMethodExternal  = "external"  // URL-scheme signer app, redirect path
	AuthMethodBunker    = "bunker"    // remote signer over a relay
)
