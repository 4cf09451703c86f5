package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with the authentication method
// that produced the session.
type SessionClaims struct {
	jwt.RegisteredClaims
	AuthMethod string `json:"amr,omitempty"`
}
