package tokenizer

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/zapgate/zapgate/core"
	"github.com/zapgate/zapgate/ports"
)

// AudienceSession marks session tokens so they cannot be replayed in any
// other role.
const AudienceSession = "zapgate:session"

// JWTTokenizer implements the SessionTokenizer interface using HS256 JWTs
// signed with a secret supplied through configuration. Tokens are
// self-verifying and short-lived, so no server-side revocation state is
// kept; logout clears the cookie.
type JWTTokenizer struct {
	secret     []byte
	sessionTTL time.Duration
}

// NewJWTTokenizer creates a new JWT tokenizer.
func NewJWTTokenizer(secret string, sessionTTL time.Duration) ports.SessionTokenizer {
	return &JWTTokenizer{secret: []byte(secret), sessionTTL: sessionTTL}
}

// Issue mints a session token bound to the verified subject.
func (j *JWTTokenizer) Issue(subject, authMethod string) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}

	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.sessionTTL)),
			Audience:  jwt.ClaimStrings{AudienceSession},
		},
		AuthMethod: authMethod,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify validates the token's signature, audience and expiry.
func (j *JWTTokenizer) Verify(tokenStr string) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithAudience(AudienceSession))
	if err != nil {
		return nil, fmt.Errorf("failed to parse session token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}

	return &core.Session{
		Subject:    claims.Subject,
		AuthMethod: claims.AuthMethod,
		IssuedAt:   claims.IssuedAt.Time,
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil
}
