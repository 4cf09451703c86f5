package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zapgate/zapgate/core"
	"github.com/zapgate/zapgate/internal/bip340"
)

// DefaultInlineMaxAge bounds how old an inline auth event may be.
const DefaultInlineMaxAge = 60 * time.Second

// AuthScheme is the Authorization header scheme for inline auth events.
const AuthScheme = "Nostr"

// InlineLogin validates a same-process-signed HTTP auth event carried in
// the Authorization header and mints a session. This path has no challenge
// store: the event is bound to the exact request URL, method and timestamp
// rather than a server-issued nonce. That is a narrower trust model than
// the challenge path, acceptable because the signer runs in the same
// process as the request.
func (s *AuthService) InlineLogin(ctx context.Context, authHeader, requestURL, method string, maxAge time.Duration) (string, *core.Session, error) {
	event, err := parseAuthHeader(authHeader)
	if err != nil {
		return "", nil, err
	}

	if err := event.CheckShape(); err != nil {
		return "", nil, err
	}
	if event.Kind != core.KindHTTPAuth {
		return "", nil, core.NewError(core.KindMalformedEvent,
			fmt.Sprintf("inline auth requires kind %d, got %d", core.KindHTTPAuth, event.Kind))
	}

	id, err := event.ComputeID()
	if err != nil {
		return "", nil, core.WrapError(core.KindMalformedEvent, "event could not be serialized", err)
	}
	if id != event.ID {
		return "", nil, core.NewError(core.KindIDMismatch, "recomputed event id does not match the claimed id")
	}

	if !bip340.Verify(event.Sig, event.ID, event.PubKey) {
		return "", nil, core.NewError(core.KindInvalidSignature, "signature does not verify against the claimed pubkey")
	}

	if event.Tag("u") != requestURL {
		return "", nil, core.NewError(core.KindMalformedEvent, "u tag does not match the request URL")
	}
	if !strings.EqualFold(event.Tag("method"), method) {
		return "", nil, core.NewError(core.KindMalformedEvent, "method tag does not match the request method")
	}

	if maxAge <= 0 {
		maxAge = DefaultInlineMaxAge
	}
	age := s.now().Sub(time.Unix(event.CreatedAt, 0))
	if age > maxAge || age < -s.maxClockSkew {
		return "", nil, core.NewError(core.KindClockSkew, "event timestamp is outside the accepted window")
	}

	token, err := s.tokenizer.Issue(event.PubKey, core.AuthMethodExtension)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue session: %w", err)
	}
	session, err := s.tokenizer.Verify(token)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read back session: %w", err)
	}

	s.publishLogin(ctx, session)
	return token, session, nil
}

func parseAuthHeader(authHeader string) (*core.Event, error) {
	if !strings.HasPrefix(authHeader, AuthScheme+" ") {
		return nil, core.NewError(core.KindUnknownMethod, "authorization scheme must be "+AuthScheme)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(authHeader, AuthScheme+" "))
	if err != nil {
		return nil, core.WrapError(core.KindMalformedEvent, "authorization payload is not valid base64", err)
	}

	var event core.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, core.WrapError(core.KindMalformedEvent, "authorization payload is not a valid event", err)
	}
	return &event, nil
}
