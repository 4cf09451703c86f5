package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/zapgate/zapgate/core"
	"github.com/zapgate/zapgate/internal/bip340"
	"github.com/zapgate/zapgate/ports"
)

const (
	// ChallengePrefix namespaces challenge values so they are identifiable
	// as belonging to this service.
	ChallengePrefix = "zapgate-"

	// DefaultChallengeTTL bounds challenge validity independent of how long
	// the external round-trip takes.
	DefaultChallengeTTL = 5 * time.Minute

	// DefaultMaxClockSkew bounds how far an event's created_at may drift
	// from server time in either direction.
	DefaultMaxClockSkew = 10 * time.Minute

	// challengeKeyPrefix and usedKeyPrefix partition the store namespace.
	challengeKeyPrefix = "challenge:"
	usedKeyPrefix      = "challenge:used:"

	// Tombstone values let a repeat consume report the original outcome
	// instead of "not found".
	tombstoneUsed    = "used"
	tombstoneExpired = "expired"
)

// AuthService is the verification boundary: it issues and consumes
// challenges, validates signed events and mints sessions. The whole
// verify-and-issue path is synchronous; nothing blocks beyond the store
// round-trip, keeping it fast on the authentication critical path.
type AuthService struct {
	store     ports.Store
	tokenizer ports.SessionTokenizer
	eventPub  ports.EventPublisher

	relayHint    string
	challengeTTL time.Duration
	maxClockSkew time.Duration
	now          func() time.Time
}

// NewAuthService creates a new authentication service. eventPub may be nil
// when no event bus is wired.
func NewAuthService(store ports.Store, tokenizer ports.SessionTokenizer, eventPub ports.EventPublisher, relayHint string) *AuthService {
	return &AuthService{
		store:        store,
		tokenizer:    tokenizer,
		eventPub:     eventPub,
		relayHint:    relayHint,
		challengeTTL: DefaultChallengeTTL,
		maxClockSkew: DefaultMaxClockSkew,
		now:          time.Now,
	}
}

// IssueChallenge generates a fresh single-use challenge and the unsigned
// event template the client must get signed.
func (s *AuthService) IssueChallenge(ctx context.Context) (*core.Challenge, *core.Event, error) {
	entropy := make([]byte, 32)
	if _, err := rand.Read(entropy); err != nil {
		return nil, nil, fmt.Errorf("failed to generate challenge: %w", err)
	}

	now := s.now()
	challenge := &core.Challenge{
		Value:     ChallengePrefix + hex.EncodeToString(entropy),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.challengeTTL),
	}

	payload, err := marshalChallenge(challenge)
	if err != nil {
		return nil, nil, err
	}

	// The record outlives the challenge itself so a late consume attempt
	// can be told apart from a never-issued value.
	if err := s.store.Set(ctx, challengeKeyPrefix+challenge.Value, payload, 2*s.challengeTTL); err != nil {
		return nil, nil, fmt.Errorf("failed to persist challenge: %w", err)
	}

	tags := [][]string{{"challenge", challenge.Value}}
	if s.relayHint != "" {
		tags = append([][]string{{"relay", s.relayHint}}, tags...)
	}
	template := &core.Event{
		Kind:      core.KindClientAuth,
		CreatedAt: now.Unix(),
		Tags:      tags,
		Content:   challenge.Value,
	}

	return challenge, template, nil
}

// ConsumeChallenge atomically looks up, expiry-checks and marks the
// challenge consumed. Exactly one caller ever succeeds for a given value;
// duplicate or concurrent attempts fail with a specific kind.
func (s *AuthService) ConsumeChallenge(ctx context.Context, value string) error {
	payload, err := s.store.GetDel(ctx, challengeKeyPrefix+value)
	if err == ports.ErrNotFound {
		if tombstone, terr := s.store.Get(ctx, usedKeyPrefix+value); terr == nil {
			if tombstone == tombstoneExpired {
				return core.NewError(core.KindChallengeExpired, "challenge expired before it was consumed")
			}
			return core.NewError(core.KindChallengeAlreadyUsed, "challenge has already been used")
		}
		return core.NewError(core.KindChallengeNotFound, "challenge was never issued or has been garbage-collected")
	}
	if err != nil {
		return fmt.Errorf("failed to look up challenge: %w", err)
	}

	challenge, err := unmarshalChallenge(payload)
	if err != nil {
		return err
	}
	if challenge.Expired(s.now()) {
		// GetDel already removed the record, so without a tombstone a second
		// attempt would report "not found" instead of the real outcome.
		if err := s.store.Set(ctx, usedKeyPrefix+value, tombstoneExpired, 2*s.challengeTTL); err != nil {
			return fmt.Errorf("failed to mark challenge expired: %w", err)
		}
		return core.NewError(core.KindChallengeExpired, "challenge expired before it was consumed")
	}

	if err := s.store.Set(ctx, usedKeyPrefix+value, tombstoneUsed, 2*s.challengeTTL); err != nil {
		return fmt.Errorf("failed to mark challenge consumed: %w", err)
	}
	return nil
}

// VerifyOwnership validates a signed event end to end and mints a session.
// Order matters: shape, then recomputed id against the claimed id (tamper
// detection before any signature work), then the signature, then the
// timestamp window, then single-use challenge consumption.
func (s *AuthService) VerifyOwnership(ctx context.Context, event *core.Event) (string, *core.Session, error) {
	return s.VerifyOwnershipAs(ctx, event, core.AuthMethodExternal)
}

// VerifyOwnershipAs is VerifyOwnership with an explicit authentication
// method, for callers that know which signer capability produced the
// signature. An empty method records external.
func (s *AuthService) VerifyOwnershipAs(ctx context.Context, event *core.Event, authMethod string) (string, *core.Session, error) {
	if authMethod == "" {
		authMethod = core.AuthMethodExternal
	}
	token, session, err := s.verify(ctx, event, authMethod)
	if err != nil {
		return "", nil, err
	}

	s.publishLogin(ctx, session)
	return token, session, nil
}

func (s *AuthService) verify(ctx context.Context, event *core.Event, authMethod string) (string, *core.Session, error) {
	if event == nil {
		return "", nil, core.NewError(core.KindMalformedEvent, "signed event is missing")
	}
	if err := event.CheckShape(); err != nil {
		return "", nil, err
	}
	if event.Kind != core.KindClientAuth && event.Kind != core.KindHTTPAuth {
		return "", nil, core.NewError(core.KindMalformedEvent,
			fmt.Sprintf("kind %d is not an authentication event", event.Kind))
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

	if skew := s.now().Sub(time.Unix(event.CreatedAt, 0)); skew > s.maxClockSkew || skew < -s.maxClockSkew {
		return "", nil, core.NewError(core.KindClockSkew, "event timestamp is outside the accepted window")
	}

	challenge := event.Content
	if challenge == "" {
		challenge = event.Tag("challenge")
	}
	if err := s.ConsumeChallenge(ctx, challenge); err != nil {
		return "", nil, err
	}

	token, err := s.tokenizer.Issue(event.PubKey, authMethod)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue session: %w", err)
	}

	session, err := s.tokenizer.Verify(token)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read back session: %w", err)
	}
	return token, session, nil
}

// Session verifies a session token. A nil session with a non-nil error
// means "not logged in", never a server fault.
func (s *AuthService) Session(token string) (*core.Session, error) {
	return s.tokenizer.Verify(token)
}

// Logout publishes the logout event for a (possibly already expired)
// session token. Clearing the cookie is the transport layer's job.
func (s *AuthService) Logout(ctx context.Context, token string) {
	if s.eventPub == nil {
		return
	}
	session, err := s.tokenizer.Verify(token)
	if err != nil {
		return
	}
	if err := s.eventPub.PublishLogout(ctx, session.Subject); err != nil {
		log.Printf("warning: failed to publish logout event: %v", err)
	}
}

func (s *AuthService) publishLogin(ctx context.Context, session *core.Session) {
	if s.eventPub == nil {
		return
	}
	if err := s.eventPub.PublishLogin(ctx, session.Subject, session.AuthMethod); err != nil {
		// The session is already issued; the event bus is best-effort.
		log.Printf("warning: failed to publish login event: %v", err)
	}
}
