// Package flow implements the client-side external-signer authentication
// state machine. Control leaves the process entirely while an external
// signer app holds it, so all in-flight state lives in a durable store and
// the machine is driven by independent invocations before the redirect and
// after the return, never by a suspended call.
package flow

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/zapgate/zapgate/core"
	"github.com/zapgate/zapgate/ports"
)

// ArtifactParam is the single designated query parameter under which the
// external signer appends its answer to the callback URL: a pubkey hex on
// the first leg, a URL-encoded signed-event JSON on the second.
const ArtifactParam = "event"

// DefaultStaleAfter bounds how long a pending flow survives an external
// round-trip that never returns. It is more generous than the challenge
// TTL to tolerate slow human interaction with the signer app.
const DefaultStaleAfter = time.Hour

const pendingKey = "authflow:pending"

// ErrFlowInProgress is returned by Start when a fresh pending flow already
// exists and superseding was not requested.
var ErrFlowInProgress = errors.New("an authentication flow is already in progress")

// Client is the verification-service boundary the flow talks to. In-process
// deployments back it with the auth service directly; browser-style hosts
// back it with HTTP calls to /challenge and /verify-ownership. authMethod
// is the signer variant's method name, recorded in the minted session.
type Client interface {
	IssueChallenge(ctx context.Context) (challenge string, template *core.Event, err error)
	VerifyOwnership(ctx context.Context, event *core.Event, authMethod string) (token string, err error)
}

// Status is the observable outcome of driving the state machine once.
// RedirectURL is set only on the invocation that actually performed a
// transition requiring a redirect; repeated invocations with no new input
// never carry one.
type Status struct {
	State       core.FlowState
	RedirectURL string
	Token       string
	PubKey      string
	Err         error
}

// Flow drives authentication through a signer capability selected once at
// construction. At most one flow is pending at a time.
type Flow struct {
	store      ports.Store
	client     Client
	signer     ports.Signer
	staleAfter time.Duration
	now        func() time.Time
}

// New creates a flow around the given store, verification boundary and
// signer variant.
func New(store ports.Store, client Client, signer ports.Signer) *Flow {
	return &Flow{
		store:      store,
		client:     client,
		signer:     signer,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
	}
}

// Start begins a new flow: it obtains a challenge, persists the pending
// record, then hands control to the signer. If a fresh pending flow
// already exists it is either reported (ErrFlowInProgress) or superseded,
// never silently run in parallel. Synchronous signers complete the whole
// flow in this single call.
func (f *Flow) Start(ctx context.Context, returnContext string, supersede bool) (Status, error) {
	pending, err := f.load(ctx)
	if err != nil {
		return Status{State: core.FlowIdle}, err
	}
	if pending != nil {
		if !supersede {
			return Status{State: pending.State}, ErrFlowInProgress
		}
		if err := f.store.Delete(ctx, pendingKey); err != nil {
			return Status{State: core.FlowIdle}, err
		}
	}

	challenge, template, err := f.client.IssueChallenge(ctx)
	if err != nil {
		return Status{State: core.FlowIdle}, fmt.Errorf("failed to obtain challenge: %w", err)
	}

	record := &core.PendingAuthFlow{
		ID:            uuid.New().String(),
		State:         core.FlowAwaitingPubkey,
		Challenge:     challenge,
		EventTemplate: template,
		ReturnContext: returnContext,
		CreatedAt:     f.now(),
	}
	// Persist before handing control away: the process may be gone by the
	// time the signer answers.
	if err := f.persist(ctx, record); err != nil {
		return Status{State: core.FlowIdle}, err
	}

	pubkey, err := f.signer.GetPublicKey(ctx)
	var redirect *ports.RedirectError
	if errors.As(err, &redirect) {
		return Status{State: core.FlowAwaitingPubkey, RedirectURL: redirect.URL}, nil
	}
	if err != nil {
		f.store.Delete(ctx, pendingKey)
		return Status{State: core.FlowFailed, Err: err}, err
	}

	return f.advanceWithPubkey(ctx, record, pubkey)
}

// Resume drives the machine with whatever the callback URL carries. An
// invocation with no new artifact is a pure no-op: it re-issues nothing,
// re-redirects nowhere and performs no transition, so timers, visibility
// changes and repeated mounts may call it freely.
func (f *Flow) Resume(ctx context.Context, callbackURL string) (Status, error) {
	artifact, err := extractArtifact(callbackURL)
	if err != nil {
		return Status{State: core.FlowIdle}, err
	}

	pending, err := f.load(ctx)
	if err != nil {
		return Status{State: core.FlowIdle}, err
	}
	if pending == nil {
		if artifact != "" {
			err := core.NewError(core.KindNoPendingFlow, "a signer artifact arrived but no flow is in flight")
			return Status{State: core.FlowIdle, Err: err}, err
		}
		return Status{State: core.FlowIdle}, nil
	}

	if artifact == "" {
		return Status{State: pending.State}, nil
	}

	switch pending.State {
	case core.FlowAwaitingPubkey:
		if _, err := hex.DecodeString(artifact); err != nil || len(artifact) != 64 {
			err := core.NewError(core.KindMalformedEvent, "callback artifact is not a 64-hex pubkey")
			return Status{State: pending.State, Err: err}, err
		}
		return f.advanceWithPubkey(ctx, pending, artifact)
	case core.FlowAwaitingSignedChallenge:
		var event core.Event
		if err := json.Unmarshal([]byte(artifact), &event); err != nil {
			err := core.WrapError(core.KindMalformedEvent, "callback artifact is not a valid event", err)
			return Status{State: pending.State, Err: err}, err
		}
		return f.finish(ctx, pending, &event)
	default:
		err := core.NewError(core.KindNoPendingFlow, fmt.Sprintf("pending flow is in unexpected state %s", pending.State))
		return Status{State: pending.State, Err: err}, err
	}
}

// Cancel discards any pending flow immediately, returning the machine to
// Idle without waiting for staleness expiry.
func (f *Flow) Cancel(ctx context.Context) error {
	return f.store.Delete(ctx, pendingKey)
}

// advanceWithPubkey builds the unsigned authentication event for the
// returned pubkey, persists the transition, then asks the signer for a
// signature over that exact event.
func (f *Flow) advanceWithPubkey(ctx context.Context, pending *core.PendingAuthFlow, pubkey string) (Status, error) {
	event := pending.EventTemplate.Clone()
	event.PubKey = pubkey
	event.CreatedAt = f.now().Unix()

	pending.State = core.FlowAwaitingSignedChallenge
	pending.EventTemplate = event
	if err := f.persist(ctx, pending); err != nil {
		return Status{State: core.FlowAwaitingPubkey}, err
	}

	signed, err := f.signer.SignEvent(ctx, event)
	var redirect *ports.RedirectError
	if errors.As(err, &redirect) {
		return Status{State: core.FlowAwaitingSignedChallenge, RedirectURL: redirect.URL}, nil
	}
	if err != nil {
		f.store.Delete(ctx, pendingKey)
		return Status{State: core.FlowFailed, Err: err}, err
	}

	return f.finish(ctx, pending, signed)
}

// finish submits the signed event to the verification boundary, recording
// the Verifying state while the submission is in flight. The pending
// record is cleared on success and failure alike so a failed attempt
// never poisons a retry.
func (f *Flow) finish(ctx context.Context, pending *core.PendingAuthFlow, event *core.Event) (Status, error) {
	pending.State = core.FlowVerifying
	pending.EventTemplate = event
	if err := f.persist(ctx, pending); err != nil {
		return Status{State: core.FlowAwaitingSignedChallenge}, err
	}

	token, err := f.client.VerifyOwnership(ctx, event, f.signer.Method())
	f.store.Delete(ctx, pendingKey)
	if err != nil {
		return Status{State: core.FlowFailed, Err: err}, err
	}
	return Status{State: core.FlowAuthenticated, Token: token, PubKey: event.PubKey}, nil
}

// load reads the pending record, discarding it when stale.
func (f *Flow) load(ctx context.Context) (*core.PendingAuthFlow, error) {
	payload, err := f.store.Get(ctx, pendingKey)
	if err == ports.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pending flow: %w", err)
	}

	var pending core.PendingAuthFlow
	if err := json.Unmarshal([]byte(payload), &pending); err != nil {
		return nil, fmt.Errorf("failed to decode pending flow: %w", err)
	}
	if pending.Stale(f.now(), f.staleAfter) {
		if err := f.store.Delete(ctx, pendingKey); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &pending, nil
}

func (f *Flow) persist(ctx context.Context, pending *core.PendingAuthFlow) error {
	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to encode pending flow: %w", err)
	}
	if err := f.store.Set(ctx, pendingKey, string(payload), f.staleAfter); err != nil {
		return fmt.Errorf("failed to persist pending flow: %w", err)
	}
	return nil
}

func extractArtifact(callbackURL string) (string, error) {
	if callbackURL == "" {
		return "", nil
	}
	u, err := url.Parse(callbackURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse callback URL: %w", err)
	}
	return u.Query().Get(ArtifactParam), nil
}
